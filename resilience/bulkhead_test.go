package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkhead_ExecuteReleasesSlot(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 2})
	err := bh.Execute(context.Background(), func(context.Context) error {
		if bh.InUse() != 1 {
			t.Errorf("expected 1 slot in use, got %d", bh.InUse())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bh.Available() != 2 {
		t.Errorf("expected 2 available, got %d", bh.Available())
	}
}

func TestBulkhead_PropagatesError(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	want := errors.New("boom")
	if err := bh.Execute(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if bh.InUse() != 0 {
		t.Error("expected slot to be released after error")
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected error
	bh := NewBulkhead(BulkheadConfig{
		Name:          "delivery",
		MaxConcurrent: 1,
		OnReject:      func(name string, err error) { rejected = err },
	})

	hold := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- bh.Execute(context.Background(), func(context.Context) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered

	err := bh.Execute(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if !errors.Is(rejected, ErrBulkheadFull) {
		t.Errorf("expected OnReject with ErrBulkheadFull, got %v", rejected)
	}

	close(hold)
	if err := <-done; err != nil {
		t.Errorf("unexpected error from holder: %v", err)
	}
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})

	hold := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = bh.Execute(context.Background(), func(context.Context) error {
			close(entered)
			<-hold
			return nil
		})
	}()
	<-entered
	defer close(hold)

	err := bh.Execute(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_Defaults(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{Name: "x"})
	if bh.Available() != 10 {
		t.Errorf("expected default capacity 10, got %d", bh.Available())
	}
	if bh.Name() != "x" {
		t.Errorf("expected name x, got %q", bh.Name())
	}
}
