package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type message struct {
	From string
	Text string
}

func TestBus_PublishInRegistrationOrder(t *testing.T) {
	bus := NewBus[message]()
	var order []string

	bus.Subscribe("message", func(_ Kind, m message) { order = append(order, "first:"+m.Text) })
	bus.Subscribe("message", func(_ Kind, m message) { order = append(order, "second:"+m.Text) })
	bus.Subscribe("status", func(_ Kind, m message) { order = append(order, "status") })

	n := bus.Publish("message", message{From: "alice", Text: "hi"})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first:hi", "second:hi"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus[message]()
	calls := 0
	unsubscribe := bus.Subscribe("message", func(Kind, message) { calls++ })

	bus.Publish("message", message{})
	unsubscribe()
	unsubscribe()
	bus.Publish("message", message{})

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.Count("message"))
}

func TestBus_UnsubscribeKeepsOthers(t *testing.T) {
	bus := NewBus[message]()
	var got []string
	bus.Subscribe("message", func(Kind, message) { got = append(got, "a") })
	unsubB := bus.Subscribe("message", func(Kind, message) { got = append(got, "b") })
	bus.Subscribe("message", func(Kind, message) { got = append(got, "c") })

	unsubB()
	bus.Publish("message", message{})

	assert.Equal(t, []string{"a", "c"}, got)
}

func TestBus_Wildcard(t *testing.T) {
	bus := NewBus[message]()
	var kinds []Kind
	bus.Subscribe(Wildcard, func(k Kind, _ message) { kinds = append(kinds, k) })

	bus.Publish("status", message{})
	bus.Publish("message", message{})

	assert.Equal(t, []Kind{"status", "message"}, kinds)
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus[message]()
	assert.Zero(t, bus.Publish("nobody", message{}))
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus[message]()
	calls := 0
	var unsubscribe func()
	unsubscribe = bus.Subscribe("message", func(Kind, message) {
		calls++
		unsubscribe()
	})
	bus.Subscribe("message", func(Kind, message) { calls++ })

	bus.Publish("message", message{})
	bus.Publish("message", message{})

	assert.Equal(t, 3, calls)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus[int]()
	var mu sync.Mutex
	total := 0
	bus.Subscribe("n", func(_ Kind, n int) {
		mu.Lock()
		total += n
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish("n", n)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 55, total)
}
