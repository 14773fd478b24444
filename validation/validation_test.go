package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kbukum/gostream/errors"
)

func TestValidatorRequired(t *testing.T) {
	if New().Required("name", "John").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("name", "").HasErrors() {
		t.Error("expected error for empty required field")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorNumbers(t *testing.T) {
	tests := []struct {
		name    string
		v       *Validator
		wantErr bool
	}{
		{"range ok", New().Range("n", 5, 1, 10), false},
		{"range below", New().Range("n", 0, 1, 10), true},
		{"range above", New().Range("n", 11, 1, 10), true},
		{"min ok", New().Min("n", 1, 1), false},
		{"min fail", New().Min("n", 0, 1), true},
		{"max ok", New().Max("n", 10, 10), false},
		{"max fail", New().Max("n", 11, 10), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.v.HasErrors() != tc.wantErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", tc.v.HasErrors(), tc.wantErr, tc.v.Errors())
			}
		})
	}
}

func TestValidatorPatternAndOneOf(t *testing.T) {
	if New().Pattern("name", "report.txt", `^[\w.-]+$`).HasErrors() {
		t.Error("expected pattern match")
	}
	if !New().Pattern("name", "../etc/passwd", `^[\w.-]+$`).HasErrors() {
		t.Error("expected pattern mismatch")
	}
	if New().Pattern("name", "", `^x$`).HasErrors() {
		t.Error("expected empty value to be skipped")
	}
	if New().OneOf("t", "upper", []string{"upper", "lower"}).HasErrors() {
		t.Error("expected allowed value")
	}
	v := New().OneOf("t", "reverse", []string{"upper", "lower"})
	if !v.HasErrors() || !strings.Contains(v.Errors()[0].Message, "upper, lower") {
		t.Errorf("expected one-of error, got %v", v.Errors())
	}
}

func TestValidatorValidate(t *testing.T) {
	if New().Validate() != nil {
		t.Error("expected nil for valid validator")
	}
	if New().Err() != nil {
		t.Error("expected nil error for valid validator")
	}

	v := New().Custom(false, "low", "must be below high").Required("name", "")
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected AppError")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %v", appErr.Details["fields"])
	}
	if !strings.Contains(appErr.Message, "low: must be below high") {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestValidatorMerge(t *testing.T) {
	type inner struct {
		Size int `json:"size" validate:"gt=0"`
	}
	v := New().Merge("inner", Validate(inner{}))
	v.Merge("other", stderrors.New("plain failure"))
	v.Merge("none", nil)

	errs := v.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Field != "size" {
		t.Errorf("expected merged field 'size', got %q", errs[0].Field)
	}
	if errs[1].Field != "other" || errs[1].Message != "plain failure" {
		t.Errorf("unexpected plain error entry %v", errs[1])
	}
}

func TestValidateStruct(t *testing.T) {
	type linkConfig struct {
		Capacity      int `mapstructure:"capacity" validate:"gt=0"`
		HighWatermark int `mapstructure:"high_watermark" validate:"gt=0,ltefield=Capacity"`
		LowWatermark  int `mapstructure:"low_watermark" validate:"gte=0,ltfield=HighWatermark"`
	}

	tests := []struct {
		name      string
		cfg       linkConfig
		wantField string
		wantMsg   string
	}{
		{"valid", linkConfig{8, 8, 4}, "", ""},
		{"zero capacity", linkConfig{0, 0, 0}, "capacity", "must be greater than 0"},
		{"high above capacity", linkConfig{4, 5, 1}, "high_watermark", "must be at most capacity"},
		{"low not below high", linkConfig{8, 4, 4}, "low_watermark", "must be less than high_watermark"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.cfg)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			fields := appErr.Details["fields"].([]FieldError)
			found := false
			for _, f := range fields {
				if f.Field == tc.wantField && f.Message == tc.wantMsg {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s: %s in %v", tc.wantField, tc.wantMsg, fields)
			}
		})
	}
}

func TestValidateNonStruct(t *testing.T) {
	if err := Validate(42); err == nil {
		t.Error("expected error validating a non-struct")
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("HighWatermark"); got != "high_watermark" {
		t.Errorf("expected high_watermark, got %q", got)
	}
}
