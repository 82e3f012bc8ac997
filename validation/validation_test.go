package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/mapkit/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "mapper")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("name", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorPositive(t *testing.T) {
	v := New()
	v.Positive("concurrency", 4)
	if v.HasErrors() {
		t.Error("expected no error for positive value")
	}

	v2 := New()
	v2.Positive("concurrency", 0)
	if !v2.HasErrors() {
		t.Error("expected error for zero value")
	}

	v3 := New()
	v3.Positive("concurrency", -1)
	if !v3.HasErrors() {
		t.Error("expected error for negative value")
	}
}

func TestValidatorMinMax(t *testing.T) {
	v := New()
	v.Min("backpressure", 4, 2).Max("backpressure", 4, 8)
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v2 := New()
	v2.Min("backpressure", 1, 2)
	if !v2.HasErrors() {
		t.Error("expected error for value below minimum")
	}

	v3 := New()
	v3.Max("backpressure", 9, 8)
	if !v3.HasErrors() {
		t.Error("expected error for value above maximum")
	}
}

func TestValidatorRange(t *testing.T) {
	v := New()
	v.Range("level", 5, 1, 10)
	if v.HasErrors() {
		t.Error("expected no error for in-range value")
	}

	v2 := New()
	v2.Range("level", 11, 1, 10)
	if !v2.HasErrors() {
		t.Error("expected error for out-of-range value")
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("format", "json", []string{"json", "console"})
	if v.HasErrors() {
		t.Error("expected no error for allowed value")
	}

	v2 := New()
	v2.OneOf("format", "xml", []string{"json", "console"})
	if !v2.HasErrors() {
		t.Error("expected error for disallowed value")
	}

	v3 := New()
	v3.OneOf("format", "", []string{"json", "console"})
	if v3.HasErrors() {
		t.Error("expected empty value to be skipped")
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New()
	v.Custom(2 >= 1, "backpressure", "must be >= concurrency")
	if v.HasErrors() {
		t.Error("expected no error when condition holds")
	}

	v2 := New()
	v2.Custom(1 >= 2, "backpressure", "must be >= concurrency")
	if !v2.HasErrors() {
		t.Error("expected error when condition fails")
	}
}

func TestValidatorValidate_Nil(t *testing.T) {
	v := New()
	if err := v.Validate(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestValidatorValidate_JoinsMessages(t *testing.T) {
	v := New()
	v.Positive("concurrency", 0)
	v.Positive("backpressure", -1)
	err := v.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "concurrency") || !strings.Contains(err.Message, "backpressure") {
		t.Errorf("expected both fields in message, got %q", err.Message)
	}
	if len(v.Errors()) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(v.Errors()))
	}
}

// --- struct tag validation ---

type boundsConfig struct {
	Concurrency  int `mapstructure:"concurrency" validate:"omitempty,gte=1"`
	Backpressure int `mapstructure:"backpressure" validate:"omitempty,gtecsfield=Concurrency"`
}

func TestValidateStruct_Valid(t *testing.T) {
	cfg := boundsConfig{Concurrency: 2, Backpressure: 4}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid struct, got %v", err)
	}
}

func TestValidateStruct_ZeroValuesSkipped(t *testing.T) {
	cfg := boundsConfig{}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected omitempty fields to be skipped, got %v", err)
	}
}

func TestValidateStruct_Gte(t *testing.T) {
	cfg := boundsConfig{Concurrency: -3}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative concurrency")
	}
	if !strings.Contains(err.Error(), "concurrency") {
		t.Errorf("expected mapstructure tag name in message, got %q", err.Error())
	}
}

func TestValidateStruct_CrossField(t *testing.T) {
	cfg := boundsConfig{Concurrency: 4, Backpressure: 2}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for backpressure < concurrency")
	}
	if !strings.Contains(err.Error(), "backpressure") {
		t.Errorf("expected field name in message, got %q", err.Error())
	}
}

func TestValidateStruct_ReturnsKitError(t *testing.T) {
	err := Validate(boundsConfig{Concurrency: -1})
	if _, ok := errors.AsError(err); !ok {
		t.Error("expected a mapkit *errors.Error")
	}
}
