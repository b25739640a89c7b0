package validation

import (
	"math"
	"testing"
	"time"

	"github.com/vnykmshr/lazystream/pkg/common/errors"
)

func checkValidation(t *testing.T, err error, wantError bool) {
	t.Helper()
	if wantError {
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.IsValidationError(err) {
			t.Errorf("expected ValidationError, got %T", err)
		}
		return
	}
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, ValidatePositive("test", "chunk_size", tt.value), tt.wantError)
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantError bool
	}{
		{"positive value", 10.5, false},
		{"zero value", 0.0, false},
		{"infinity", math.Inf(1), false},
		{"negative value", -1.5, true},
		{"small negative", -0.001, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkValidation(t, ValidateNonNegative("test", "high_water_mark", tt.value), tt.wantError)
		})
	}
}

func TestValidateNonNegativeDuration(t *testing.T) {
	checkValidation(t, ValidateNonNegativeDuration("test", "timeout", 0), false)
	checkValidation(t, ValidateNonNegativeDuration("test", "timeout", time.Second), false)
	checkValidation(t, ValidateNonNegativeDuration("test", "timeout", -time.Millisecond), true)
}

func TestValidateNotNil(t *testing.T) {
	checkValidation(t, ValidateNotNil("test", "client", struct{}{}), false)
	checkValidation(t, ValidateNotNil("test", "client", nil), true)
}

func TestValidateNotEmpty(t *testing.T) {
	checkValidation(t, ValidateNotEmpty("test", "key", "jobs"), false)
	checkValidation(t, ValidateNotEmpty("test", "key", ""), true)
}

func TestValidationMessages(t *testing.T) {
	err := ValidateNotEmpty("redislist", "key", "")
	want := "redislist: invalid key= (cannot be empty) - provide a non-empty key"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
