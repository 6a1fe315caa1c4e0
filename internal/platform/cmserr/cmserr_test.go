package cmserr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NotFound("post", "abc")); got != CodeNotFound {
		t.Fatalf("CodeOf = %q, want %q", got, CodeNotFound)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf(foreign) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("CodeOf(nil) = %q, want empty", got)
	}

	// Codes survive wrapping.
	wrapped := fmt.Errorf("loading record: %w", VersionConflict("post", "abc", 3))
	if !Is(wrapped, CodeVersionConflict) {
		t.Fatalf("wrapped error lost its code: %v", wrapped)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("bad signature")
	err := InvalidToken(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("InvalidToken does not unwrap to its cause")
	}
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("post", "title", "required field is empty")
	if err.Field != "title" {
		t.Fatalf("Field = %q, want title", err.Field)
	}
	if err.Code != CodeValidation {
		t.Fatalf("Code = %q", err.Code)
	}
}
