package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/codr1/courtside/internal/apperr"
)

type sample struct {
	ID    int64  `validate:"gt=0"`
	Score int64  `validate:"min=1,max=5"`
	Note  string `validate:"max=5"`
}

func TestStruct(t *testing.T) {
	v := New()

	if err := v.Struct(sample{ID: 1, Score: 3}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	err := v.Struct(sample{ID: 0, Score: 9, Note: "too long"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	for _, want := range []string{"ID: must be greater than 0", "Score: must be at most 5", "Note: must be at most 5"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}
