package apperr

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestIsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("create booking: %w", ErrSlotUnavailable.Withf("court 3 is taken"))

	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatal("expected code match")
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatal("expected kind-level match")
	}
	if errors.Is(err, ErrDuplicateMatch) {
		t.Fatal("different code in the same kind must not match")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("different kind must not match")
	}
}

func TestWithfAndWrapCopy(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := ErrPersistence.Wrap(cause)
	described := ErrBookingNotFound.Withf("booking %d not found", 7)

	if ErrPersistence.Err != nil || ErrBookingNotFound.Message != "booking not found" {
		t.Fatal("sentinels must not be mutated")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause in chain")
	}
	if described.Error() != "booking_not_found: booking 7 not found" {
		t.Fatalf("unexpected message %q", described.Error())
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("wrap: %w", ErrCheckInTooLate)); got != KindTooLate {
		t.Fatalf("expected too_late, got %s", got)
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal, got %s", got)
	}
}

func TestEventLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	Event(&logger, ErrMatchFull).Msg("rejected")
	if !strings.Contains(buf.String(), `"level":"info"`) || !strings.Contains(buf.String(), `"code":"match_full"`) {
		t.Fatalf("expected info log with code, got %s", buf.String())
	}

	buf.Reset()
	Event(&logger, errors.New("boom")).Msg("failed")
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got %s", buf.String())
	}
}
