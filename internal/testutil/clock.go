package testutil

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/courtside/internal/clock"
)

// FakeClock is a clock.Clock tests can move forward.
type FakeClock interface {
	clock.Clock
	Advance(d time.Duration)
}

func NewFakeClock(at time.Time) FakeClock {
	return clockwork.NewFakeClockAt(at)
}
