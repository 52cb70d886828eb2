package resilience

import "time"

// Backoff doubles from Base on every attempt and never exceeds Cap.
// MaxAttempts of zero means unlimited.
type Backoff struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 5,
	}
}

func (b Backoff) Normalize() Backoff {
	defaults := DefaultBackoff()
	if b.Base <= 0 {
		b.Base = defaults.Base
	}
	if b.Cap < b.Base {
		b.Cap = max(defaults.Cap, b.Base)
	}
	if b.MaxAttempts < 0 {
		b.MaxAttempts = 0
	}
	return b
}

// Delay returns the wait before the given 1-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Cap {
			return b.Cap
		}
	}
	return min(delay, b.Cap)
}

// Exhausted reports whether attempt is past the limit.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt > b.MaxAttempts
}
