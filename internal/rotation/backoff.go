package rotation

import "time"

// backoff produces doubling wait durations capped at a maximum. The zero
// current value means the condition is clear; the first next after a reset
// returns the initial duration.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func (b *backoff) next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
	} else {
		b.current *= 2
		if b.current > b.max {
			b.current = b.max
		}
	}
	return b.current
}

func (b *backoff) reset() {
	b.current = 0
}
