package dynclient

import (
	"math/rand"
	"time"
)

// fibonacciBackoff is a capped fibonacci backoff with multiplicative
// jitter. spec.md §4.8 requires the Dynamic Client retry transient RPC
// failures this way; this is a small, self-contained algorithm with no
// natural library home in the retrieved pack, so it is hand-written
// (see DESIGN.md).
type fibonacciBackoff struct {
	cap    time.Duration
	a, b   time.Duration
	jitter float64 // fraction of the base delay to randomize, e.g. 0.2
}

func newFibonacciBackoff(cap time.Duration, jitter float64) *fibonacciBackoff {
	return &fibonacciBackoff{cap: cap, a: time.Second, b: time.Second, jitter: jitter}
}

// next returns the delay before the next attempt and advances the
// sequence. Sequence in units of the base step: 1,1,2,3,5,8,13,...
func (f *fibonacciBackoff) next() time.Duration {
	delay := f.a
	if delay > f.cap {
		delay = f.cap
	}

	f.a, f.b = f.b, f.a+f.b

	if f.jitter > 0 {
		span := float64(delay) * f.jitter
		delay += time.Duration(rand.Float64()*2*span - span)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

func (f *fibonacciBackoff) reset() {
	f.a, f.b = time.Second, time.Second
}
