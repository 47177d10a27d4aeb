package superqueue

import "time"

// maxDelay is the longest single wait. Longer waits wake early and
// re-evaluate, which is always safe.
const maxDelay = 2147483647 * time.Millisecond

// wakeSlack avoids waking exactly on a boundary and finding the flag still
// locked due to clock granularity.
const wakeSlack = time.Millisecond

// wakeTimer owns the single outstanding wake-up of a queue's owner loop.
type wakeTimer struct {
	t *time.Timer
}

// arm cancels any previous wake-up and schedules a new one after d,
// clamped to [0, maxDelay].
func (w *wakeTimer) arm(d time.Duration) {
	w.stop()
	if d < 0 {
		d = 0
	}
	if d > maxDelay {
		d = maxDelay
	}
	w.t = time.NewTimer(d)
}

// stop is idempotent.
func (w *wakeTimer) stop() {
	if w.t != nil {
		w.t.Stop()
		w.t = nil
	}
}

// C is nil while unarmed, so a select on it blocks forever.
func (w *wakeTimer) C() <-chan time.Time {
	if w.t == nil {
		return nil
	}
	return w.t.C
}

// clampWake turns the distance to the next unlock into a timer delay.
func clampWake(d time.Duration) time.Duration {
	if d > maxDelay-wakeSlack {
		return maxDelay
	}
	d += wakeSlack
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
