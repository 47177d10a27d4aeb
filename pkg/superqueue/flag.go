package superqueue

import (
	"fmt"
	"time"
)

// flagID identifies a flag. The default flag is a distinct variant, so no
// caller-chosen name can ever collide with it.
type flagID struct {
	isDefault bool
	name      string
}

var defaultFlagID = flagID{isDefault: true}

func namedFlag(name string) flagID { return flagID{name: name} }

func (id flagID) String() string {
	if id.isDefault {
		return "<default>"
	}
	return id.name
}

// never is the unlock time of a flag that cannot admit work until its state
// changes (paused or at its concurrency cap). Durations derived from it
// saturate and are clamped to maxDelay.
var never = time.Unix(1<<40, 0)

// flag is a constraint bucket. It is only touched by the owner loop.
type flag struct {
	id     flagID
	limits Limits

	concurrent int
	pending    int
	paused     bool

	// lastStart is the newest start; it drives interval spacing even when no
	// rate limit is configured.
	lastStart time.Time
	// recent holds the start times of the last limits.Rate starts; the oldest
	// entry is overwritten once it is full.
	recent []time.Time
}

func newFlag(id flagID, limits Limits) *flag {
	f := &flag{id: id, limits: limits}
	if limits.Rate > 0 {
		f.recent = make([]time.Time, 0, limits.Rate)
	}
	return f
}

// unlockTime is the earliest instant the flag admits a new start: the
// pointwise maximum of its concurrency, interval and rate constraints.
func (f *flag) unlockTime() time.Time {
	if f.paused || f.concurrent >= f.limits.Concurrency {
		return never
	}
	var intervalBound time.Time
	if !f.lastStart.IsZero() {
		intervalBound = f.lastStart.Add(f.limits.Interval)
	}
	// The rate window binds only once it is saturated, via its oldest start.
	if f.limits.Rate == 0 || len(f.recent) < f.limits.Rate {
		return intervalBound
	}
	rateBound := f.recent[f.oldestIndex()].Add(f.limits.RateWindow)
	if rateBound.After(intervalBound) {
		return rateBound
	}
	return intervalBound
}

func (f *flag) onStart(now time.Time) {
	f.concurrent++
	f.pending--
	if f.pending < 0 {
		panic(fmt.Sprintf("superqueue: flag %s pending count went negative", f.id))
	}
	if now.After(f.lastStart) {
		f.lastStart = now
	}
	if f.limits.Rate == 0 {
		return
	}
	if len(f.recent) < f.limits.Rate {
		f.recent = append(f.recent, now)
	} else {
		f.recent[f.oldestIndex()] = now
	}
}

func (f *flag) onFinish() {
	f.concurrent--
	if f.concurrent < 0 {
		panic(fmt.Sprintf("superqueue: flag %s concurrent count went negative", f.id))
	}
}

// setPaused reports whether the paused state changed.
func (f *flag) setPaused(v bool) bool {
	changed := f.paused != v
	f.paused = v
	return changed
}

func (f *flag) oldestIndex() int {
	idx := 0
	for i, t := range f.recent {
		if t.Before(f.recent[idx]) {
			idx = i
		}
	}
	return idx
}
