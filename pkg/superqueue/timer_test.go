package superqueue

import (
	"testing"
	"time"
)

func TestClampWake(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want time.Duration
	}{
		{-time.Second, time.Millisecond},
		{0, time.Millisecond},
		{10 * time.Millisecond, 11 * time.Millisecond},
		{maxDelay, maxDelay},
		{never.Sub(time.Now()), maxDelay},
	}
	for _, tt := range tests {
		if got := clampWake(tt.in); got != tt.want {
			t.Errorf("clampWake(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWakeTimerRearmReplaces(t *testing.T) {
	t.Parallel()
	var w wakeTimer
	if w.C() != nil {
		t.Fatal("zero wakeTimer should be unarmed")
	}
	w.arm(time.Hour)
	first := w.C()
	w.arm(time.Millisecond)
	if w.C() == first {
		t.Fatal("arm did not replace the timer")
	}
	select {
	case <-w.C():
	case <-time.After(time.Second):
		t.Fatal("rearmed timer did not fire")
	}
	w.stop()
	w.stop()
	if w.C() != nil {
		t.Fatal("stop left the timer armed")
	}
}

func TestNextStartIgnoresBlockedItemsAndUnreferencedFlags(t *testing.T) {
	t.Parallel()
	now := time.Now()
	f, g := namedFlag("f"), namedFlag("g")
	s := &scheduler{}
	s.queue.insert(&item{id: "blocked", flags: []flagID{defaultFlagID, f}})
	s.queue.insert(&item{id: "waiting", flags: []flagID{defaultFlagID}})

	unlock := map[flagID]time.Time{
		defaultFlagID: now.Add(50 * time.Millisecond),
		f:             never,
		g:             now.Add(time.Millisecond), // referenced by no item
	}
	if got, want := s.nextStart(unlock), now.Add(50*time.Millisecond); !got.Equal(want) {
		t.Fatalf("nextStart = %v, want %v", got, want)
	}
}
