package superqueue

import (
	"testing"
	"time"
)

func TestFlagUnlockTime(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		limits Limits
		starts []time.Time
		paused bool
		want   time.Time
	}{
		{
			name:   "fresh flag is open",
			limits: Limits{Concurrency: 1, RateWindow: time.Second},
			want:   time.Time{},
		},
		{
			name:   "paused is never",
			limits: Limits{Concurrency: 1, RateWindow: time.Second},
			paused: true,
			want:   never,
		},
		{
			name:   "at concurrency cap is never",
			limits: Limits{Concurrency: 2, RateWindow: time.Second},
			starts: []time.Time{base, base},
			want:   never,
		},
		{
			name:   "interval without rate",
			limits: Limits{Concurrency: 5, Interval: 100 * time.Millisecond, RateWindow: time.Second},
			starts: []time.Time{base, base.Add(10 * time.Millisecond)},
			want:   base.Add(110 * time.Millisecond),
		},
		{
			name:   "rate window not yet full",
			limits: Limits{Concurrency: 5, Rate: 3, RateWindow: time.Second},
			starts: []time.Time{base, base.Add(time.Millisecond)},
			want:   base.Add(time.Millisecond),
		},
		{
			name:   "saturated rate binds on oldest start",
			limits: Limits{Concurrency: 5, Rate: 2, RateWindow: time.Second},
			starts: []time.Time{base, base.Add(200 * time.Millisecond)},
			want:   base.Add(time.Second),
		},
		{
			name:   "interval wins over rate",
			limits: Limits{Concurrency: 5, Interval: 2 * time.Second, Rate: 2, RateWindow: time.Second},
			starts: []time.Time{base, base.Add(200 * time.Millisecond)},
			want:   base.Add(2200 * time.Millisecond),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFlag(namedFlag("f"), tt.limits)
			f.pending = len(tt.starts)
			for _, s := range tt.starts {
				f.onStart(s)
			}
			f.setPaused(tt.paused)
			if got := f.unlockTime(); !got.Equal(tt.want) {
				t.Fatalf("unlockTime = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlagRecentIsBoundedByRate(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFlag(namedFlag("f"), Limits{Concurrency: 100, Rate: 3, RateWindow: time.Second})
	f.pending = 10
	for i := 0; i < 10; i++ {
		f.onStart(base.Add(time.Duration(i) * time.Millisecond))
		if len(f.recent) > 3 {
			t.Fatalf("len(recent) = %d after %d starts", len(f.recent), i+1)
		}
	}
	// The three newest starts remain: 7ms, 8ms, 9ms.
	if got, want := f.recent[f.oldestIndex()], base.Add(7*time.Millisecond); !got.Equal(want) {
		t.Fatalf("oldest = %v, want %v", got, want)
	}
	if f.concurrent != 10 || f.pending != 0 {
		t.Fatalf("concurrent=%d pending=%d", f.concurrent, f.pending)
	}
}

func TestFlagNoRateKeepsNoTimestamps(t *testing.T) {
	t.Parallel()
	f := newFlag(defaultFlagID, Limits{Concurrency: 2, Interval: time.Second, RateWindow: time.Second})
	f.pending = 1
	f.onStart(time.Now())
	if len(f.recent) != 0 {
		t.Fatalf("recent = %v, want empty", f.recent)
	}
	if f.unlockTime().Before(f.lastStart.Add(time.Second)) {
		t.Fatal("interval not enforced without rate")
	}
}

func TestFlagSetPausedReportsChange(t *testing.T) {
	t.Parallel()
	f := newFlag(defaultFlagID, Limits{Concurrency: 1})
	if !f.setPaused(true) || f.setPaused(true) {
		t.Fatal("pause should change once")
	}
	if !f.setPaused(false) || f.setPaused(false) {
		t.Fatal("unpause should change once")
	}
}

func TestFlagNegativeCountsPanic(t *testing.T) {
	t.Parallel()
	f := newFlag(namedFlag("f"), Limits{Concurrency: 1})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative concurrent count")
		}
	}()
	f.onFinish()
}

func TestFlagIDDefaultNeverCollides(t *testing.T) {
	t.Parallel()
	if namedFlag("") == defaultFlagID || namedFlag("<default>") == defaultFlagID {
		t.Fatal("named flag collided with the default flag")
	}
}
