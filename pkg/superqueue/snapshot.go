package superqueue

import (
	"sort"
	"time"
)

// FlagSnapshot is the state of one flag at snapshot time.
type FlagSnapshot struct {
	Name       string `json:"name"`
	Default    bool   `json:"default,omitempty"`
	Limits     Limits `json:"limits"`
	Pending    int    `json:"pending"`
	Concurrent int    `json:"concurrent"`
	Paused     bool   `json:"paused"`
	// Blocked is set when the flag admits nothing until its state changes
	// (paused or at its concurrency cap).
	Blocked bool `json:"blocked"`
	// UnlockAt is set when the flag is waiting on interval or rate.
	UnlockAt time.Time `json:"unlock_at,omitzero"`
}

// ItemInfo describes a pending or running item.
type ItemInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Priority  int       `json:"priority"`
	Flags     []string  `json:"flags"`
	Submitted time.Time `json:"submitted"`
	Started   time.Time `json:"started,omitzero"`
}

// HistoryItem records one settled item.
type HistoryItem struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Flags      []string      `json:"flags"`
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
}

type Snapshot struct {
	Time    time.Time      `json:"time"`
	Closed  bool           `json:"closed"`
	Flags   []FlagSnapshot `json:"flags"`
	Pending []ItemInfo     `json:"pending"`
	Running []ItemInfo     `json:"running"`
	History []HistoryItem  `json:"history"`
}

// Snapshot captures the queue for diagnostics. Flags list the default flag
// first, then by name; pending items are in dispatch order.
func (q *Queue) Snapshot() Snapshot {
	var snap Snapshot
	if err := q.do(func(s *scheduler) { snap = s.snapshot() }); err != nil {
		return Snapshot{Time: time.Now(), Closed: true}
	}
	return snap
}

func (s *scheduler) snapshot() Snapshot {
	now := time.Now()
	snap := Snapshot{Time: now}

	for id, f := range s.flags {
		fs := FlagSnapshot{
			Name:       id.name,
			Default:    id.isDefault,
			Limits:     f.limits,
			Pending:    f.pending,
			Concurrent: f.concurrent,
			Paused:     f.paused,
		}
		switch at := f.unlockTime(); {
		case at.Equal(never):
			fs.Blocked = true
		case at.After(now):
			fs.UnlockAt = at
		}
		snap.Flags = append(snap.Flags, fs)
	}
	sort.Slice(snap.Flags, func(i, j int) bool {
		if snap.Flags[i].Default != snap.Flags[j].Default {
			return snap.Flags[i].Default
		}
		return snap.Flags[i].Name < snap.Flags[j].Name
	})

	for _, it := range s.queue.items {
		snap.Pending = append(snap.Pending, it.info())
	}
	for _, it := range s.inflight {
		snap.Running = append(snap.Running, it.info())
	}
	sort.Slice(snap.Running, func(i, j int) bool { return snap.Running[i].Started.Before(snap.Running[j].Started) })

	snap.History = make([]HistoryItem, len(s.history))
	copy(snap.History, s.history)
	return snap
}

func (it *item) info() ItemInfo {
	return ItemInfo{
		ID:        it.id,
		Name:      it.name,
		Priority:  it.priority,
		Flags:     it.namedFlags(),
		Submitted: it.submittedAt,
		Started:   it.startedAt,
	}
}
