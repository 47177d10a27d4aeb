package storage

import (
	"errors"
	"time"

	"github.com/elsieclark/superqueue/pkg/superqueue"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file, no dependencies
//   - "sqlite": SQLite database file (left out with -tags nosqlite)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// Keep bounds how many runs are retained; 0 means defaultKeep.
	Keep int
}

const defaultKeep = 10000

// Run records one settled queue item.
type Run struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Flags      []string      `json:"flags,omitempty"`
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
}

// RunFromEvent converts a queue completion into a Run.
func RunFromEvent(ev superqueue.CompleteEvent) Run {
	return Run{
		ID:         ev.ID,
		Name:       ev.Name,
		Flags:      ev.Flags,
		OK:         ev.OK,
		Error:      ev.Error,
		Started:    ev.Started,
		QueueDelay: ev.QueueDelay,
		Duration:   ev.Duration,
	}
}
