package superqueue

import "time"

// Event types published on the queue's bus.
const (
	EventStart    = "queue.start"
	EventComplete = "queue.complete"
	EventEmpty    = "queue.empty"

	eventPrefix = "queue."
)

// StartEvent is the Data of an EventStart.
type StartEvent struct {
	ID    string    `json:"id"`
	Name  string    `json:"name,omitempty"`
	Flags []string  `json:"flags"`
	Time  time.Time `json:"time"`
}

// CompleteEvent is the Data of an EventComplete.
type CompleteEvent struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Flags      []string      `json:"flags"`
	OK         bool          `json:"ok"`
	Result     any           `json:"-"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
}

// EmptyEvent is the Data of an EventEmpty.
type EmptyEvent struct {
	Time time.Time `json:"time"`
}
