package superqueue

import (
	"context"
	"strings"
	"time"

	"github.com/elsieclark/superqueue/pkg/eventbus"
	logx "github.com/elsieclark/superqueue/pkg/logx"
)

const (
	// DefaultPriority is used when a submission does not set one.
	DefaultPriority = 10
	// DefaultRateWindow is the sliding window used when Limits.Rate is set
	// without a window.
	DefaultRateWindow = time.Second

	defaultHistorySize = 200
)

// Limits are the constraints enforced by one flag.
//
// Zero values mean "use the default": Concurrency 1, Interval 0 (no spacing),
// Rate 0 (no rate limit), RateWindow 1s. Negative values are rejected.
type Limits struct {
	// Concurrency caps how many tasks carrying the flag run at once.
	Concurrency int
	// Interval is the minimum spacing between two starts.
	Interval time.Duration
	// Rate caps the starts within any trailing RateWindow. 0 disables it.
	Rate       int
	RateWindow time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.Concurrency == 0 {
		l.Concurrency = 1
	}
	if l.RateWindow == 0 {
		l.RateWindow = DefaultRateWindow
	}
	return l
}

// Validate applies defaults and checks bounds.
func (l Limits) Validate() (Limits, error) {
	l = l.withDefaults()
	if l.Concurrency < 1 {
		return Limits{}, invalidOption("concurrency option must be at least 1; got %d", l.Concurrency)
	}
	if l.Interval < 0 {
		return Limits{}, invalidOption("interval option must be at least 0; got %s", l.Interval)
	}
	if l.Rate < 0 {
		return Limits{}, invalidOption("rate option must be at least 0; got %d", l.Rate)
	}
	if l.RateWindow < 0 {
		return Limits{}, invalidOption("rateWindow option must be greater than 0; got %s", l.RateWindow)
	}
	return l, nil
}

func validFlagName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidOption("flag name must be a non-empty string")
	}
	return nil
}

// Option configures a Queue.
type Option func(*queueConfig)

type queueConfig struct {
	log         logx.Logger
	bus         eventbus.Bus
	historySize int
}

// WithLogger sets the queue logger. Defaults to logx.Nop().
func WithLogger(log logx.Logger) Option { return func(c *queueConfig) { c.log = log } }

// WithBus publishes lifecycle events on bus instead of a private one.
func WithBus(bus eventbus.Bus) Option { return func(c *queueConfig) { c.bus = bus } }

// WithHistorySize bounds the completed-item history kept for Snapshot.
// A negative size disables history.
func WithHistorySize(n int) Option { return func(c *queueConfig) { c.historySize = n } }

// Task is the unit of work. ctx is the queue's run context; it is canceled
// when the queue is closed.
type Task func(ctx context.Context) (any, error)

// SubmitOption configures one submission.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	priority int
	name     string
	flags    []string
}

// WithPriority sets the priority. Lower values are served first.
func WithPriority(p int) SubmitOption { return func(c *submitConfig) { c.priority = p } }

// WithName labels the item in events, logs and history.
func WithName(name string) SubmitOption { return func(c *submitConfig) { c.name = name } }

// WithFlags attaches registered flags to the item, in addition to the
// default flag. Duplicates are ignored.
func WithFlags(names ...string) SubmitOption {
	return func(c *submitConfig) { c.flags = append(c.flags, names...) }
}

func buildSubmitConfig(opts []SubmitOption) submitConfig {
	cfg := submitConfig{priority: DefaultPriority}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// dedupe keeps the first occurrence of each name.
func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
