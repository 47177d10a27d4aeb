package superqueue

import (
	"context"

	"github.com/elsieclark/superqueue/internal/runtime/supervisor"
	"github.com/elsieclark/superqueue/pkg/eventbus"
	logx "github.com/elsieclark/superqueue/pkg/logx"
)

// Queue is the public handle to one scheduler. All methods are safe for
// concurrent use; each is a round trip to the owner goroutine.
type Queue struct {
	log  logx.Logger
	bus  eventbus.Bus
	sup  *supervisor.Supervisor
	cmds chan command
	done chan struct{}
}

// New starts a queue whose default flag enforces limits. The queue stops
// when ctx is canceled or Close is called.
func New(ctx context.Context, limits Limits, opts ...Option) (*Queue, error) {
	limits, err := limits.Validate()
	if err != nil {
		return nil, err
	}
	cfg := queueConfig{historySize: defaultHistorySize}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.log.IsZero() {
		cfg.log = logx.Nop()
	}
	cfg.log = cfg.log.With(logx.String("comp", "superqueue"))
	if cfg.bus == nil {
		cfg.bus = eventbus.New()
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(cfg.log))
	q := &Queue{
		log:  cfg.log,
		bus:  cfg.bus,
		sup:  sup,
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	s := newScheduler(limits, cfg, sup)
	sup.Go("superqueue.loop", func(ctx context.Context) error {
		return s.run(ctx, q.cmds, q.done)
	})
	return q, nil
}

// NewWithConcurrency is New with only the default flag's concurrency set.
func NewWithConcurrency(ctx context.Context, n int, opts ...Option) (*Queue, error) {
	if n < 1 {
		return nil, invalidOption("concurrency option must be at least 1; got %d", n)
	}
	return New(ctx, Limits{Concurrency: n}, opts...)
}

// do runs fn on the owner goroutine and waits for it to return.
func (q *Queue) do(fn command) error {
	reply := make(chan struct{})
	wrapped := func(s *scheduler) {
		defer close(reply)
		fn(s)
	}
	select {
	case q.cmds <- wrapped:
	case <-q.done:
		return ErrClosed
	}
	select {
	case <-reply:
		return nil
	case <-q.done:
		return ErrClosed
	}
}

// RegisterFlag adds a named flag. Names are unique for the queue's lifetime.
func (q *Queue) RegisterFlag(name string, limits Limits) error {
	if err := validFlagName(name); err != nil {
		return err
	}
	limits, err := limits.Validate()
	if err != nil {
		return err
	}
	var regErr error
	if err := q.do(func(s *scheduler) { regErr = s.registerFlag(name, limits) }); err != nil {
		return err
	}
	return regErr
}

// Submit queues task. Every flag named by WithFlags must already be
// registered; nothing is queued when an error is returned.
func (q *Queue) Submit(task Task, opts ...SubmitOption) (*Handle, error) {
	if task == nil {
		return nil, ErrMissingTask
	}
	cfg := buildSubmitConfig(opts)
	names := dedupe(cfg.flags)
	for _, n := range names {
		if err := validFlagName(n); err != nil {
			return nil, err
		}
	}
	var (
		h      *Handle
		subErr error
	)
	if err := q.do(func(s *scheduler) { h, subErr = s.submit(cfg, names, task) }); err != nil {
		return nil, err
	}
	return h, subErr
}

// Pause stops the default flag (and so the whole queue) from admitting
// work. It reports whether the state changed.
func (q *Queue) Pause() bool {
	var changed bool
	_ = q.do(func(s *scheduler) { changed = s.setPaused(defaultFlagID, true) })
	return changed
}

// Unpause resumes the default flag and dispatches whatever is now eligible.
func (q *Queue) Unpause() bool {
	var changed bool
	_ = q.do(func(s *scheduler) { changed = s.setPaused(defaultFlagID, false) })
	return changed
}

func (q *Queue) PauseFlag(name string) (bool, error) { return q.pauseFlag(name, true) }

func (q *Queue) UnpauseFlag(name string) (bool, error) { return q.pauseFlag(name, false) }

func (q *Queue) pauseFlag(name string, paused bool) (bool, error) {
	var (
		changed bool
		ferr    error
	)
	err := q.do(func(s *scheduler) {
		if _, ferr = s.lookup(name); ferr != nil {
			return
		}
		changed = s.setPaused(namedFlag(name), paused)
	})
	if err != nil {
		return false, err
	}
	return changed, ferr
}

// PendingCount is the number of queued items. Zero once closed.
func (q *Queue) PendingCount() int {
	var n int
	_ = q.do(func(s *scheduler) { n = s.flags[defaultFlagID].pending })
	return n
}

// ConcurrentCount is the number of running items.
func (q *Queue) ConcurrentCount() int {
	var n int
	_ = q.do(func(s *scheduler) { n = s.flags[defaultFlagID].concurrent })
	return n
}

func (q *Queue) FlagPendingCount(name string) (int, error) {
	return q.flagCount(name, func(f *flag) int { return f.pending })
}

func (q *Queue) FlagConcurrentCount(name string) (int, error) {
	return q.flagCount(name, func(f *flag) int { return f.concurrent })
}

func (q *Queue) flagCount(name string, get func(*flag) int) (int, error) {
	var (
		n    int
		ferr error
	)
	err := q.do(func(s *scheduler) {
		var f *flag
		if f, ferr = s.lookup(name); ferr == nil {
			n = get(f)
		}
	})
	if err != nil {
		return 0, err
	}
	return n, ferr
}

// Subscribe returns the queue's lifecycle events. Slow subscribers drop
// events rather than stall the scheduler.
func (q *Queue) Subscribe(buffer int) (<-chan eventbus.Event, func()) {
	return q.bus.Subscribe(buffer, eventPrefix)
}

// Close stops the loop, settles pending items with ErrClosed and waits for
// running tasks (whose ctx is canceled) until ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.sup.Cancel()
	return q.sup.Wait(ctx)
}

// Done is closed once the queue has stopped serving calls.
func (q *Queue) Done() <-chan struct{} { return q.done }
