package superqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/elsieclark/superqueue/internal/runtime/supervisor"
	"github.com/elsieclark/superqueue/pkg/eventbus"
	logx "github.com/elsieclark/superqueue/pkg/logx"
)

// command runs on the owner goroutine with exclusive access to the state.
type command func(s *scheduler)

// completion is how a task goroutine hands its outcome back to the owner.
type completion struct {
	item     *item
	result   any
	err      error
	finished time.Time
}

// scheduler is the state owned by one Queue's loop goroutine. Nothing here is
// safe to touch from any other goroutine.
type scheduler struct {
	log logx.Logger
	bus eventbus.Bus
	sup *supervisor.Supervisor

	flags    map[flagID]*flag
	queue    admissionQueue
	timer    wakeTimer
	inflight map[string]*item

	history     []HistoryItem
	historySize int

	completions chan completion
	seq         uint64
}

func newScheduler(limits Limits, cfg queueConfig, sup *supervisor.Supervisor) *scheduler {
	s := &scheduler{
		log:         cfg.log,
		bus:         cfg.bus,
		sup:         sup,
		flags:       map[flagID]*flag{defaultFlagID: newFlag(defaultFlagID, limits)},
		inflight:    map[string]*item{},
		historySize: cfg.historySize,
		completions: make(chan completion),
	}
	return s
}

// run is the owner loop. done is closed once no command will be served again.
func (s *scheduler) run(ctx context.Context, cmds <-chan command, done chan<- struct{}) error {
	defer close(done)
	defer s.shutdown()

	s.log.Debug("loop started")
	for {
		select {
		case <-ctx.Done():
			// deadline or cancel of the owning context is a normal stop
			return nil
		case cmd := <-cmds:
			cmd(s)
		case c := <-s.completions:
			s.finish(c)
		case <-s.timer.C():
			s.tick()
		}
	}
}

// shutdown settles every pending item. Running tasks settle their own
// handles once the loop stops reading completions.
func (s *scheduler) shutdown() {
	s.timer.stop()
	items := s.queue.drain()
	for _, it := range items {
		for _, id := range it.flags {
			if f := s.flags[id]; f != nil && f.pending > 0 {
				f.pending--
			}
		}
		it.handle.resolve(nil, ErrClosed)
	}
	s.log.Debug("loop stopped", logx.Int("dropped", len(items)), logx.Int("running", len(s.inflight)))
}

func (s *scheduler) registerFlag(name string, limits Limits) error {
	id := namedFlag(name)
	if _, ok := s.flags[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateFlag, name)
	}
	s.flags[id] = newFlag(id, limits)
	s.log.Info("flag registered",
		logx.String("flag", name),
		logx.Int("concurrency", limits.Concurrency),
		logx.Duration("interval", limits.Interval),
		logx.Int("rate", limits.Rate),
		logx.Duration("rate_window", limits.RateWindow),
	)
	return nil
}

func (s *scheduler) lookup(name string) (*flag, error) {
	f, ok := s.flags[namedFlag(name)]
	if !ok {
		return nil, unknownFlag(name)
	}
	return f, nil
}

func (s *scheduler) submit(cfg submitConfig, names []string, task Task) (*Handle, error) {
	ids := make([]flagID, 0, len(names)+1)
	ids = append(ids, defaultFlagID)
	for _, n := range names {
		if _, err := s.lookup(n); err != nil {
			return nil, err
		}
		ids = append(ids, namedFlag(n))
	}

	now := time.Now()
	s.seq++
	id := fmt.Sprintf("itm-%x-%x", now.UnixNano(), s.seq)
	it := &item{
		id:          id,
		priority:    cfg.priority,
		name:        cfg.name,
		flags:       ids,
		task:        task,
		submittedAt: now,
		handle:      newHandle(id),
	}
	for _, fid := range ids {
		s.flags[fid].pending++
	}
	s.queue.insert(it)
	s.log.Debug("item.queued", logx.String("id", id), logx.String("item", it.name), logx.Int("priority", it.priority), logx.Strings("flags", names), logx.Int("pending", s.queue.len()))
	s.tick()
	return it.handle, nil
}

func (s *scheduler) setPaused(id flagID, paused bool) bool {
	f := s.flags[id]
	if !f.setPaused(paused) {
		return false
	}
	if paused {
		s.log.Info("flag paused", logx.String("flag", id.String()))
		return true
	}
	s.log.Info("flag unpaused", logx.String("flag", id.String()))
	s.tick()
	return true
}

func (s *scheduler) recordHistory(h HistoryItem) {
	if s.historySize < 0 {
		return
	}
	size := s.historySize
	if size == 0 {
		size = defaultHistorySize
	}
	s.history = append(s.history, h)
	if len(s.history) > size {
		s.history = s.history[len(s.history)-size:]
	}
}
