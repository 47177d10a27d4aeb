package superqueue

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/elsieclark/superqueue/pkg/eventbus"
	logx "github.com/elsieclark/superqueue/pkg/logx"
)

// slowItem is the duration above which a completion is logged at info.
const slowItem = 750 * time.Millisecond

// tick starts every item that is eligible right now and arms the wake timer
// for the next moment a pending item can become eligible.
func (s *scheduler) tick() {
	s.timer.stop()
	if s.queue.isEmpty() {
		return
	}

	now := time.Now()
	unlock := make(map[flagID]time.Time, len(s.flags))
	for id, f := range s.flags {
		unlock[id] = f.unlockTime()
	}

	// Nothing can start while the default flag is blocked.
	if at := unlock[defaultFlagID]; at.After(now) {
		s.timer.arm(at.Sub(now))
		return
	}

	for _, it := range s.queue.snapshot() {
		if !eligible(it, unlock, now) {
			continue
		}
		s.queue.remove(it)
		s.dispatch(it, now)
		for _, id := range it.flags {
			unlock[id] = s.flags[id].unlockTime()
		}
		if s.queue.isEmpty() {
			s.log.Debug("queue.empty", logx.Int("running", len(s.inflight)))
			s.bus.Publish(eventbus.Event{Type: EventEmpty, Time: now, Data: EmptyEvent{Time: now}})
			return
		}
		if unlock[defaultFlagID].After(now) {
			break
		}
	}

	s.timer.arm(clampWake(s.nextStart(unlock).Sub(now)))
}

func eligible(it *item, unlock map[flagID]time.Time, now time.Time) bool {
	for _, id := range it.flags {
		if unlock[id].After(now) {
			return false
		}
	}
	return true
}

// nextStart is the earliest instant any pending item could start: for each
// item the latest unlock among its flags, minimized over items. Flags no
// pending item references never hold the timer.
func (s *scheduler) nextStart(unlock map[flagID]time.Time) time.Time {
	next := never
	for _, it := range s.queue.items {
		var at time.Time
		for _, id := range it.flags {
			if u := unlock[id]; u.After(at) {
				at = u
			}
		}
		if at.Before(next) {
			next = at
		}
	}
	return next
}

// dispatch starts it. The caller has already removed it from the queue.
func (s *scheduler) dispatch(it *item, now time.Time) {
	names := it.namedFlags()
	s.bus.Publish(eventbus.Event{Type: EventStart, Time: now, Data: StartEvent{ID: it.id, Name: it.name, Flags: names, Time: now}})
	for _, id := range it.flags {
		s.flags[id].onStart(now)
	}
	it.startedAt = now
	s.inflight[it.id] = it
	s.log.Debug("item.started", logx.String("id", it.id), logx.String("item", it.name), logx.Strings("flags", names), logx.Duration("queue_delay", now.Sub(it.submittedAt)))

	s.sup.Go("superqueue.item", func(ctx context.Context) error {
		res, err := runTask(ctx, it.task)
		c := completion{item: it, result: res, err: err, finished: time.Now()}
		select {
		case s.completions <- c:
		case <-ctx.Done():
			// The loop is gone; settle the caller directly.
			it.handle.resolve(res, err)
		}
		return nil
	})
}

// runTask invokes task, converting a panic into a *PanicError.
func runTask(ctx context.Context, task Task) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return task(ctx)
}

// finish is the completion half of dispatch; it always ends with a tick.
func (s *scheduler) finish(c completion) {
	it := c.item
	delete(s.inflight, it.id)
	for _, id := range it.flags {
		s.flags[id].onFinish()
	}
	it.handle.resolve(c.result, c.err)

	dur := c.finished.Sub(it.startedAt)
	queueDelay := it.startedAt.Sub(it.submittedAt)
	names := it.namedFlags()
	ev := CompleteEvent{
		ID:         it.id,
		Name:       it.name,
		Flags:      names,
		OK:         c.err == nil,
		Result:     c.result,
		Err:        c.err,
		Started:    it.startedAt,
		QueueDelay: queueDelay,
		Duration:   dur,
	}
	hist := HistoryItem{
		ID:         it.id,
		Name:       it.name,
		Flags:      names,
		OK:         c.err == nil,
		Started:    it.startedAt,
		QueueDelay: queueDelay,
		Duration:   dur,
	}
	if c.err != nil {
		ev.Error = c.err.Error()
		hist.Error = ev.Error
		fields := []logx.Field{logx.String("id", it.id), logx.String("item", it.name), logx.Err(c.err), logx.Duration("queue_delay", queueDelay), logx.Duration("dur", dur)}
		if pe, ok := c.err.(*PanicError); ok {
			fields = append(fields, logx.Stack(pe.Stack))
		}
		s.log.Warn("item.failed", fields...)
	} else if dur >= slowItem {
		s.log.Info("item.completed", logx.String("id", it.id), logx.String("item", it.name), logx.Duration("queue_delay", queueDelay), logx.Duration("dur", dur))
	} else {
		s.log.Debug("item.completed", logx.String("id", it.id), logx.String("item", it.name), logx.Duration("queue_delay", queueDelay), logx.Duration("dur", dur))
	}
	s.recordHistory(hist)
	s.bus.Publish(eventbus.Event{Type: EventComplete, Time: c.finished, Data: ev})

	s.tick()
}
