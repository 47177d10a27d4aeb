package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/elsieclark/superqueue/internal/config"
	"github.com/elsieclark/superqueue/internal/observability/debugserver"
	"github.com/elsieclark/superqueue/internal/runner"
	"github.com/elsieclark/superqueue/internal/runtime/supervisor"
	"github.com/elsieclark/superqueue/internal/storage"
	"github.com/elsieclark/superqueue/internal/trigger"
	"github.com/elsieclark/superqueue/pkg/eventbus"
	logx "github.com/elsieclark/superqueue/pkg/logx"
	"github.com/elsieclark/superqueue/pkg/superqueue"
)

// App is the superqueue daemon: one queue fed by scheduled jobs, with run
// history and live config reload.
type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	units *runner.Units

	queue *superqueue.Queue
	trig  *trigger.Service
	jobs  map[string]config.JobConfig
	debug *debugserver.Service
}

// New loads and validates the config, sets up logging and opens storage.
// Nothing runs until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := Check(cfg); err != nil {
		return nil, err
	}
	// transactional reload: a config that fails Check is never committed
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return Check(cfg) })

	logSvc, log := logx.New(cfg.Logging.Logx())
	log = log.With(logx.String("comp", "app"))

	var store storage.Store
	if sc, enabled, err := MapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger())
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   eventbus.New(),
		store: store,
		units: runner.NewUnits(logSvc.Logger().With(logx.String("comp", "units"))),
		jobs:  map[string]config.JobConfig{},
	}, nil
}

// Queue is nil before Start.
func (a *App) Queue() *superqueue.Queue { return a.queue }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Trigger runs job name now, outside its schedule.
func (a *App) Trigger(name string) (*superqueue.Handle, error) {
	if a.trig == nil {
		return nil, errors.New("app not started")
	}
	return a.trig.Trigger(name)
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	if err := a.startQueue(cfg); err != nil {
		return err
	}
	a.trig = trigger.New(a.queue,
		trigger.WithLocation(cfg.Location()),
		trigger.WithLogger(a.logs.Logger().With(logx.String("comp", "trigger"))),
	)
	if err := a.syncJobs(cfg); err != nil {
		return err
	}

	if a.store != nil {
		events, unsub := a.queue.Subscribe(256)
		a.sup.Go("history.record", func(c context.Context) error {
			defer unsub()
			return recordRuns(c, a.log.With(logx.String("comp", "history")), a.store, events)
		})
	}

	a.cfgm.SetLogger(a.logs.Logger().With(logx.String("comp", "config")))
	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.trig.Start()

	a.debug = debugserver.New(debugConfig(cfg.Debug), a.logs.Logger().With(logx.String("comp", "debug")), a.endpoints())
	a.debug.Start(a.sup.Context())

	if a.sdNotify(daemon.SdNotifyReady) {
		a.sup.Go("systemd.notify", a.notifyLoop)
	}
	a.log.Info("app started",
		logx.Int("flags", len(cfg.Flags)),
		logx.Int("jobs", len(cfg.Jobs)),
		logx.Bool("paused", cfg.Queue.Paused),
	)
	return nil
}

// startQueue creates the queue, registers flags and applies paused state.
func (a *App) startQueue(cfg *config.Config) error {
	lim, err := cfg.Queue.Limits()
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	q, err := superqueue.New(a.sup.Context(), lim,
		superqueue.WithLogger(a.logs.Logger()),
		superqueue.WithBus(a.bus),
		superqueue.WithHistorySize(cfg.Queue.HistorySize),
	)
	if err != nil {
		return err
	}
	a.queue = q

	for _, fc := range cfg.Flags {
		if err := a.registerFlag(fc); err != nil {
			return err
		}
	}
	if cfg.Queue.Paused {
		q.Pause()
	}
	return nil
}

func (a *App) registerFlag(fc config.FlagConfig) error {
	fl, err := fc.Limits()
	if err != nil {
		return fmt.Errorf("flags.%s: %w", fc.Name, err)
	}
	name := strings.TrimSpace(fc.Name)
	if err := a.queue.RegisterFlag(name, fl); err != nil {
		return err
	}
	if fc.Paused {
		if _, err := a.queue.PauseFlag(name); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) buildJob(jc config.JobConfig) trigger.Job {
	var run superqueue.Task
	if strings.TrimSpace(jc.Unit) != "" {
		run = a.units.Task(jc.Unit, jc.UnitAction())
	} else {
		run = runner.Command(jc.Command, jc.Dir)
	}
	flags := make([]string, 0, len(jc.Flags))
	for _, f := range jc.Flags {
		flags = append(flags, strings.TrimSpace(f))
	}
	return trigger.Job{
		Name:        strings.TrimSpace(jc.Name),
		Schedule:    jc.Schedule,
		Priority:    jc.PriorityOr(superqueue.DefaultPriority),
		Flags:       flags,
		Timeout:     jc.TimeoutDuration(),
		SkipOverlap: jc.SkipOverlap(),
		Run:         run,
	}
}

// syncJobs makes the trigger set match cfg.Jobs. Unchanged jobs keep their
// schedule and counters.
func (a *App) syncJobs(cfg *config.Config) error {
	next := make(map[string]config.JobConfig, len(cfg.Jobs))
	var errs []error
	for _, jc := range cfg.Jobs {
		name := strings.TrimSpace(jc.Name)
		if prev, ok := a.jobs[name]; ok && reflect.DeepEqual(prev, jc) {
			next[name] = jc
			continue
		}
		if err := a.trig.Add(a.buildJob(jc)); err != nil {
			errs = append(errs, err)
			continue
		}
		next[name] = jc
	}
	for name := range a.jobs {
		if _, ok := next[name]; !ok {
			a.trig.Remove(name)
			a.log.Info("job removed", logx.String("job", name))
		}
	}
	a.jobs = next
	return errors.Join(errs...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sdNotify(daemon.SdNotifyStopping)

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	}

	step("debug", time.Second, func(c context.Context) error {
		if a.debug != nil {
			a.debug.Stop(c)
		}
		return nil
	})
	step("triggers", 2*time.Second, func(c context.Context) error {
		if a.trig != nil {
			a.trig.Stop(c)
		}
		return nil
	})
	// Pending items settle with ErrClosed; running tasks see ctx canceled.
	step("queue", 5*time.Second, func(c context.Context) error {
		if a.queue != nil {
			return a.queue.Close(c)
		}
		return nil
	})

	a.sup.Cancel()
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("units", time.Second, func(context.Context) error { return a.units.Close() })
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
