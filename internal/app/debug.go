package app

import (
	"context"

	"github.com/elsieclark/superqueue/internal/config"
	"github.com/elsieclark/superqueue/internal/observability/debugserver"
	"github.com/elsieclark/superqueue/internal/storage"
)

const debugRuns = 50

func debugConfig(c config.DebugConfig) debugserver.Config {
	return debugserver.Config{
		Enabled:       c.Enabled,
		Addr:          c.Addr,
		Token:         c.Token,
		AllowInsecure: c.AllowInsecure,
		Pprof:         c.Pprof,
	}
}

func (a *App) endpoints() map[string]debugserver.Endpoint {
	eps := map[string]debugserver.Endpoint{
		"/queue":      func(context.Context) (any, error) { return a.queue.Snapshot(), nil },
		"/jobs":       func(context.Context) (any, error) { return a.trig.Jobs(), nil },
		"/goroutines": a.goroutines,
	}
	if a.store != nil {
		eps["/runs"] = func(ctx context.Context) (any, error) {
			runs, err := a.store.RecentRuns(ctx, debugRuns)
			if runs == nil {
				runs = []storage.Run{}
			}
			return runs, err
		}
	}
	return eps
}

func (a *App) goroutines(context.Context) (any, error) {
	return map[string]any{"counters": a.sup.Counters(), "goroutines": a.sup.Stats()}, nil
}
