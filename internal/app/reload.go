package app

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/elsieclark/superqueue/internal/config"
	logx "github.com/elsieclark/superqueue/pkg/logx"
)

// reloadLoop applies published configs until ctx ends.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// applyConfig applies what can change live and warns about the rest.
func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	c := config.SummarizeChange(oldCfg, newCfg)
	if c.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.log.Debug("config change summary", append([]logx.Field{logx.String("changed", strings.Join(c.Sections, ","))}, c.Fields...)...)

	if c.Logging {
		a.logs.Apply(newCfg.Logging.Logx())
	}

	for _, fc := range newCfg.Flags {
		if !slices.Contains(c.AddedFlags, fc.Name) {
			continue
		}
		if err := a.registerFlag(fc); err != nil {
			a.log.Warn("flag not registered", logx.String("flag", fc.Name), logx.Err(err))
		}
	}

	if c.QueuePaused != nil {
		if *c.QueuePaused {
			a.queue.Pause()
		} else {
			a.queue.Unpause()
		}
	}

	names := make([]string, 0, len(c.FlagPaused))
	for name := range c.FlagPaused {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var err error
		if c.FlagPaused[name] {
			_, err = a.queue.PauseFlag(name)
		} else {
			_, err = a.queue.UnpauseFlag(name)
		}
		if err != nil {
			a.log.Warn("flag pause not applied", logx.String("flag", name), logx.Err(err))
		}
	}

	if c.Jobs {
		if err := a.syncJobs(newCfg); err != nil {
			a.log.Warn("jobs partially applied", logx.Err(err))
		}
	}

	if c.Debug {
		a.debug.Reconfigure(ctx, debugConfig(newCfg.Debug))
	}

	if len(c.Restart) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.Strings("sections", c.Restart))
	}
	a.log.Info("config reloaded", logx.String("changed", strings.Join(c.Sections, ",")))
}
