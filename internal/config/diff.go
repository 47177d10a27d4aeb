package config

import (
	"reflect"
	"sort"

	logx "github.com/elsieclark/superqueue/pkg/logx"
)

// Change summarizes a reload. Logging, pause state and jobs are applied to a
// running daemon; limit changes need a restart.
type Change struct {
	Sections []string
	Fields   []logx.Field

	Logging bool
	// QueuePaused is set when queue.paused changed.
	QueuePaused *bool
	// FlagPaused holds flags whose paused value changed.
	FlagPaused map[string]bool
	// AddedFlags can be registered live; removed or changed ones cannot.
	AddedFlags []string
	Jobs       bool
	Debug      bool
	// Restart lists what changed but cannot be applied live.
	Restart []string
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// SummarizeChange compares two configs.
func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var c Change

	if oldCfg.Logging != newCfg.Logging {
		c.Logging = true
		c.Sections = append(c.Sections, "logging")
		c.Fields = append(c.Fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.alert_enabled", newCfg.Logging.Alert.Enabled),
		)
	}

	oq, nq := oldCfg.Queue, newCfg.Queue
	if oq.Paused != nq.Paused {
		p := nq.Paused
		c.QueuePaused = &p
		c.Fields = append(c.Fields, logx.Bool("queue.paused", p))
	}
	oq.Paused, nq.Paused = false, false
	if oq != nq {
		c.Restart = append(c.Restart, "queue")
	}
	if c.QueuePaused != nil || oq != nq {
		c.Sections = append(c.Sections, "queue")
	}

	oldFlags := flagsByName(oldCfg.Flags)
	newFlags := flagsByName(newCfg.Flags)
	flagsChanged := false
	for name, nf := range newFlags {
		of, ok := oldFlags[name]
		if !ok {
			c.AddedFlags = append(c.AddedFlags, name)
			flagsChanged = true
			continue
		}
		if of.Paused != nf.Paused {
			if c.FlagPaused == nil {
				c.FlagPaused = map[string]bool{}
			}
			c.FlagPaused[name] = nf.Paused
			flagsChanged = true
		}
		of.Paused, nf.Paused = false, false
		if of != nf {
			c.Restart = append(c.Restart, "flags."+name)
			flagsChanged = true
		}
	}
	for name := range oldFlags {
		if _, ok := newFlags[name]; !ok {
			c.Restart = append(c.Restart, "flags."+name)
			flagsChanged = true
		}
	}
	if flagsChanged {
		c.Sections = append(c.Sections, "flags")
		c.Fields = append(c.Fields, logx.Int("flags.count", len(newCfg.Flags)))
	}

	if !reflect.DeepEqual(oldCfg.Jobs, newCfg.Jobs) {
		c.Jobs = true
		c.Sections = append(c.Sections, "jobs")
		c.Fields = append(c.Fields, logx.Int("jobs.count", len(newCfg.Jobs)))
	}
	if oldCfg.Debug != newCfg.Debug {
		c.Debug = true
		c.Sections = append(c.Sections, "debug")
		c.Fields = append(c.Fields, logx.Bool("debug.enabled", newCfg.Debug.Enabled), logx.String("debug.addr", newCfg.Debug.Addr))
	}
	if oldCfg.Timezone != newCfg.Timezone {
		c.Sections = append(c.Sections, "timezone")
		c.Restart = append(c.Restart, "timezone")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		c.Sections = append(c.Sections, "storage")
		c.Restart = append(c.Restart, "storage")
	}

	sort.Strings(c.AddedFlags)
	sort.Strings(c.Restart)
	return c
}

func flagsByName(in []FlagConfig) map[string]FlagConfig {
	out := make(map[string]FlagConfig, len(in))
	for _, f := range in {
		out[f.Name] = f
	}
	return out
}
