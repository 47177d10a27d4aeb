package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	logx "github.com/elsieclark/superqueue/pkg/logx"
	"github.com/elsieclark/superqueue/pkg/superqueue"
)

const (
	OverlapAllow = "allow"
	OverlapSkip  = "skip"
)

// Validate checks every section and returns all problems joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" && !logx.ValidLevel(lv) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lv))
	}
	if lv := strings.TrimSpace(cfg.Logging.Alert.MinLevel); lv != "" && !logx.ValidLevel(lv) {
		errs = append(errs, fmt.Errorf("logging.alert.min_level: unknown level %q", lv))
	}
	if cfg.Logging.Alert.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.alert.rate_per_sec: must be >= 0"))
	}

	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("timezone: invalid %q: %w", tz, err))
		}
	}

	if _, err := cfg.Queue.Limits(); err != nil {
		errs = append(errs, fmt.Errorf("queue: %w", err))
	}
	if cfg.Queue.HistorySize < 0 {
		errs = append(errs, errors.New("queue.history_size: must be >= 0"))
	}

	flags := map[string]bool{}
	for i, f := range cfg.Flags {
		path := fmt.Sprintf("flags[%d]", i)
		name := strings.TrimSpace(f.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("%s.name: required", path))
			continue
		}
		if flags[name] {
			errs = append(errs, fmt.Errorf("%s.name: duplicate flag %q", path, name))
			continue
		}
		flags[name] = true
		if _, err := f.Limits(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}

	jobs := map[string]bool{}
	for i, j := range cfg.Jobs {
		path := fmt.Sprintf("jobs[%d]", i)
		name := strings.TrimSpace(j.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s.name: required", path))
		case jobs[name]:
			errs = append(errs, fmt.Errorf("%s.name: duplicate job %q", path, name))
		default:
			jobs[name] = true
		}
		if strings.TrimSpace(j.Schedule) == "" {
			errs = append(errs, fmt.Errorf("%s.schedule: required", path))
		}
		hasCmd := len(j.Command) > 0 && strings.TrimSpace(j.Command[0]) != ""
		hasUnit := strings.TrimSpace(j.Unit) != ""
		switch {
		case hasCmd && hasUnit:
			errs = append(errs, fmt.Errorf("%s: command and unit are mutually exclusive", path))
		case !hasCmd && !hasUnit:
			errs = append(errs, fmt.Errorf("%s.command: required", path))
		case hasUnit:
			switch strings.ToLower(strings.TrimSpace(j.Action)) {
			case "", "start", "stop", "restart":
			default:
				errs = append(errs, fmt.Errorf("%s.action: must be start, stop or restart", path))
			}
		}
		for _, fl := range j.Flags {
			if !flags[strings.TrimSpace(fl)] {
				errs = append(errs, fmt.Errorf("%s.flags: unknown flag %q", path, fl))
			}
		}
		if _, err := ParseDurationField(path+".timeout", j.Timeout); err != nil {
			errs = append(errs, err)
		}
		switch strings.ToLower(strings.TrimSpace(j.Overlap)) {
		case "", OverlapAllow, OverlapSkip:
		default:
			errs = append(errs, fmt.Errorf("%s.overlap: must be %q or %q", path, OverlapAllow, OverlapSkip))
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
		if s.Keep < 0 {
			errs = append(errs, fmt.Errorf("storage.keep: must be >= 0"))
		}
	}
	if addr := strings.TrimSpace(cfg.Debug.Addr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("debug.addr: %w", err))
		}
	}
	return errors.Join(errs...)
}

func limits(path string, concurrency int, interval string, rate int, window string) (superqueue.Limits, error) {
	iv, err := ParseDurationField(path+".interval", interval)
	if err != nil {
		return superqueue.Limits{}, err
	}
	rw, err := ParseDurationField(path+".rate_window", window)
	if err != nil {
		return superqueue.Limits{}, err
	}
	return superqueue.Limits{Concurrency: concurrency, Interval: iv, Rate: rate, RateWindow: rw}.Validate()
}

// Limits converts the queue section into the default flag's limits.
func (q QueueConfig) Limits() (superqueue.Limits, error) {
	return limits("queue", q.Concurrency, q.Interval, q.Rate, q.RateWindow)
}

func (f FlagConfig) Limits() (superqueue.Limits, error) {
	return limits("flags."+f.Name, f.Concurrency, f.Interval, f.Rate, f.RateWindow)
}

// Logx maps the logging section onto the logging service config.
func (l LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Alert: logx.AlertConfig{
			Enabled:    l.Alert.Enabled,
			MinLevel:   l.Alert.MinLevel,
			RatePerSec: l.Alert.RatePerSec,
		},
	}
}

// PriorityOr returns the job priority, or def when unset.
func (j JobConfig) PriorityOr(def int) int {
	if j.Priority == nil {
		return def
	}
	return *j.Priority
}

// TimeoutDuration is the per-run timeout; 0 means none.
func (j JobConfig) TimeoutDuration() time.Duration {
	d, _ := ParseDurationField("timeout", j.Timeout)
	return d
}

// Location resolves Timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.Local
}

// UnitAction is the normalized systemd action.
func (j JobConfig) UnitAction() string {
	if a := strings.ToLower(strings.TrimSpace(j.Action)); a != "" {
		return a
	}
	return "restart"
}

// SkipOverlap reports whether overlapping triggers are dropped.
func (j JobConfig) SkipOverlap() bool {
	return !strings.EqualFold(strings.TrimSpace(j.Overlap), OverlapAllow)
}
