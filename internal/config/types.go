package config

// Config is the daemon configuration file (JSON or YAML).
//
// Durations are Go duration strings ("250ms", "5s", "1m").
type Config struct {
	Logging LoggingConfig  `json:"logging"`
	Queue   QueueConfig    `json:"queue"`
	Flags   []FlagConfig   `json:"flags,omitempty"`
	Jobs    []JobConfig    `json:"jobs,omitempty"`
	Storage *StorageConfig `json:"storage,omitempty"`
	Debug   DebugConfig    `json:"debug"`

	// Timezone for cron schedules; empty means local time.
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string       `json:"level"`
	Console bool         `json:"console"`
	File    LoggingFile  `json:"file"`
	Alert   LoggingAlert `json:"alert"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingAlert mirrors warn+ lines to stderr, throttled.
type LoggingAlert struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// QueueConfig configures the default flag every item carries.
//
// Defaults (when fields are omitted/zero):
//   - concurrency: 1
//   - interval: "0s" (no spacing)
//   - rate: 0 (disabled)
//   - rate_window: "1s"
//   - history_size: 200
type QueueConfig struct {
	Concurrency int    `json:"concurrency"`
	Interval    string `json:"interval,omitempty"`
	Rate        int    `json:"rate,omitempty"`
	RateWindow  string `json:"rate_window,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
	Paused      bool   `json:"paused,omitempty"`
}

// FlagConfig registers one named flag.
type FlagConfig struct {
	Name        string `json:"name"`
	Concurrency int    `json:"concurrency"`
	Interval    string `json:"interval,omitempty"`
	Rate        int    `json:"rate,omitempty"`
	RateWindow  string `json:"rate_window,omitempty"`
	Paused      bool   `json:"paused,omitempty"`
}

// JobConfig is work submitted into the queue on a schedule: either a
// command or a systemd unit action.
//
// Schedule accepts a cron expression ("*/5 * * * *", "@every 30s"), an
// interval as a Go duration ("30s") or "HH:MM" ("02:30" is every 2h30m),
// or the "cron:"/"interval:" prefixed forms.
type JobConfig struct {
	Name     string   `json:"name"`
	Schedule string   `json:"schedule"`
	Command  []string `json:"command,omitempty"`
	Dir      string   `json:"dir,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	Flags    []string `json:"flags,omitempty"`
	Timeout  string   `json:"timeout,omitempty"`

	// Unit is a systemd unit ("nginx" means "nginx.service").
	Unit string `json:"unit,omitempty"`
	// Action is start, stop or restart (default).
	Action string `json:"action,omitempty"`

	// Overlap is "allow" or "skip" (default). skip drops a trigger while the
	// previous run of the job is still pending or running.
	Overlap string `json:"overlap,omitempty"`
}

// StorageConfig controls where finished runs are recorded.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./superqueue.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	// Keep bounds retained runs; 0 uses the store default.
	Keep int `json:"keep,omitempty"`
}

// DebugConfig serves JSON views of the queue, jobs and runs, plus optional
// pprof. Non-loopback addresses need a token or allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"` // default 127.0.0.1:6060
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}
