package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/elsieclark/superqueue/internal/config"
	"github.com/elsieclark/superqueue/internal/storage"
)

// MapStorageConfig converts the storage section; enabled is false when no
// driver is configured.
func MapStorageConfig(cfg *config.Config) (sc storage.Config, enabled bool, err error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	s := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(s.Path)

	switch driver {
	case "file":
		if path == "" {
			path = "./superqueue"
		}
		return storage.Config{Driver: "file", Path: path, Keep: s.Keep}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", s.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, Keep: s.Keep}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", s.Driver)
	}
}
