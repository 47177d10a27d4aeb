package app

import (
	"errors"
	"fmt"

	"github.com/elsieclark/superqueue/internal/config"
	"github.com/elsieclark/superqueue/internal/trigger"
)

// Check runs the checks config.Validate cannot do on its own: schedules
// and storage mapping.
func Check(cfg *config.Config) error {
	var errs []error
	for i, j := range cfg.Jobs {
		if err := trigger.Validate(j.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d].schedule: %w", i, err))
		}
	}
	if _, _, err := MapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
