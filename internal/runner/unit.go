package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by unit tasks on systems without systemd D-Bus.
var ErrUnsupported = errors.New("systemd units: unsupported OS (linux only)")

// UnitName appends ".service" when name has no unit suffix.
func UnitName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

func checkAction(action string) error {
	switch action {
	case "start", "stop", "restart":
		return nil
	default:
		return fmt.Errorf("unknown unit action %q", action)
	}
}
