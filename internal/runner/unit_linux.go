//go:build linux

package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"

	logx "github.com/elsieclark/superqueue/pkg/logx"
	"github.com/elsieclark/superqueue/pkg/superqueue"
)

// Units runs systemd unit actions over one shared D-Bus connection, opened
// on first use so configs without unit jobs never touch the bus.
type Units struct {
	log logx.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

func NewUnits(log logx.Logger) *Units {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Units{log: log}
}

func (u *Units) connect(ctx context.Context) (*dbus.Conn, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn != nil && u.conn.Connected() {
		return u.conn, nil
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	u.conn = conn
	u.log.Debug("systemd connected")
	return conn, nil
}

// Task returns a task applying action to unit and waiting for the job
// systemd queues for it.
func (u *Units) Task(unit, action string) superqueue.Task {
	unit = UnitName(unit)
	return func(ctx context.Context) (any, error) {
		if err := checkAction(action); err != nil {
			return nil, err
		}
		conn, err := u.connect(ctx)
		if err != nil {
			return nil, err
		}
		ch := make(chan string, 1)
		switch action {
		case "start":
			_, err = conn.StartUnitContext(ctx, unit, "replace", ch)
		case "stop":
			_, err = conn.StopUnitContext(ctx, unit, "replace", ch)
		default:
			_, err = conn.RestartUnitContext(ctx, unit, "replace", ch)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to %s %s: %w", action, unit, err)
		}
		select {
		case res := <-ch:
			if res != "done" {
				return res, fmt.Errorf("%s %s: job %s", action, unit, res)
			}
			return res, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (u *Units) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn != nil {
		u.conn.Close()
		u.conn = nil
	}
	return nil
}
