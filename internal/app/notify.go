package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "github.com/elsieclark/superqueue/pkg/logx"
)

const statusEvery = 15 * time.Second

func (a *App) sdNotify(state string) bool {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
	return ok
}

func (a *App) statusLine() string {
	return fmt.Sprintf("pending=%d running=%d jobs=%d",
		a.queue.PendingCount(), a.queue.ConcurrentCount(), len(a.trig.Jobs()))
}

// notifyLoop keeps the unit status current and pings the watchdog when
// WatchdogSec is set. It only runs under a notify-type unit.
func (a *App) notifyLoop(ctx context.Context) error {
	status := time.NewTicker(statusEvery)
	defer status.Stop()

	var watchdog <-chan time.Time
	if wd, err := daemon.SdWatchdogEnabled(false); err != nil {
		a.log.Warn("watchdog config invalid", logx.Err(err))
	} else if wd > 0 {
		t := time.NewTicker(wd / 2)
		defer t.Stop()
		watchdog = t.C
		a.log.Debug("watchdog enabled", logx.Duration("interval", wd))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-status.C:
			a.sdNotify("STATUS=" + a.statusLine())
		case <-watchdog:
			a.sdNotify(daemon.SdNotifyWatchdog)
		}
	}
}
