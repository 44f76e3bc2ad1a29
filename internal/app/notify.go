package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "kron/pkg/logx"
)

// sdNotify reports state to systemd. Outside a notify-type unit it is a no-op.
func (a *App) sdNotify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Warn("systemd notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("systemd notified", logx.String("state", state))
	}
}

// watchdog pings systemd at half the configured WatchdogSec while the
// scheduler keeps ticking. A stalled loop stops the pings and lets systemd
// restart the service.
func (a *App) watchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}
	a.log.Info("systemd watchdog enabled", logx.Duration("interval", interval))

	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if last, stale := a.tickStale(now, interval); stale {
				a.log.Warn("scheduler stalled, withholding watchdog ping", logx.Time("last_tick", last))
				continue
			}
			a.sdNotify(daemon.SdNotifyWatchdog)
		}
	}
}
