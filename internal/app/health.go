package app

import (
	"time"

	"kron/internal/config"
	"kron/internal/observability/debugsrv"
)

// minStale keeps a 1s tick from flapping /healthz on a busy host.
const minStale = 5 * time.Second

// tickStale reports whether the scheduler loop missed its ticks for longer
// than limit (never shorter than three ticks).
func (a *App) tickStale(now time.Time, limit time.Duration) (time.Time, bool) {
	last := a.loop.LastTick()
	limit = max(limit, 3*a.timing.tick)
	return last, last.IsZero() || now.Sub(last) > limit
}

func (a *App) health() debugsrv.Health {
	now := time.Now()
	h := debugsrv.Health{
		Status:            debugsrv.StatusOK,
		Location:          a.loop.Location().String(),
		PlaybacksInFlight: a.player.InFlight(),
		Goroutines:        a.sup.Active(),
		DefaultSound:      a.player.DefaultSound(),
		Uptime:            now.Sub(a.started).Round(time.Second).String(),
	}
	last, stale := a.tickStale(now, minStale)
	h.LastTick = last
	switch {
	case last.IsZero():
		h.Status = debugsrv.StatusStarting
	case stale:
		h.Status = debugsrv.StatusStale
	}
	if !last.IsZero() {
		h.TickAge = now.Sub(last).Round(time.Millisecond).String()
	}
	return h
}

func mapDebugConfig(cfg *config.Config) debugsrv.Config {
	d := cfg.Debug
	return debugsrv.Config{
		Enabled:       d.Enabled,
		Addr:          d.Addr,
		Token:         d.Token,
		AllowInsecure: d.AllowInsecure,
		Pprof:         d.Pprof,
		CORSOrigins:   d.CORSOrigins,
	}
}
