// Package scheduler drives chime playback: once per tick it refreshes the
// active profile, resolves the sounds due in the current minute and hands
// each one to the player without waiting for it.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"kron/internal/eventbus"
	"kron/internal/schedule"
	"kron/internal/settings"
	logx "kron/pkg/logx"
)

type SettingsSource interface {
	RefreshIfChanged(cur *settings.Cursor) (settings.AppSettings, bool)
}

type Resolver interface {
	Due(ctx context.Context, now time.Time, profileID int64) ([]schedule.SoundRef, error)
}

// Dispatcher starts a playback and returns without waiting for it.
type Dispatcher interface {
	Dispatch(ref schedule.SoundRef)
}

type Options struct {
	Settings     SettingsSource
	Resolver     Resolver
	Player       Dispatcher
	Location     *time.Location
	Tick         time.Duration
	QueryTimeout time.Duration
	Log          logx.Logger
	Bus          eventbus.Bus
}

// TickReport describes one evaluated minute. It is published as
// eventbus.TickEvaluated.
type TickReport struct {
	Minute          string
	SettingsChanged bool
	ProfileID       int64
	HasProfile      bool
	Dispatched      int
	Err             error
}

// state is touched only by the goroutine calling Tick.
type state struct {
	minuteKey string
	cursor    settings.Cursor
	app       settings.AppSettings
}

type Loop struct {
	settings     SettingsSource
	resolver     Resolver
	player       Dispatcher
	tick         time.Duration
	queryTimeout time.Duration
	log          logx.Logger
	bus          eventbus.Bus
	loc          atomic.Pointer[time.Location]
	idle         *rate.Limiter
	lastTick     atomic.Int64 // unix nanos of the latest Tick call

	st state
}

func New(opts Options) *Loop {
	l := &Loop{
		settings:     opts.Settings,
		resolver:     opts.Resolver,
		player:       opts.Player,
		tick:         opts.Tick,
		queryTimeout: opts.QueryTimeout,
		log:          opts.Log,
		bus:          opts.Bus,
		idle:         rate.NewLimiter(rate.Every(10*time.Minute), 1),
	}
	if l.tick < time.Second {
		l.tick = time.Second
	}
	if l.queryTimeout <= 0 {
		l.queryTimeout = 5 * time.Second
	}
	if l.bus == nil {
		l.bus = eventbus.Nop()
	}
	l.SetLocation(opts.Location)
	return l
}

// SetLocation changes the time zone used from the next tick on.
func (l *Loop) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	l.loc.Store(loc)
}

func (l *Loop) Location() *time.Location { return l.loc.Load() }

// LastTick is the time of the most recent Tick call, evaluated or not.
func (l *Loop) LastTick() time.Time {
	n := l.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Tick evaluates now. It returns false without side effects when the
// minute was already evaluated. Missed minutes are not caught up.
func (l *Loop) Tick(ctx context.Context, now time.Time) (TickReport, bool) {
	l.lastTick.Store(now.UnixNano())
	now = now.In(l.Location())
	key := schedule.MinuteKey(now)
	if key == l.st.minuteKey {
		return TickReport{}, false
	}

	rep := TickReport{Minute: key}
	if app, ok := l.settings.RefreshIfChanged(&l.st.cursor); ok {
		rep.SettingsChanged = true
		prev, had := l.st.app.Profile()
		next, has := app.Profile()
		if had != has || prev != next {
			l.log.Info("active profile changed", logx.Bool("set", has), logx.Int64("profile_id", next))
		}
		l.st.app = app
	}

	rep.ProfileID, rep.HasProfile = l.st.app.Profile()
	if rep.HasProfile {
		rep.Dispatched, rep.Err = l.evaluate(ctx, now, rep.ProfileID)
	} else if l.idle.Allow() {
		l.log.Debug("no active profile, skipping", logx.String("minute", key))
	}

	l.st.minuteKey = key
	l.bus.Publish(eventbus.Event{Type: eventbus.TickEvaluated, Time: now, Data: rep})
	return rep, true
}

func (l *Loop) evaluate(ctx context.Context, now time.Time, profileID int64) (int, error) {
	qctx, cancel := context.WithTimeout(ctx, l.queryTimeout)
	defer cancel()

	refs, err := l.resolver.Due(qctx, now, profileID)
	if err != nil {
		l.log.Error("resolve due sounds failed",
			logx.Int64("profile_id", profileID),
			logx.String("minute", schedule.MinuteKey(now)),
			logx.Err(err),
		)
		return 0, err
	}
	for _, ref := range refs {
		l.log.Info("chime due",
			logx.Int64("schedule_id", ref.ScheduleID),
			logx.String("sound", ref.Path),
			logx.Bool("default", ref.IsDefault()),
		)
		l.player.Dispatch(ref)
	}
	return len(refs), nil
}

// Run evaluates immediately and then on every tick until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	clog := newCronLogger(l.log)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(l.Location()),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog)),
	)

	// Ticks coalesce while an evaluation is running.
	ticks := make(chan time.Time, 1)
	if _, err := c.AddFunc("@every "+l.tick.String(), func() {
		select {
		case ticks <- time.Now():
		default:
		}
	}); err != nil {
		return err
	}

	c.Start()
	defer func() { <-c.Stop().Done() }()
	l.log.Info("scheduler started", logx.Duration("tick", l.tick), logx.String("tz", l.Location().String()))

	l.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			l.log.Info("scheduler stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case now := <-ticks:
			l.Tick(ctx, now)
		}
	}
}
