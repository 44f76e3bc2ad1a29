package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/afero"

	"kron/internal/audio"
	"kron/internal/config"
	"kron/internal/eventbus"
	"kron/internal/observability/debugsrv"
	"kron/internal/runtime/supervisor"
	"kron/internal/schedule"
	"kron/internal/scheduler"
	"kron/internal/settings"
	"kron/internal/storage"
	logx "kron/pkg/logx"
)

type Options struct {
	Paths Paths
	// Fs backs settings and sound file access. Defaults to the OS.
	Fs afero.Fs
	// Device overrides the output device chosen from audio config.
	Device audio.Device
}

// App wires the chime daemon: config watcher, storage, resolver, player and
// the scheduler loop.
type App struct {
	paths Paths
	fs    afero.Fs

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	timing  schedulerTiming
	audio   audioSettings
	device  audio.Device
	speaker *audio.Speaker

	store  *storage.Store
	player *audio.Player
	loop   *scheduler.Loop
	debug  *debugsrv.Service

	started time.Time
}

func New(opts Options) (*App, error) {
	if err := opts.Paths.Validate(); err != nil {
		return nil, err
	}
	cfgm := config.NewConfigManager(opts.Paths.DaemonConfig())
	cfg, found, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	if !found {
		log.Info("no daemon config, using defaults", logx.String("path", cfgm.Path()))
	}

	timing, err := mapSchedulerTiming(cfg)
	if err != nil {
		return nil, err
	}
	as, err := mapAudioConfig(cfg)
	if err != nil {
		return nil, err
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &App{
		paths:  opts.Paths,
		fs:     fsys,
		cfgm:   cfgm,
		log:    log,
		logs:   logSvc,
		bus:    eventbus.New(),
		timing: timing,
		audio:  as,
		device: opts.Device,
	}, nil
}

// Bus exposes scheduler and playback events.
func (a *App) Bus() eventbus.Bus { return a.bus }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start opens storage and runs the scheduler until ctx is canceled or Stop
// is called. A storage failure is returned and nothing is started.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	sc, err := mapStorageConfig(cfg, a.paths)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, sc, a.comp("storage"))
	if err != nil {
		a.log.Error("storage unavailable, scheduler not started", logx.String("path", sc.Path), logx.Err(err))
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	a.device = a.pickDevice()
	a.player = audio.NewPlayer(audio.Options{
		Fs:           a.fs,
		Device:       a.device,
		DefaultSound: defaultSound(cfg, a.paths),
		ToneRate:     a.audio.rate,
		Log:          a.comp("audio"),
		Bus:          a.bus,
	})

	a.loop = scheduler.New(scheduler.Options{
		Settings:     settings.NewReader(a.fs, settingsPath(cfg, a.paths), a.comp("settings")),
		Resolver:     schedule.NewResolver(store, a.comp("resolver")),
		Player:       a.player,
		Location:     cfg.Location(),
		Tick:         a.timing.tick,
		QueryTimeout: a.timing.queryTimeout,
		Log:          a.comp("scheduler"),
		Bus:          a.bus,
	})

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.comp("supervisor")), supervisor.WithCancelOnError(true))
	a.started = time.Now()
	a.debug = debugsrv.New(mapDebugConfig(cfg), a.health, a.comp("debug"))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.comp("config"))
	a.cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		return config.Validate(c)
	})

	// Keep this debug-level; tick events fire once per minute.
	events, unsub := a.bus.Subscribe(64)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.logEvent(e)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))
	a.sup.Go("scheduler", a.loop.Run)
	a.sup.Go("systemd.watchdog", a.watchdog)
	a.debug.Start(a.sup.Context())

	a.sdNotify(daemon.SdNotifyReady)
	a.log.Info("app started",
		logx.String("config_dir", a.paths.ConfigDir),
		logx.String("database", sc.Path),
		logx.String("default_sound", a.player.DefaultSound()),
	)
	return nil
}

func (a *App) comp(name string) logx.Logger {
	return a.logs.Logger().With(logx.String("comp", name))
}

func (a *App) pickDevice() audio.Device {
	if a.device != nil {
		return a.device
	}
	if a.audio.disabled {
		a.log.Info("audio output disabled")
		return audio.Discard{}
	}
	if !audio.SpeakerAvailable {
		a.log.Warn("built without audio output, chimes are resolved but silent")
		return audio.Discard{}
	}
	a.speaker = audio.NewSpeaker(a.audio.rate, a.audio.buffer)
	return a.speaker
}

// applyConfig hot-applies the reloadable sections and reports the rest.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))
	a.loop.SetLocation(newCfg.Location())
	a.player.SetDefaultSound(defaultSound(newCfg, a.paths))
	a.debug.Reconfigure(a.sup.Context(), mapDebugConfig(newCfg))

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
	if len(restart) > 0 {
		a.log.Warn("config change requires restart to take effect", logx.Strs("sections", restart))
	}
	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigApplied, Data: sections})
}

func (a *App) logEvent(e eventbus.Event) {
	switch d := e.Data.(type) {
	case scheduler.TickReport:
		a.log.Debug("event", logx.String("type", e.Type), logx.String("minute", d.Minute),
			logx.Bool("profile", d.HasProfile), logx.Int("dispatched", d.Dispatched))
	case audio.Outcome:
		step, ok := d.Played()
		a.log.Debug("event", logx.String("type", e.Type), logx.Int64("schedule_id", d.Ref.ScheduleID),
			logx.Bool("played", ok), logx.String("step", step.String()), logx.Duration("elapsed", d.Elapsed))
	default:
		a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
	}
}

// Stop cancels the scheduler and waits for supervised goroutines. In-flight
// playbacks are not joined.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeLogs()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)), logx.Int64("playbacks_in_flight", a.player.InFlight()))
	a.sdNotify(daemon.SdNotifyStopping)

	a.debug.Stop(ctx)
	err := a.sup.Stop(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("supervisor did not stop in time", logx.Int64("active", a.sup.Active()))
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			a.log.Warn("storage close failed", logx.Err(cerr))
		}
	}
	a.log.Info("stopped")
	a.closeLogs()
	return err
}

func (a *App) closeLogs() {
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
