package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"kron/internal/app"
	"kron/internal/config"
	"kron/internal/settings"
	"kron/internal/sounds"
	"kron/internal/storage"
	logx "kron/pkg/logx"
)

// env is what one-shot commands share: resolved paths, the daemon config and
// a console logger.
type env struct {
	paths app.Paths
	cfg   *config.Config
	log   logx.Logger
	fs    afero.Fs
	out   io.Writer
}

func pathsFrom(c *cli.Context) (app.Paths, error) {
	dir := strings.TrimSpace(c.GlobalString("config-dir"))
	if dir == "" {
		d, err := app.DefaultConfigDir()
		if err != nil {
			return app.Paths{}, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = d
	}
	return app.Paths{
		ConfigDir:   dir,
		ResourceDir: c.GlobalString("resource-dir"),
		ConfigFile:  c.GlobalString("config"),
	}, nil
}

func loadEnv(c *cli.Context) (*env, error) {
	p, err := pathsFrom(c)
	if err != nil {
		return nil, err
	}
	cfg, _, err := config.NewConfigManager(p.DaemonConfig()).Load()
	if err != nil {
		return nil, err
	}
	return &env{
		paths: p,
		cfg:   cfg,
		log:   logx.NewConsole(c.GlobalString("log-level")),
		fs:    afero.NewOsFs(),
		out:   c.App.Writer,
	}, nil
}

func (e *env) openStore(ctx context.Context) (*storage.Store, error) {
	path := strings.TrimSpace(e.cfg.Storage.Path)
	if path == "" {
		path = e.paths.Database()
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", e.cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Config{Path: path, BusyTimeout: busy}, e.log.With(logx.String("comp", "storage")))
}

func (e *env) assets() *sounds.Assets {
	return sounds.New(e.fs, e.paths.ConfigDir, e.log.With(logx.String("comp", "sounds")))
}

func (e *env) settingsPath() string {
	if f := strings.TrimSpace(e.cfg.Scheduler.SettingsFile); f != "" {
		return f
	}
	return e.paths.Settings()
}

func (e *env) defaultSound() string {
	if f := strings.TrimSpace(e.cfg.Audio.DefaultSound); f != "" {
		return f
	}
	return e.paths.DefaultSound()
}

// profileFor returns --profile when given, else the active profile from the
// settings file.
func (e *env) profileFor(c *cli.Context) (int64, error) {
	if c.IsSet("profile") {
		return c.Int64("profile"), nil
	}
	st, err := settings.NewReader(e.fs, e.settingsPath(), e.log).Read()
	if err != nil {
		return 0, fmt.Errorf("no --profile given and settings unreadable: %w", err)
	}
	id, ok := st.Profile()
	if !ok {
		return 0, fmt.Errorf("no --profile given and no active profile in %s", e.settingsPath())
	}
	return id, nil
}

// commandContext is canceled on interrupt so long queries and playback can
// be aborted with Ctrl-C.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
