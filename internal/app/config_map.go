package app

import (
	"strings"
	"time"

	"github.com/gopxl/beep/v2"

	"kron/internal/config"
	"kron/internal/storage"
	logx "kron/pkg/logx"
)

// The daemon config leaves file locations empty by default; these mappers
// fill them in from Paths.

func mapStorageConfig(cfg *config.Config, p Paths) (storage.Config, error) {
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		path = p.Database()
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Path: path, BusyTimeout: busy}, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func settingsPath(cfg *config.Config, p Paths) string {
	if f := strings.TrimSpace(cfg.Scheduler.SettingsFile); f != "" {
		return f
	}
	return p.Settings()
}

func defaultSound(cfg *config.Config, p Paths) string {
	if f := strings.TrimSpace(cfg.Audio.DefaultSound); f != "" {
		return f
	}
	return p.DefaultSound()
}

type schedulerTiming struct {
	tick         time.Duration
	queryTimeout time.Duration
}

func mapSchedulerTiming(cfg *config.Config) (schedulerTiming, error) {
	tick, err := config.ParseDurationOrDefault("scheduler.tick", cfg.Scheduler.Tick, time.Second)
	if err != nil {
		return schedulerTiming{}, err
	}
	qt, err := config.ParseDurationOrDefault("scheduler.query_timeout", cfg.Scheduler.QueryTimeout, 5*time.Second)
	if err != nil {
		return schedulerTiming{}, err
	}
	return schedulerTiming{tick: tick, queryTimeout: qt}, nil
}

type audioSettings struct {
	rate     beep.SampleRate
	buffer   time.Duration
	disabled bool
}

func mapAudioConfig(cfg *config.Config) (audioSettings, error) {
	buf, err := config.ParseDurationOrDefault("audio.buffer", cfg.Audio.Buffer, 100*time.Millisecond)
	if err != nil {
		return audioSettings{}, err
	}
	rate := cfg.Audio.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	return audioSettings{rate: beep.SampleRate(rate), buffer: buf, disabled: cfg.Audio.Disabled}, nil
}
