package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	logx "kron/pkg/logx"
)

// Validate rejects configs that would break a running daemon on hot reload.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	tick, err := ParseDurationField("scheduler.tick", cfg.Scheduler.Tick)
	if err != nil {
		return err
	}
	if tick > 0 && tick < time.Second {
		return fmt.Errorf("scheduler.tick: must be >= 1s, got %s", tick)
	}
	if tick > time.Minute {
		return fmt.Errorf("scheduler.tick: must be <= 1m, got %s", tick)
	}
	if _, err := ParseDurationField("scheduler.query_timeout", cfg.Scheduler.QueryTimeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}
	if cfg.Audio.SampleRate < 0 {
		return fmt.Errorf("audio.sample_rate must be >= 0")
	}
	if _, err := ParseDurationField("audio.buffer", cfg.Audio.Buffer); err != nil {
		return err
	}
	if d := cfg.Debug; d.Enabled && strings.TrimSpace(d.Addr) != "" {
		if _, _, err := net.SplitHostPort(d.Addr); err != nil {
			return fmt.Errorf("debug.addr: invalid %q: %w", d.Addr, err)
		}
	}
	return nil
}

// Location resolves scheduler.timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	tz := strings.TrimSpace(c.Scheduler.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}
