package config

import "slices"

// Config is the daemon config (kron.yaml / kron.json).
//
// It is owned by the operator, unlike the UI-owned AppSettings file
// (internal/settings) which only carries the active profile.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage,omitempty"`
	Audio     AudioConfig     `json:"audio"`
	Debug     DebugConfig     `json:"debug,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the minute loop.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - tick: "1s"
//   - timezone: process local time
//   - query_timeout: "5s"
//   - settings_file: <config-dir>/config.json
type SchedulerConfig struct {
	Tick         string `json:"tick,omitempty"`
	Timezone     string `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Berlin"
	QueryTimeout string `json:"query_timeout,omitempty"`
	SettingsFile string `json:"settings_file,omitempty"`
}

// StorageConfig points at the sqlite database shared with the UI.
//
// Example:
//
//	"storage": { "path": "/home/me/.config/kron/kron.db", "busy_timeout": "5s" }
type StorageConfig struct {
	Path        string `json:"path,omitempty"` // default: <config-dir>/kron.db
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// AudioConfig controls the playback engine.
//
// Disabled swaps the speaker for a silent device; useful on headless hosts
// where only the resolution logs matter.
type AudioConfig struct {
	DefaultSound string `json:"default_sound,omitempty"` // default: <resource-dir>/default_sound.mp3
	SampleRate   int    `json:"sample_rate,omitempty"`   // default: 44100
	Buffer       string `json:"buffer,omitempty"`        // default: "100ms"
	Disabled     bool   `json:"disabled,omitempty"`
}

// DebugConfig controls the optional local HTTP endpoint serving /healthz,
// /status and (when Pprof is set) /debug/pprof/.
//
// A non-loopback Addr requires Token unless AllowInsecure is set.
// CORSOrigins lets a browser UI poll /status.
type DebugConfig struct {
	Enabled       bool     `json:"enabled,omitempty"`
	Addr          string   `json:"addr,omitempty"` // default: 127.0.0.1:7077
	Token         string   `json:"token,omitempty"`
	AllowInsecure bool     `json:"allow_insecure,omitempty"`
	Pprof         bool     `json:"pprof,omitempty"`
	CORSOrigins   []string `json:"cors_origins,omitempty"`
}

// Equal reports whether two debug sections are identical.
func (d DebugConfig) Equal(o DebugConfig) bool {
	return d.Enabled == o.Enabled &&
		d.Addr == o.Addr &&
		d.Token == o.Token &&
		d.AllowInsecure == o.AllowInsecure &&
		d.Pprof == o.Pprof &&
		slices.Equal(d.CORSOrigins, o.CORSOrigins)
}

// Default returns the config used when no daemon config file exists.
func Default() *Config {
	cfg := &Config{Logging: LoggingConfig{Level: "info", Console: true}}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Scheduler.Tick == "" {
		c.Scheduler.Tick = "1s"
	}
	if c.Scheduler.QueryTimeout == "" {
		c.Scheduler.QueryTimeout = "5s"
	}
	if c.Storage.BusyTimeout == "" {
		c.Storage.BusyTimeout = "5s"
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.Buffer == "" {
		c.Audio.Buffer = "100ms"
	}
	if c.Debug.Addr == "" {
		c.Debug.Addr = "127.0.0.1:7077"
	}
}
