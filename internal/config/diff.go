package config

import (
	"sort"
	"strings"

	logx "kron/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) structured attrs for logging, and (3) the changed sections that only take
// effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	restart := make([]string, 0, 2)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.String("scheduler.tick", strings.TrimSpace(newCfg.Scheduler.Tick)),
		)
		if oldCfg.Scheduler.Tick != newCfg.Scheduler.Tick ||
			oldCfg.Scheduler.QueryTimeout != newCfg.Scheduler.QueryTimeout ||
			oldCfg.Scheduler.SettingsFile != newCfg.Scheduler.SettingsFile {
			restart = append(restart, "scheduler")
		}
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		restart = append(restart, "storage")
		attrs = append(attrs,
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	if oldCfg.Audio != newCfg.Audio {
		changed = append(changed, "audio")
		attrs = append(attrs,
			logx.String("audio.default_sound", strings.TrimSpace(newCfg.Audio.DefaultSound)),
			logx.Bool("audio.disabled", newCfg.Audio.Disabled),
		)
		if oldCfg.Audio.SampleRate != newCfg.Audio.SampleRate ||
			oldCfg.Audio.Buffer != newCfg.Audio.Buffer ||
			oldCfg.Audio.Disabled != newCfg.Audio.Disabled {
			restart = append(restart, "audio")
		}
	}

	if !oldCfg.Debug.Equal(newCfg.Debug) {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", strings.TrimSpace(newCfg.Debug.Addr)),
			logx.Bool("debug.token_set", newCfg.Debug.Token != ""),
		)
	}

	sort.Strings(changed)
	sort.Strings(restart)
	return changed, attrs, restart
}
