// Package systemdmanager starts, stops and inspects the kron systemd unit.
package systemdmanager

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")
	ErrClosed      = errors.New("systemdmanager: connection is closed")
)

// DefaultUnit is the unit name used by the packaged service file.
const DefaultUnit = "kron"

// Status represents the current state of a unit.
type Status struct {
	Name          string
	Active        string // active, inactive, failed, etc.
	SubState      string // running, dead, etc.
	LoadState     string // loaded, not-found, etc.
	Description   string
	ActiveSince   time.Time // ActiveEnterTimestamp
	InactiveSince time.Time // InactiveEnterTimestamp
}

func (s *Status) Found() bool { return s.LoadState != "not-found" }

func (s *Status) Running() bool { return s.Active == "active" }

// Uptime is the time since the unit became active, or zero.
func (s *Status) Uptime(now time.Time) time.Duration {
	if !s.Running() || s.ActiveSince.IsZero() {
		return 0
	}
	return now.Sub(s.ActiveSince)
}

// UnitName appends ".service" unless name already has a unit suffix.
func UnitName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultUnit
	}
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

func notFound(name string) *Status {
	return &Status{Name: name, Active: "unknown", SubState: "not-found", LoadState: "not-found"}
}

func statusFromProps(name string, props map[string]interface{}) *Status {
	loadState, _ := getStringProperty(props, "LoadState")
	if loadState == "not-found" {
		return notFound(name)
	}
	active, _ := getStringProperty(props, "ActiveState")
	sub, _ := getStringProperty(props, "SubState")
	desc, _ := getStringProperty(props, "Description")
	return &Status{
		Name:          name,
		Active:        active,
		SubState:      sub,
		LoadState:     loadState,
		Description:   desc,
		ActiveSince:   parseTimestamp(props, "ActiveEnterTimestamp"),
		InactiveSince: parseTimestamp(props, "InactiveEnterTimestamp"),
	}
}

func parseTimestamp(props map[string]interface{}, key string) time.Time {
	if ts, ok := props[key].(uint64); ok && ts > 0 {
		// systemd timestamps are in microseconds since the Unix epoch
		return time.Unix(int64(ts/1_000_000), 0)
	}
	return time.Time{}
}

func getStringProperty(props map[string]interface{}, key string) (string, bool) {
	if val, ok := props[key].(string); ok {
		return val, true
	}
	return "", false
}

func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	es := err.Error()
	// systemd returns org.freedesktop.systemd1.NoSuchUnit for missing units.
	return strings.Contains(es, "NoSuchUnit") || strings.Contains(es, "not-found")
}

// jobError maps a systemd job result string to an error.
func jobError(action, unit, result string) error {
	switch result {
	case "done":
		return nil
	case "":
		return fmt.Errorf("failed to %s %s: no job result", action, unit)
	}
	return fmt.Errorf("failed to %s %s: job %s", action, unit, result)
}
