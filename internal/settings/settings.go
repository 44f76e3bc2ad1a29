// Package settings reads the UI-owned AppSettings file (config.json) that
// names the active schedule profile.
//
// The file is rewritten by another process, so the scheduler only re-parses it
// when its modification time moves. Failures never clear the last good snapshot.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/afero"

	logx "kron/pkg/logx"
)

// AppSettings is the subset of the UI store the scheduler cares about.
// Unknown keys are ignored: the UI keeps other state in the same file.
type AppSettings struct {
	ActiveProfile *int64 `json:"active_profile"`
}

// Profile returns the active profile id, if one is set.
func (s AppSettings) Profile() (int64, bool) {
	if s.ActiveProfile == nil {
		return 0, false
	}
	return *s.ActiveProfile, true
}

// Cursor is the caller-held change-detection state. It only advances on a
// successful read, so a broken file is retried on the next tick.
type Cursor struct {
	ModTime time.Time
}

// Reader loads AppSettings from a path on fs.
type Reader struct {
	fs   afero.Fs
	path string
	log  logx.Logger
}

func NewReader(fsys afero.Fs, path string, log logx.Logger) *Reader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reader{fs: fsys, path: path, log: log}
}

func (r *Reader) Path() string { return r.path }

// RefreshIfChanged returns freshly parsed settings when the file exists and its
// modification time differs from cur. It returns false when the file is
// absent, unchanged, or unreadable; read and parse errors are logged.
func (r *Reader) RefreshIfChanged(cur *Cursor) (AppSettings, bool) {
	fi, err := r.fs.Stat(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("settings stat failed", logx.String("path", r.path), logx.Err(err))
		}
		return AppSettings{}, false
	}
	mt := fi.ModTime()
	if mt.Equal(cur.ModTime) {
		return AppSettings{}, false
	}

	s, err := r.Read()
	if err != nil {
		r.log.Error("settings read failed", logx.String("path", r.path), logx.Err(err))
		return AppSettings{}, false
	}
	cur.ModTime = mt
	return s, true
}

// Read parses the file unconditionally.
func (r *Reader) Read() (AppSettings, error) {
	b, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		return AppSettings{}, err
	}
	var s AppSettings
	if err := json.Unmarshal(b, &s); err != nil {
		return AppSettings{}, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return s, nil
}
