// Package sounds stores uploaded chime files in the configuration directory.
package sounds

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	logx "kron/pkg/logx"
)

// DirName is the sounds directory under the configuration directory.
const DirName = "sounds"

var (
	ErrNotFound    = errors.New("sounds: file not found")
	ErrInvalidName = errors.New("sounds: invalid file name")
)

type Assets struct {
	fs  afero.Fs
	dir string
	log logx.Logger
	now func() time.Time
}

// New returns a store rooted at <configDir>/sounds.
func New(fsys afero.Fs, configDir string, log logx.Logger) *Assets {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Assets{fs: fsys, dir: filepath.Join(configDir, DirName), log: log, now: time.Now}
}

func (a *Assets) Dir() string { return a.dir }

// Save copies r to <dir>/<unix-millis>_<name> and returns the full path.
// Only the base of name is used.
func (a *Assets) Save(name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create sounds dir: %w", err)
	}

	path := filepath.Join(a.dir, strconv.FormatInt(a.now().UnixMilli(), 10)+"_"+base)
	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = a.fs.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	a.log.Info("sound saved", logx.String("path", path), logx.String("size", humanize.IBytes(uint64(n))))
	return path, nil
}

// Delete removes path. A missing file is not an error.
func (a *Assets) Delete(path string) error {
	err := a.fs.Remove(path)
	if err == nil {
		a.log.Info("sound deleted", logx.String("path", path))
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("delete %s: %w", path, err)
}

// Read returns the content of path.
func (a *Assets) Read(path string) ([]byte, error) {
	b, err := afero.ReadFile(a.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// Entry is a stored file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// List returns stored files in name order. A missing directory is empty.
func (a *Assets) List() ([]Entry, error) {
	infos, err := afero.ReadDir(a.fs, a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.dir, err)
	}
	out := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		out = append(out, Entry{Path: filepath.Join(a.dir, fi.Name()), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	return out, nil
}

// DisplayName strips the upload timestamp prefix from a stored file name.
func DisplayName(path string) string {
	base := filepath.Base(path)
	prefix, rest, ok := strings.Cut(base, "_")
	if !ok || rest == "" {
		return base
	}
	if _, err := strconv.ParseInt(prefix, 10, 64); err != nil {
		return base
	}
	return rest
}
