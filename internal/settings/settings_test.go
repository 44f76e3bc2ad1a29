package settings

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "kron/pkg/logx"
)

const path = "/cfg/config.json"

func write(t *testing.T, fsys afero.Fs, body string, mt time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(body), 0o644))
	require.NoError(t, fsys.Chtimes(path, mt, mt))
}

func TestRefreshMissingFile(t *testing.T) {
	r := NewReader(afero.NewMemMapFs(), path, logx.Nop())
	var cur Cursor

	_, ok := r.RefreshIfChanged(&cur)
	assert.False(t, ok)
	assert.True(t, cur.ModTime.IsZero())
}

func TestRefreshIsIdempotentWithoutModification(t *testing.T) {
	fsys := afero.NewMemMapFs()
	t0 := time.Date(2024, 3, 15, 7, 59, 0, 0, time.UTC)
	write(t, fsys, `{"active_profile": 1, "theme": "dark"}`, t0)
	r := NewReader(fsys, path, logx.Nop())
	var cur Cursor

	s, ok := r.RefreshIfChanged(&cur)
	require.True(t, ok)
	id, set := s.Profile()
	assert.True(t, set)
	assert.EqualValues(t, 1, id)
	assert.True(t, cur.ModTime.Equal(t0))

	_, ok = r.RefreshIfChanged(&cur)
	assert.False(t, ok, "second refresh without modification reports no change")
}

func TestRefreshPicksUpNewModTime(t *testing.T) {
	fsys := afero.NewMemMapFs()
	t0 := time.Date(2024, 3, 15, 7, 59, 0, 0, time.UTC)
	write(t, fsys, `{"active_profile": 1}`, t0)
	r := NewReader(fsys, path, logx.Nop())
	var cur Cursor
	_, ok := r.RefreshIfChanged(&cur)
	require.True(t, ok)

	write(t, fsys, `{"active_profile": 2}`, t0.Add(time.Second))
	s, ok := r.RefreshIfChanged(&cur)
	require.True(t, ok)
	id, _ := s.Profile()
	assert.EqualValues(t, 2, id)
}

func TestRefreshParseFailureKeepsCursor(t *testing.T) {
	fsys := afero.NewMemMapFs()
	t0 := time.Date(2024, 3, 15, 7, 59, 0, 0, time.UTC)
	write(t, fsys, `{"active_profile": 1}`, t0)
	r := NewReader(fsys, path, logx.Nop())
	var cur Cursor
	_, ok := r.RefreshIfChanged(&cur)
	require.True(t, ok)

	t1 := t0.Add(time.Minute)
	write(t, fsys, `{"active_profile": `, t1)
	_, ok = r.RefreshIfChanged(&cur)
	assert.False(t, ok)
	assert.True(t, cur.ModTime.Equal(t0), "cursor must not advance on parse failure")

	// fixed in place with the same mtime: retried because the cursor did not move
	write(t, fsys, `{"active_profile": 3}`, t1)
	s, ok := r.RefreshIfChanged(&cur)
	require.True(t, ok)
	id, _ := s.Profile()
	assert.EqualValues(t, 3, id)
}

func TestNullActiveProfile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, `{"active_profile": null}`, time.Now())
	r := NewReader(fsys, path, logx.Nop())

	s, err := r.Read()
	require.NoError(t, err)
	_, set := s.Profile()
	assert.False(t, set)
}
