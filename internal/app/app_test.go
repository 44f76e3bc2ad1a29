package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kron/internal/audio"
	"kron/internal/eventbus"
	"kron/internal/observability/debugsrv"
	"kron/internal/scheduler"
	"kron/internal/storage"
	logx "kron/pkg/logx"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const quietConfig = `
logging:
  level: error
  console: true
audio:
  disabled: true
`

func TestPaths(t *testing.T) {
	p := Paths{ConfigDir: "/home/u/.config/kron", ResourceDir: "/opt/kron/resources"}

	assert.Equal(t, "/home/u/.config/kron/kron.db", p.Database())
	assert.Equal(t, "/home/u/.config/kron/config.json", p.Settings())
	assert.Equal(t, "/home/u/.config/kron/kron.yaml", p.DaemonConfig())
	assert.Equal(t, "/opt/kron/resources/default_sound.mp3", p.DefaultSound())

	p.ConfigFile = "/etc/kron.json"
	p.ResourceDir = ""
	assert.Equal(t, "/etc/kron.json", p.DaemonConfig())
	assert.Empty(t, p.DefaultSound())

	assert.Error(t, Paths{}.Validate())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, DaemonConfigFile), "scheduler:\n  tick: 5ms\n")

	_, err := New(Options{Paths: Paths{ConfigDir: dir}})
	assert.Error(t, err)
}

func TestStartFailsWithoutStorage(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the database directory should be.
	writeTestFile(t, filepath.Join(dir, "blocker"), "")
	writeTestFile(t, filepath.Join(dir, DaemonConfigFile), quietConfig+"storage:\n  path: "+filepath.Join(dir, "blocker", "kron.db")+"\n")

	a, err := New(Options{Paths: Paths{ConfigDir: dir}})
	require.NoError(t, err)

	err = a.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open storage")
	assert.NoError(t, a.Stop(context.Background(), StopFatalError))
}

func TestStartEvaluatesActiveProfile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, DaemonConfigFile), quietConfig)
	writeTestFile(t, filepath.Join(dir, SettingsFile), `{"active_profile": 1}`)

	// Seed the database the UI would normally create.
	st, err := storage.Open(context.Background(), storage.Config{Path: filepath.Join(dir, DatabaseFile)}, logx.Nop())
	require.NoError(t, err)
	_, err = st.CreateProfile(context.Background(), "default")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	a, err := New(Options{Paths: Paths{ConfigDir: dir}, Device: audio.Discard{}})
	require.NoError(t, err)
	events, unsub := a.Bus().Subscribe(16)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type != eventbus.TickEvaluated {
				continue
			}
			rep := e.Data.(scheduler.TickReport)
			assert.True(t, rep.HasProfile)
			assert.Equal(t, int64(1), rep.ProfileID)
			assert.NoError(t, rep.Err)

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			assert.NoError(t, a.Stop(stopCtx, StopSignal))
			return
		case <-deadline:
			t.Fatal("no tick evaluated")
		}
	}
}

func TestConfigHotReload(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, DaemonConfigFile)
	writeTestFile(t, cfgPath, quietConfig)

	a, err := New(Options{Paths: Paths{ConfigDir: dir}, Device: audio.Discard{}})
	require.NoError(t, err)
	events, unsub := a.Bus().Subscribe(16)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer a.Stop(context.Background(), StopSignal)

	// Give the watcher a moment to register before editing.
	time.Sleep(200 * time.Millisecond)
	writeTestFile(t, cfgPath, quietConfig+"scheduler:\n  timezone: Asia/Jakarta\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type != eventbus.ConfigApplied {
				continue
			}
			assert.Equal(t, []string{"scheduler"}, e.Data)
			assert.Equal(t, "Asia/Jakarta", a.loop.Location().String())
			return
		case <-deadline:
			t.Fatal("config change not applied")
		}
	}
}

func TestDebugServerReportsHealth(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, DaemonConfigFile), quietConfig+"debug:\n  enabled: true\n  addr: 127.0.0.1:0\n")

	a, err := New(Options{Paths: Paths{ConfigDir: dir}, Device: audio.Discard{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer a.Stop(context.Background(), StopSignal)

	var addr string
	require.Eventually(t, func() bool {
		addr = a.debug.Addr()
		return addr != ""
	}, 3*time.Second, 20*time.Millisecond)

	var h debugsrv.Health
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		h = debugsrv.Health{}
		return json.NewDecoder(resp.Body).Decode(&h) == nil && h.Status == debugsrv.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	assert.False(t, h.LastTick.IsZero())
	assert.Equal(t, time.Local.String(), h.Location)
	assert.Positive(t, h.Goroutines)
}
