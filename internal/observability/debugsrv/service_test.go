package debugsrv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "kron/pkg/logx"
)

func fixedHealth(status string) HealthFunc {
	return func() Health {
		return Health{
			Status:            status,
			LastTick:          time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			Location:          "UTC",
			PlaybacksInFlight: 2,
		}
	}
}

func get(t *testing.T, h http.Handler, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		status string
		code   int
		body   string
	}{
		{StatusOK, http.StatusOK, "ok"},
		{StatusStale, http.StatusServiceUnavailable, "stale"},
		{StatusStarting, http.StatusServiceUnavailable, "starting"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			s := New(Config{}, fixedHealth(tt.status), logx.Nop())
			rec := get(t, s.Handler(Config{}), "/healthz", nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestStatusJSON(t *testing.T) {
	s := New(Config{}, fixedHealth(StatusOK), logx.Nop())
	rec := get(t, s.Handler(Config{}), "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var h Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, StatusOK, h.Status)
	assert.Equal(t, int64(2), h.PlaybacksInFlight)
	assert.Equal(t, "UTC", h.Location)
}

func TestTokenAuth(t *testing.T) {
	cfg := Config{Token: "s3cret"}
	h := New(cfg, fixedHealth(StatusOK), logx.Nop()).Handler(cfg)

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/status", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/status?token=nope", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/status?token=s3cret", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/status", map[string]string{"Authorization": "Bearer s3cret"}).Code)
}

func TestPprofOnlyWhenEnabled(t *testing.T) {
	s := New(Config{}, fixedHealth(StatusOK), logx.Nop())
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(Config{}), "/debug/pprof/", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(Config{Pprof: true}), "/debug/pprof/", nil).Code)
}

func TestCORS(t *testing.T) {
	cfg := Config{CORSOrigins: []string{"http://localhost:1420"}}
	h := New(cfg, fixedHealth(StatusOK), logx.Nop()).Handler(cfg)

	rec := get(t, h, "/status", map[string]string{"Origin": "http://localhost:1420"})
	assert.Equal(t, "http://localhost:1420", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(t, h, "/status", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIsLoopbackAddr(t *testing.T) {
	assert.True(t, isLoopbackAddr("127.0.0.1:7077"))
	assert.True(t, isLoopbackAddr("localhost:80"))
	assert.True(t, isLoopbackAddr("[::1]:80"))
	assert.False(t, isLoopbackAddr(":7077"))
	assert.False(t, isLoopbackAddr("0.0.0.0:7077"))
	assert.False(t, isLoopbackAddr("no-port"))
}

func TestReconfigureStartsAndStops(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := New(Config{}, fixedHealth(StatusOK), logx.Nop())
	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})

	var addr string
	require.Eventually(t, func() bool {
		addr = s.Addr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	s.Reconfigure(ctx, Config{Enabled: false})
	assert.Empty(t, s.Addr())
	_, err = http.Get("http://" + addr + "/healthz")
	assert.Error(t, err)
}

func TestRefusesPublicAddrWithoutToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, fixedHealth(StatusOK), logx.Nop())
	s.Start(ctx)
	defer s.Stop(ctx)

	require.Never(t, func() bool { return s.Addr() != "" }, 200*time.Millisecond, 20*time.Millisecond)
}
