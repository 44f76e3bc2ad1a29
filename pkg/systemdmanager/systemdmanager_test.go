package systemdmanager

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnitName(t *testing.T) {
	assert.Equal(t, "kron.service", UnitName(""))
	assert.Equal(t, "kron.service", UnitName(" kron "))
	assert.Equal(t, "chimes.service", UnitName("chimes"))
	assert.Equal(t, "kron.timer", UnitName("kron.timer"))
}

func TestStatusFromProps(t *testing.T) {
	since := uint64(time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC).UnixMicro())
	st := statusFromProps("kron", map[string]interface{}{
		"LoadState":            "loaded",
		"ActiveState":          "active",
		"SubState":             "running",
		"Description":          "kron chime scheduler",
		"ActiveEnterTimestamp": since,
	})

	assert.True(t, st.Found())
	assert.True(t, st.Running())
	assert.Equal(t, "running", st.SubState)
	assert.Equal(t, time.Hour, st.Uptime(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)))
}

func TestStatusNotFound(t *testing.T) {
	st := statusFromProps("kron", map[string]interface{}{"LoadState": "not-found"})
	assert.False(t, st.Found())
	assert.False(t, st.Running())
	assert.Zero(t, st.Uptime(time.Now()))
}

func TestIsNoSuchUnitErr(t *testing.T) {
	assert.False(t, isNoSuchUnitErr(nil))
	assert.True(t, isNoSuchUnitErr(errors.New("org.freedesktop.systemd1.NoSuchUnit: Unit kron.service not loaded.")))
	assert.False(t, isNoSuchUnitErr(errors.New("access denied")))
}

func TestJobError(t *testing.T) {
	assert.NoError(t, jobError("start", "kron.service", "done"))
	assert.EqualError(t, jobError("start", "kron.service", "failed"), "failed to start kron.service: job failed")
	assert.Error(t, jobError("stop", "kron.service", ""))
}
