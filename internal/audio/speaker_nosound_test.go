//go:build nosound || (linux && !cgo)

package audio

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"kron/internal/schedule"
)

func TestSpeakerWithoutBackend(t *testing.T) {
	assert.False(t, SpeakerAvailable)

	sp := NewSpeaker(0, 0)
	defer sp.Close()
	assert.EqualValues(t, 44100, sp.Rate())

	// Every step fails at the device, none panics.
	out := NewPlayer(Options{Fs: afero.NewMemMapFs(), Device: sp}).Play(context.Background(), schedule.SoundRef{ScheduleID: 1})
	assert.Equal(t, []Result{Skipped, DeviceFailed}, results(out))
	assert.ErrorIs(t, out.Attempts[1].Err, ErrDevice)
}
