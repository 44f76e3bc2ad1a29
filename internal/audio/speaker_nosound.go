//go:build nosound || (linux && !cgo)

package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
)

// SpeakerAvailable is false in builds without an audio backend (the
// nosound tag, or Linux without cgo).
const SpeakerAvailable = false

// Speaker in this build has no backend; every Play fails with ErrDevice.
type Speaker struct {
	rate beep.SampleRate
}

func NewSpeaker(rate beep.SampleRate, _ time.Duration) *Speaker {
	if rate <= 0 {
		rate = 44100
	}
	return &Speaker{rate: rate}
}

func (sp *Speaker) Rate() beep.SampleRate { return sp.rate }

func (sp *Speaker) Play(context.Context, beep.Streamer, beep.Format) error {
	return fmt.Errorf("%w: built without audio output", ErrDevice)
}

func (sp *Speaker) Close() {}
