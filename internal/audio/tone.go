package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
)

// Fallback tone played when neither the scheduled nor the default sound
// can be played.
const (
	ToneFrequency = 440.0
	ToneDuration  = time.Second
	ToneAmplitude = 0.2
)

// Tone returns a ToneDuration sine at ToneFrequency scaled to ToneAmplitude.
func Tone(sr beep.SampleRate) (beep.Streamer, beep.Format, error) {
	sine, err := generators.SineTone(sr, ToneFrequency)
	if err != nil {
		return nil, beep.Format{}, err
	}
	// effects.Gain multiplies by 1+Gain.
	s := beep.Take(sr.N(ToneDuration), &effects.Gain{Streamer: sine, Gain: ToneAmplitude - 1})
	return s, beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}, nil
}
