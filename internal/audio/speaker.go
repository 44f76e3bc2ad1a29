//go:build !nosound && (cgo || !linux)

package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerAvailable reports whether this build can open the system output.
const SpeakerAvailable = true

// Speaker is the system output device. The underlying speaker is opened
// lazily on first use; a failed open is retried on the next Play.
type Speaker struct {
	rate   beep.SampleRate
	buffer time.Duration

	mu    sync.Mutex
	ready bool
}

func NewSpeaker(rate beep.SampleRate, buffer time.Duration) *Speaker {
	if rate <= 0 {
		rate = 44100
	}
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}
	return &Speaker{rate: rate, buffer: buffer}
}

// Rate is the device sample rate. Streams in other rates are resampled.
func (sp *Speaker) Rate() beep.SampleRate { return sp.rate }

func (sp *Speaker) open() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.ready {
		return nil
	}
	if err := speaker.Init(sp.rate, sp.rate.N(sp.buffer)); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	sp.ready = true
	return nil
}

func (sp *Speaker) Play(ctx context.Context, s beep.Streamer, format beep.Format) error {
	if err := sp.open(); err != nil {
		return err
	}
	if format.SampleRate != sp.rate {
		s = beep.Resample(4, format.SampleRate, sp.rate, s)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the output device if it was opened.
func (sp *Speaker) Close() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.ready {
		speaker.Close()
		sp.ready = false
	}
}
