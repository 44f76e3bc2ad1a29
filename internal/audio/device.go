package audio

import (
	"context"
	"errors"

	"github.com/gopxl/beep/v2"
)

// ErrDevice wraps output device failures.
var ErrDevice = errors.New("audio: output device")

// Device renders a stream until it is exhausted or ctx is done.
// Implementations must allow concurrent Play calls; overlapping streams are
// mixed by the device.
type Device interface {
	Play(ctx context.Context, s beep.Streamer, format beep.Format) error
}

// Discard consumes streams without producing sound. It is used when audio
// output is disabled in config and on hosts without a sound card.
type Discard struct{}

func (Discard) Play(ctx context.Context, s beep.Streamer, _ beep.Format) error {
	buf := make([][2]float64, 512)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := s.Stream(buf); !ok {
			return nil
		}
	}
}
