package audio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned when neither the content nor the file
// extension identifies a known codec.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// ErrInvalidFormat is returned when a header decodes but describes a stream
// that cannot be played, such as a zero sample rate.
var ErrInvalidFormat = errors.New("audio: invalid stream format")

// Codec names a supported container.
type Codec string

const (
	CodecUnknown Codec = ""
	CodecWAV     Codec = "wav"
	CodecMP3     Codec = "mp3"
	CodecOGG     Codec = "ogg"
	CodecFLAC    Codec = "flac"
)

// Sniff identifies a codec from the leading bytes of a file.
func Sniff(head []byte) Codec {
	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return CodecWAV
	case bytes.HasPrefix(head, []byte("fLaC")):
		return CodecFLAC
	case bytes.HasPrefix(head, []byte("OggS")):
		return CodecOGG
	case bytes.HasPrefix(head, []byte("ID3")):
		return CodecMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		// MPEG frame sync.
		return CodecMP3
	}
	return CodecUnknown
}

// CodecFromName maps a file extension to a codec.
func CodecFromName(name string) Codec {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return CodecWAV
	case ".mp3":
		return CodecMP3
	case ".ogg", ".oga":
		return CodecOGG
	case ".flac":
		return CodecFLAC
	}
	return CodecUnknown
}

type bufferedFile struct {
	*bufio.Reader
	io.Closer
}

// Decode opens a stream over rc. The codec is chosen from the content first
// and the name second. The returned stream owns rc; on error rc is left open.
func Decode(rc io.ReadCloser, name string) (beep.StreamSeekCloser, beep.Format, error) {
	br := bufio.NewReader(rc)
	head, _ := br.Peek(12)

	codec := Sniff(head)
	if codec == CodecUnknown {
		codec = CodecFromName(name)
	}
	src := bufferedFile{Reader: br, Closer: rc}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch codec {
	case CodecWAV:
		s, format, err = wav.Decode(src)
	case CodecMP3:
		s, format, err = mp3.Decode(src)
	case CodecOGG:
		s, format, err = vorbis.Decode(src)
	case CodecFLAC:
		s, format, err = flac.Decode(src)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s %s: %w", codec, filepath.Base(name), err)
	}
	if format.SampleRate <= 0 || format.NumChannels <= 0 {
		return nil, beep.Format{}, fmt.Errorf("%w: %s: rate=%d channels=%d",
			ErrInvalidFormat, filepath.Base(name), format.SampleRate, format.NumChannels)
	}
	return s, format, nil
}
