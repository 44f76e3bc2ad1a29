package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kron/internal/eventbus"
	"kron/internal/schedule"
)

type played struct {
	format  beep.Format
	samples int
	peak    float64
}

// recordingDevice drains every stream and records what it saw. Calls listed
// in fail return an error instead.
// A non-zero rate makes the device resample like Speaker does.
type recordingDevice struct {
	mu     sync.Mutex
	calls  int
	fail   map[int]error
	panics map[int]bool
	rate   beep.SampleRate
	got    []played
}

func (d *recordingDevice) Play(_ context.Context, s beep.Streamer, format beep.Format) error {
	d.mu.Lock()
	idx := d.calls
	d.calls++
	err := d.fail[idx]
	panics := d.panics[idx]
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if panics {
		panic("device exploded")
	}
	if d.rate > 0 && format.SampleRate != d.rate {
		s = beep.Resample(4, format.SampleRate, d.rate, s)
	}

	var p played
	p.format = format
	buf := make([][2]float64, 256)
	for {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			p.peak = math.Max(p.peak, math.Abs(smp[0]))
		}
		p.samples += n
		if !ok {
			break
		}
	}

	d.mu.Lock()
	d.got = append(d.got, p)
	d.mu.Unlock()
	return nil
}

func writeWAV(t *testing.T, fs afero.Fs, path string, samples int) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	defer f.Close()
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, generators.Silence(samples), format))
}

// writeZeroRateWAV writes a WAV whose header declares a 0 Hz sample rate.
func writeZeroRateWAV(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	writeWAV(t, fs, path, 100)
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(b[24:28], 0) // sample rate
	binary.LittleEndian.PutUint32(b[28:32], 0) // byte rate
	require.NoError(t, afero.WriteFile(fs, path, b, 0o644))
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func steps(out Outcome) []Step {
	s := make([]Step, 0, len(out.Attempts))
	for _, a := range out.Attempts {
		s = append(s, a.Step)
	}
	return s
}

func results(out Outcome) []Result {
	r := make([]Result, 0, len(out.Attempts))
	for _, a := range out.Attempts {
		r = append(r, a.Result)
	}
	return r
}

func newTestPlayer(fs afero.Fs, dev Device, def string) *Player {
	return NewPlayer(Options{Fs: fs, Device: dev, DefaultSound: def, ToneRate: 8000})
}

func TestPlayNamedSound(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/sounds/bell.wav", 800)
	dev := &recordingDevice{}

	out := newTestPlayer(fs, dev, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 1, Path: "/sounds/bell.wav"})

	assert.Equal(t, []Step{StepNamed}, steps(out))
	assert.Equal(t, []Result{Success}, results(out))
	require.Len(t, dev.got, 1)
	assert.Equal(t, 800, dev.got[0].samples)
	assert.Equal(t, beep.SampleRate(8000), dev.got[0].format.SampleRate)

	step, ok := out.Played()
	assert.True(t, ok)
	assert.Equal(t, StepNamed, step)
}

func TestPlayFallsBackToDefault(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		content string
		want    Result
	}{
		{name: "missing file", path: "/sounds/bell.wav", want: OpenFailed},
		{name: "corrupt wav", path: "/sounds/bell.wav", content: "definitely not audio", want: DecodeFailed},
		{name: "unknown format", path: "/sounds/bell.txt", content: "hello", want: DecodeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeWAV(t, fs, "/res/default.wav", 400)
			if tc.content != "" {
				writeFile(t, fs, tc.path, tc.content)
			}
			path := tc.path
			dev := &recordingDevice{}

			out := newTestPlayer(fs, dev, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 2, Path: path})

			assert.Equal(t, []Step{StepNamed, StepDefault}, steps(out))
			assert.Equal(t, []Result{tc.want, Success}, results(out))
			require.Len(t, dev.got, 1)
			assert.Equal(t, 400, dev.got[0].samples)
		})
	}
}

func TestPlayZeroRateWAVFallsBackToDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZeroRateWAV(t, fs, "/sounds/bell.wav")
	writeWAV(t, fs, "/res/default.wav", 400)
	dev := &recordingDevice{rate: 44100}

	out := newTestPlayer(fs, dev, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 2, Path: "/sounds/bell.wav"})

	assert.Equal(t, []Step{StepNamed, StepDefault}, steps(out))
	assert.Equal(t, []Result{DecodeFailed, Success}, results(out))
	assert.ErrorIs(t, out.Attempts[0].Err, ErrInvalidFormat)
	require.Len(t, dev.got, 1)
	assert.Equal(t, beep.SampleRate(8000), dev.got[0].format.SampleRate)
}

func TestPlayRecoversPanicPerAttempt(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/sounds/bell.wav", 100)
	writeWAV(t, fs, "/res/default.wav", 100)

	t.Run("named panics, default plays", func(t *testing.T) {
		dev := &recordingDevice{panics: map[int]bool{0: true}}
		out := newTestPlayer(fs, dev, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 8, Path: "/sounds/bell.wav"})

		assert.Equal(t, []Result{DeviceFailed, Success}, results(out))
		assert.ErrorIs(t, out.Attempts[0].Err, ErrDevice)
		assert.Contains(t, out.Attempts[0].Err.Error(), "device exploded")
	})

	t.Run("named and default panic, tone plays", func(t *testing.T) {
		dev := &recordingDevice{panics: map[int]bool{0: true, 1: true}}
		out := newTestPlayer(fs, dev, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 9, Path: "/sounds/bell.wav"})

		assert.Equal(t, []Step{StepNamed, StepDefault, StepTone}, steps(out))
		assert.Equal(t, []Result{DeviceFailed, DeviceFailed, Success}, results(out))
	})

	t.Run("tone panics", func(t *testing.T) {
		dev := &recordingDevice{panics: map[int]bool{0: true}}
		out := newTestPlayer(afero.NewMemMapFs(), dev, "").Play(context.Background(), schedule.SoundRef{ScheduleID: 10})

		assert.Equal(t, []Result{Skipped, DeviceFailed}, results(out))
		_, ok := out.Played()
		assert.False(t, ok)
	})
}

func TestPlayUnknownFormatError(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/sounds/notes.txt", "hello")

	out := newTestPlayer(fs, &recordingDevice{}, "").Play(context.Background(), schedule.SoundRef{ScheduleID: 3, Path: "/sounds/notes.txt"})

	require.NotEmpty(t, out.Attempts)
	assert.ErrorIs(t, out.Attempts[0].Err, ErrUnsupportedFormat)
}

func TestPlayFallsBackToTone(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/sounds/bell.wav", "garbage")
	dev := &recordingDevice{}

	out := newTestPlayer(fs, dev, "/res/missing.mp3").Play(context.Background(), schedule.SoundRef{ScheduleID: 4, Path: "/sounds/bell.wav"})

	assert.Equal(t, []Step{StepNamed, StepDefault, StepTone}, steps(out))
	assert.Equal(t, []Result{DecodeFailed, OpenFailed, Success}, results(out))
	require.Len(t, dev.got, 1)
	tone := dev.got[0]
	assert.Equal(t, 8000, tone.samples)
	assert.InDelta(t, ToneAmplitude, tone.peak, 0.01)
}

func TestPlayDefaultRef(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/res/default.wav", 100)

	out := newTestPlayer(fs, &recordingDevice{}, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 5})

	assert.Equal(t, []Step{StepDefault}, steps(out))
	assert.Equal(t, []Result{Success}, results(out))
}

func TestPlayWithoutDefaultSkipsToTone(t *testing.T) {
	out := newTestPlayer(afero.NewMemMapFs(), &recordingDevice{}, "").Play(context.Background(), schedule.SoundRef{ScheduleID: 6})

	assert.Equal(t, []Step{StepDefault, StepTone}, steps(out))
	assert.Equal(t, []Result{Skipped, Success}, results(out))
	assert.ErrorIs(t, out.Attempts[0].Err, ErrNoDefault)
}

func TestPlayDeviceFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/sounds/bell.wav", 100)
	writeWAV(t, fs, "/res/default.wav", 100)
	boom := errors.New("no card")
	dev := &recordingDevice{fail: map[int]error{0: boom, 1: boom, 2: boom}}

	out := newTestPlayer(fs, dev, "/res/default.wav").Play(context.Background(), schedule.SoundRef{ScheduleID: 7, Path: "/sounds/bell.wav"})

	assert.Equal(t, []Result{DeviceFailed, DeviceFailed, DeviceFailed}, results(out))
	_, ok := out.Played()
	assert.False(t, ok)
}

func TestSetDefaultSound(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/res/b.wav", 50)
	p := newTestPlayer(fs, &recordingDevice{}, "/res/a.wav")

	p.SetDefaultSound("/res/b.wav")
	out := p.Play(context.Background(), schedule.SoundRef{ScheduleID: 8})

	assert.Equal(t, "/res/b.wav", p.DefaultSound())
	assert.Equal(t, []Result{Success}, results(out))
}

func TestDispatchPublishesOutcome(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/sounds/a.wav", 100)
	writeWAV(t, fs, "/sounds/b.wav", 100)
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	p := NewPlayer(Options{Fs: fs, Device: &recordingDevice{}, ToneRate: 8000, Bus: bus})
	p.Dispatch(schedule.SoundRef{ScheduleID: 1, Path: "/sounds/a.wav"})
	p.Dispatch(schedule.SoundRef{ScheduleID: 2, Path: "/sounds/b.wav"})

	seen := map[int64]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-ch:
			require.Equal(t, eventbus.PlaybackFinished, ev.Type)
			out := ev.Data.(Outcome)
			step, ok := out.Played()
			assert.True(t, ok)
			assert.Equal(t, StepNamed, step)
			seen[out.Ref.ScheduleID] = true
		case <-timeout:
			t.Fatal("playback outcome not published")
		}
	}
}

func TestSniff(t *testing.T) {
	assert.Equal(t, CodecWAV, Sniff([]byte("RIFF\x00\x00\x00\x00WAVEfmt ")))
	assert.Equal(t, CodecFLAC, Sniff([]byte("fLaC\x00\x00")))
	assert.Equal(t, CodecOGG, Sniff([]byte("OggS\x00")))
	assert.Equal(t, CodecMP3, Sniff([]byte("ID3\x04")))
	assert.Equal(t, CodecMP3, Sniff([]byte{0xFF, 0xFB, 0x90}))
	assert.Equal(t, CodecUnknown, Sniff([]byte("RIFF")))
	assert.Equal(t, CodecUnknown, Sniff(nil))

	assert.Equal(t, CodecMP3, CodecFromName("/a/B.MP3"))
	assert.Equal(t, CodecOGG, CodecFromName("x.ogg"))
	assert.Equal(t, CodecUnknown, CodecFromName("x.aiff"))
}
