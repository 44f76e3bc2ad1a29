package audio

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/spf13/afero"

	"kron/internal/eventbus"
	"kron/internal/schedule"
	logx "kron/pkg/logx"
)

// ErrNoDefault marks a skipped default step when no default sound is set.
var ErrNoDefault = errors.New("audio: no default sound configured")

// Step is a position in the fallback chain.
type Step int

const (
	StepNamed Step = iota
	StepDefault
	StepTone
)

func (s Step) String() string {
	switch s {
	case StepNamed:
		return "named"
	case StepDefault:
		return "default"
	case StepTone:
		return "tone"
	}
	return "unknown"
}

// Result classifies one attempt.
type Result int

const (
	Success Result = iota
	Skipped
	OpenFailed
	DecodeFailed
	DeviceFailed
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case OpenFailed:
		return "open_failed"
	case DecodeFailed:
		return "decode_failed"
	case DeviceFailed:
		return "device_failed"
	}
	return "unknown"
}

type Attempt struct {
	Step   Step
	Path   string
	Result Result
	Err    error
}

// Outcome is the full record of one playback.
type Outcome struct {
	Ref      schedule.SoundRef
	Attempts []Attempt
	Started  time.Time
	Elapsed  time.Duration
}

// Played reports the step that produced sound, if any.
func (o Outcome) Played() (Step, bool) {
	for _, a := range o.Attempts {
		if a.Result == Success {
			return a.Step, true
		}
	}
	return 0, false
}

type Options struct {
	Fs           afero.Fs
	Device       Device
	DefaultSound string
	// ToneRate is the sample rate of the generated fallback tone. It should
	// match the device rate to avoid resampling.
	ToneRate beep.SampleRate
	Log      logx.Logger
	Bus      eventbus.Bus
}

// Player runs the fallback chain. It holds no per-playback state, so any
// number of playbacks may run at once.
type Player struct {
	fs       afero.Fs
	dev      Device
	toneRate beep.SampleRate
	log      logx.Logger
	bus      eventbus.Bus

	defaultSound atomic.Pointer[string]
	inflight     atomic.Int64
}

func NewPlayer(opts Options) *Player {
	p := &Player{
		fs:       opts.Fs,
		dev:      opts.Device,
		toneRate: opts.ToneRate,
		log:      opts.Log,
		bus:      opts.Bus,
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	if p.dev == nil {
		p.dev = Discard{}
	}
	if p.toneRate <= 0 {
		p.toneRate = 44100
	}
	if p.bus == nil {
		p.bus = eventbus.Nop()
	}
	p.SetDefaultSound(opts.DefaultSound)
	return p
}

// SetDefaultSound replaces the default sound used by later playbacks.
func (p *Player) SetDefaultSound(path string) {
	p.defaultSound.Store(&path)
}

func (p *Player) DefaultSound() string {
	if v := p.defaultSound.Load(); v != nil {
		return *v
	}
	return ""
}

// InFlight reports the number of playbacks currently running.
func (p *Player) InFlight() int64 { return p.inflight.Load() }

// Dispatch starts a detached playback and returns immediately. The outcome
// is published as eventbus.PlaybackFinished.
func (p *Player) Dispatch(ref schedule.SoundRef) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("playback panicked",
					logx.Int64("schedule_id", ref.ScheduleID),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
			}
		}()
		out := p.Play(context.Background(), ref)
		p.bus.Publish(eventbus.Event{Type: eventbus.PlaybackFinished, Data: out})
	}()
}

// Play runs the fallback chain synchronously and stops at the first step
// that produces sound.
func (p *Player) Play(ctx context.Context, ref schedule.SoundRef) Outcome {
	out := Outcome{Ref: ref, Started: time.Now()}
	log := p.log.With(logx.Int64("schedule_id", ref.ScheduleID))
	defer func() { out.Elapsed = time.Since(out.Started) }()

	if !ref.IsDefault() {
		a := p.playFile(ctx, StepNamed, ref.Path)
		out.Attempts = append(out.Attempts, a)
		if a.Result == Success {
			log.Debug("played sound", logx.String("path", a.Path))
			return out
		}
		log.Warn("scheduled sound failed, falling back to default",
			logx.String("path", a.Path), logx.String("result", a.Result.String()), logx.Err(a.Err))
	}

	if def := p.DefaultSound(); def == "" {
		out.Attempts = append(out.Attempts, Attempt{Step: StepDefault, Result: Skipped, Err: ErrNoDefault})
	} else {
		a := p.playFile(ctx, StepDefault, def)
		out.Attempts = append(out.Attempts, a)
		if a.Result == Success {
			log.Debug("played default sound", logx.String("path", a.Path))
			return out
		}
		log.Warn("default sound failed, falling back to tone",
			logx.String("path", a.Path), logx.String("result", a.Result.String()), logx.Err(a.Err))
	}

	a := p.playTone(ctx)
	out.Attempts = append(out.Attempts, a)
	if a.Result != Success {
		log.Error("all playback attempts failed", logx.Err(a.Err))
	}
	return out
}

// recoverAttempt turns a panic inside one attempt into that attempt's
// failure so the chain can fall through.
func (p *Player) recoverAttempt(a *Attempt) {
	r := recover()
	if r == nil {
		return
	}
	a.Result, a.Err = DeviceFailed, fmt.Errorf("%w: panic: %v", ErrDevice, r)
	p.log.Error("playback attempt panicked",
		logx.String("step", a.Step.String()),
		logx.String("path", a.Path),
		logx.Any("panic", r),
		logx.String("stack", string(debug.Stack())),
	)
}

func (p *Player) playFile(ctx context.Context, step Step, path string) (a Attempt) {
	a = Attempt{Step: step, Path: path}
	defer p.recoverAttempt(&a)

	f, err := p.fs.Open(path)
	if err != nil {
		a.Result, a.Err = OpenFailed, err
		return a
	}
	defer f.Close()

	s, format, err := Decode(f, path)
	if err != nil {
		a.Result, a.Err = DecodeFailed, err
		return a
	}
	defer s.Close()

	if err := p.dev.Play(ctx, s, format); err != nil {
		a.Result, a.Err = DeviceFailed, err
		return a
	}
	// Decoders report mid-stream corruption through Err after the stream ends.
	if err := s.Err(); err != nil {
		a.Result, a.Err = DecodeFailed, err
		return a
	}
	a.Result = Success
	return a
}

func (p *Player) playTone(ctx context.Context) (a Attempt) {
	a = Attempt{Step: StepTone}
	defer p.recoverAttempt(&a)
	s, format, err := Tone(p.toneRate)
	if err != nil {
		a.Result, a.Err = DeviceFailed, err
		return a
	}
	if err := p.dev.Play(ctx, s, format); err != nil {
		a.Result, a.Err = DeviceFailed, err
		return a
	}
	a.Result = Success
	return a
}
