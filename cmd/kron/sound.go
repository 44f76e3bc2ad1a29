package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"kron/internal/audio"
	"kron/internal/schedule"
	"kron/internal/sounds"
	"kron/internal/storage"
	logx "kron/pkg/logx"
)

var (
	soundAddFlags = []cli.Flag{
		cli.StringFlag{Name: "name, n", Usage: "display name (default: file name without extension)"},
	}
	soundPlayFlags = []cli.Flag{
		cli.BoolFlag{Name: "silent", Usage: "decode without opening the audio device"},
	}
)

func soundID(c *cli.Context) (int64, error) {
	raw := strings.TrimSpace(c.Args().First())
	if raw == "" {
		return 0, errors.New("sound id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sound id %q", raw)
	}
	return id, nil
}

func soundList(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.Sounds(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tFILE")
	for _, s := range list {
		size := "missing"
		if fi, err := e.fs.Stat(s.FileName); err == nil {
			size = humanize.IBytes(uint64(fi.Size()))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Name, size, s.FileName)
	}
	return w.Flush()
}

func soundAdd(c *cli.Context) error {
	src := strings.TrimSpace(c.Args().First())
	if src == "" {
		return errors.New("file is required")
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	path, err := e.assets().Save(filepath.Base(src), f)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	name := strings.TrimSpace(c.String("name"))
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	id, err := store.CreateSound(ctx, name, path)
	if err != nil {
		_ = e.assets().Delete(path)
		return err
	}
	fmt.Fprintf(e.out, "added sound %d %q -> %s\n", id, name, path)
	return nil
}

func soundRemove(c *cli.Context) error {
	id, err := soundID(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := store.DeleteSound(ctx, id)
	if err != nil {
		return err
	}
	if err := e.assets().Delete(s.FileName); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "removed sound %d %q\n", s.ID, s.Name)
	return nil
}

func soundCat(c *cli.Context) error {
	id, err := soundID(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := store.Sound(ctx, id)
	if err != nil {
		return err
	}
	b, err := e.assets().Read(s.FileName)
	if err != nil {
		return err
	}
	_, err = e.out.Write(b)
	return err
}

// soundPlay accepts a sound id or a file path and runs the same fallback
// chain as the daemon, synchronously.
func soundPlay(c *cli.Context) error {
	arg := strings.TrimSpace(c.Args().First())
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	ref := schedule.SoundRef{Path: arg}
	if id, perr := strconv.ParseInt(arg, 10, 64); perr == nil {
		store, err := e.openStore(ctx)
		if err != nil {
			return err
		}
		s, err := store.Sound(ctx, id)
		store.Close()
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("sound %d not found", id)
		}
		if err != nil {
			return err
		}
		ref.Path = s.FileName
	}

	rate := e.cfg.Audio.SampleRate
	var dev audio.Device = audio.Discard{}
	if !c.Bool("silent") && !e.cfg.Audio.Disabled && audio.SpeakerAvailable {
		sp := audio.NewSpeaker(audioRate(rate), 0)
		defer sp.Close()
		dev = sp
	}
	p := audio.NewPlayer(audio.Options{
		Fs:           e.fs,
		Device:       dev,
		DefaultSound: e.defaultSound(),
		ToneRate:     audioRate(rate),
		Log:          e.log.With(logx.String("comp", "audio")),
	})
	out := p.Play(ctx, ref)
	for _, a := range out.Attempts {
		line := fmt.Sprintf("%-8s %-14s %s", a.Step, a.Result, displayPath(a.Path))
		if a.Err != nil {
			line += "  " + a.Err.Error()
		}
		fmt.Fprintln(e.out, strings.TrimRight(line, " "))
	}
	if _, ok := out.Played(); !ok {
		return errors.New("nothing could be played")
	}
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return ""
	}
	return sounds.DisplayName(p)
}
