package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"kron/internal/schedule"
	"kron/internal/storage"
	logx "kron/pkg/logx"
)

var (
	dueFlags = []cli.Flag{
		cli.StringFlag{Name: "at", Usage: `minute to resolve, "YYYY-MM-DD HH:MM" in the scheduler time zone (default: now)`},
		cli.Int64Flag{Name: "profile, p", Usage: "profile id (default: active profile)"},
	}
	agendaFlags = []cli.Flag{
		cli.StringFlag{Name: "date, d", Usage: "day to list, YYYY-MM-DD (default: today)"},
		cli.Int64Flag{Name: "profile, p", Usage: "profile id (default: active profile)"},
		cli.StringFlag{Name: "search, s", Usage: "only schedules whose name contains this text"},
	}
)

func due(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	loc := e.cfg.Location()
	now := time.Now().In(loc)
	if at := strings.TrimSpace(c.String("at")); at != "" {
		now, err = time.ParseInLocation(schedule.MinuteKeyLayout, at, loc)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}
	profileID, err := e.profileFor(c)
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

	refs, err := schedule.NewResolver(store, e.log.With(logx.String("comp", "resolver"))).Due(ctx, now, profileID)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintf(e.out, "nothing due at %s for profile %d\n", schedule.MinuteKey(now), profileID)
		return nil
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEDULE\tSOUND")
	for _, r := range refs {
		sound := r.Path
		if r.IsDefault() {
			sound = "(default) " + e.defaultSound()
		}
		fmt.Fprintf(w, "%d\t%s\n", r.ScheduleID, sound)
	}
	return w.Flush()
}

func agenda(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	loc := e.cfg.Location()
	day := time.Now().In(loc)
	if d := strings.TrimSpace(c.String("date")); d != "" {
		day, err = time.ParseInLocation(storage.DateLayout, d, loc)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}
	profileID, err := e.profileFor(c)
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

	entries, err := store.Agenda(ctx, profileID, day, c.String("search"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(e.out, "no chimes on %s for profile %d\n", day.Format(storage.DateLayout), profileID)
		return nil
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tID\tNAME\tREPEAT\tSOUND")
	for _, en := range entries {
		sound := en.SoundName
		if sound == "" {
			sound = "(default)"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", clock(en.Time), en.ScheduleID, en.Name, en.Repeat, sound)
	}
	return w.Flush()
}

// clock formats minutes since midnight as HH:MM.
func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
