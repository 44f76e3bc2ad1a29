package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"kron/pkg/systemdmanager"
)

var serviceFlags = []cli.Flag{
	cli.BoolFlag{Name: "user", Usage: "talk to the per-user service manager"},
	cli.StringFlag{Name: "unit", Value: systemdmanager.DefaultUnit, Usage: "unit name"},
}

func serviceStatus(c *cli.Context) error {
	ctx, cancel := commandContext()
	defer cancel()
	m, err := systemdmanager.New(ctx, c.Bool("user"))
	if err != nil {
		return err
	}
	defer m.Close()

	st, err := m.Status(ctx, c.String("unit"))
	if err != nil {
		return err
	}
	out := c.App.Writer
	if !st.Found() {
		fmt.Fprintf(out, "%s: not installed\n", systemdmanager.UnitName(st.Name))
		return nil
	}
	fmt.Fprintf(out, "%s: %s (%s)\n", systemdmanager.UnitName(st.Name), st.Active, st.SubState)
	if st.Running() && !st.ActiveSince.IsZero() {
		fmt.Fprintf(out, "since %s (%s)\n", st.ActiveSince.Format(time.RFC3339), humanize.Time(st.ActiveSince))
	} else if !st.InactiveSince.IsZero() {
		fmt.Fprintf(out, "down since %s (%s)\n", st.InactiveSince.Format(time.RFC3339), humanize.Time(st.InactiveSince))
	}
	return nil
}

func serviceAction(action string) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, cancel := commandContext()
		defer cancel()
		m, err := systemdmanager.New(ctx, c.Bool("user"))
		if err != nil {
			return err
		}
		defer m.Close()

		unit := c.String("unit")
		switch action {
		case "start":
			err = m.Start(ctx, unit)
		case "stop":
			err = m.Stop(ctx, unit)
		default:
			err = m.Restart(ctx, unit)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %s done\n", systemdmanager.UnitName(unit), action)
		return nil
	}
}
