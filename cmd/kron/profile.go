package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli"
)

func profileList(c *cli.Context) error {
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

	profiles, err := store.Profiles(ctx)
	if err != nil {
		return err
	}
	active, hasActive := int64(0), false
	if id, err := e.profileFor(c); err == nil {
		active, hasActive = id, true
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE")
	for _, p := range profiles {
		mark := ""
		if hasActive && p.ID == active {
			mark = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Name, mark)
	}
	return w.Flush()
}

func profileAdd(c *cli.Context) error {
	name := strings.TrimSpace(strings.Join(c.Args(), " "))
	if name == "" {
		return errors.New("profile name is required")
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

	id, err := store.CreateProfile(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created profile %d %q\n", id, name)
	return nil
}
