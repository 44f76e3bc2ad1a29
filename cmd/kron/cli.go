package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config-dir",
		Usage:  "directory holding kron.db, config.json and sounds/ (default: <user config dir>/kron)",
		EnvVar: "KRON_CONFIG_DIR",
	},
	cli.StringFlag{
		Name:   "resource-dir",
		Value:  "./resources",
		Usage:  "directory holding the bundled default_sound.mp3",
		EnvVar: "KRON_RESOURCE_DIR",
	},
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "daemon config file (default: <config-dir>/kron.yaml)",
		EnvVar: "KRON_CONFIG",
	},
	cli.StringFlag{
		Name:  "log-level",
		Value: "warn",
		Usage: "log level for one-shot commands",
	},
}

func newCLI() *cli.App {
	app := cli.NewApp()
	app.Name = "kron"
	app.HelpName = "kron"
	app.Usage = "plays scheduled chimes"
	app.UsageText = "kron [global options] <command> [arguments...]"
	app.Version = version
	if commit != "" {
		app.Version = fmt.Sprintf("%s (%s)", version, commit)
	}
	app.Flags = globalFlags
	app.Action = runDaemon
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "start the scheduler and run until interrupted",
			Action: runDaemon,
		},
		{
			Name:      "due",
			Usage:     "show what would play at a given minute",
			UsageText: `kron due [--at "2024-03-15 08:00"] [--profile 1]`,
			Action:    due,
			Flags:     dueFlags,
		},
		{
			Name:   "agenda",
			Usage:  "list a day's chimes for a profile",
			Action: agenda,
			Flags:  agendaFlags,
		},
		{
			Name:  "profile",
			Usage: "manage profiles",
			Subcommands: []cli.Command{
				{Name: "ls", Usage: "list profiles", Action: profileList},
				{Name: "add", Usage: "create a profile", ArgsUsage: "NAME", Action: profileAdd},
			},
		},
		{
			Name:  "sound",
			Usage: "manage sound assets",
			Subcommands: []cli.Command{
				{Name: "ls", Usage: "list sounds", Action: soundList},
				{Name: "add", Usage: "import an audio file", ArgsUsage: "FILE", Action: soundAdd, Flags: soundAddFlags},
				{Name: "rm", Usage: "delete a sound and its file", ArgsUsage: "ID", Action: soundRemove},
				{Name: "cat", Usage: "write a sound file to stdout", ArgsUsage: "ID", Action: soundCat},
				{Name: "play", Usage: "play a sound through the fallback chain", ArgsUsage: "ID|PATH", Action: soundPlay, Flags: soundPlayFlags},
			},
		},
		{
			Name:  "service",
			Usage: "control the kron systemd unit",
			Subcommands: []cli.Command{
				{Name: "status", Action: serviceStatus, Flags: serviceFlags},
				{Name: "start", Action: serviceAction("start"), Flags: serviceFlags},
				{Name: "stop", Action: serviceAction("stop"), Flags: serviceFlags},
				{Name: "restart", Action: serviceAction("restart"), Flags: serviceFlags},
			},
		},
	}
	return app
}
