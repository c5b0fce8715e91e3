package main

import (
	"sort"

	"github.com/urfave/cli/v3"
)

func InitApp() *cli.Command {
	app := &cli.Command{
		Name:  "tagcache",
		Usage: "tag-scoped cache registry and freshness demo",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to tagcache.yaml",
				Sources: cli.EnvVars("TAGCACHE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			ServeCommand(),
			IsolationCommand(),
			RevalidateCommand(),
		},
	}

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}
	return app
}
