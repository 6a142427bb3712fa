// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gottingen/sirius-go/internal/cli/output"
	"github.com/gottingen/sirius-go/internal/server"
)

// NamingCommand returns the naming query command.
func NamingCommand() *cli.Command {
	return &cli.Command{
		Name:      "naming",
		Usage:     "Resolve live servlet instances for an app",
		ArgsUsage: "APP",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "zone", Usage: "Restrict to zone (repeatable)"},
			&cli.StringSliceFlag{Name: "env", Usage: "Restrict to environment tag (repeatable)"},
			&cli.StringSliceFlag{Name: "color", Usage: "Restrict to color tag (repeatable)"},
		},
		Action: namingResolve,
	}
}

func namingResolve(c *cli.Context) error {
	app := c.Args().First()
	if app == "" {
		return fmt.Errorf("app name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := naming(ctx, client, server.NamingRequest{
		App:    app,
		Zones:  c.StringSlice("zone"),
		Envs:   c.StringSlice("env"),
		Colors: c.StringSlice("color"),
	})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Servlets)
}
