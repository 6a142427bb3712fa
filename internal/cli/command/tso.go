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

// TsoCommand returns the tso subcommand group.
func TsoCommand() *cli.Command {
	return &cli.Command{
		Name:  "tso",
		Usage: "Timestamp oracle operations",
		Subcommands: []*cli.Command{
			{
				Name:  "gen",
				Usage: "Generate a timestamp range",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "count", Usage: "Number of timestamps to reserve", Value: 1},
				},
				Action: tsoGen,
			},
			{
				Name:  "reset",
				Usage: "Administratively correct the clock (requires --force to move it backward)",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "physical", Usage: "New physical time in milliseconds", Required: true},
					&cli.Int64Flag{Name: "logical", Usage: "New logical counter"},
					&cli.Int64Flag{Name: "save-physical", Usage: "New save-ahead physical watermark"},
					&cli.BoolFlag{Name: "force", Usage: "Allow moving the clock backward"},
				},
				Action: tsoResetAction,
			},
		},
	}
}

func tsoGen(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := tso(ctx, client, server.TsoRequest{OpType: server.TsoGen, Count: c.Int64("count")})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp)
}

func tsoResetAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := tso(ctx, client, server.TsoRequest{
		OpType:          server.TsoReset,
		CurrentPhysical: c.Int64("physical"),
		CurrentLogical:  c.Int64("logical"),
		SavePhysical:    c.Int64("save-physical"),
		Force:           c.Bool("force"),
	})
	if err != nil {
		return err
	}

	_ = resp
	fmt.Println("clock reset applied")
	return nil
}
