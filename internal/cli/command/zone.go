// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/cli/output"
	"github.com/gottingen/sirius-go/internal/server"
)

// ZoneCommand returns the zone subcommand group.
func ZoneCommand() *cli.Command {
	return &cli.Command{
		Name:  "zone",
		Usage: "Manage zones",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a zone",
				ArgsUsage: "APP NAME",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "quota", Usage: "Instance quota"},
				},
				Action: zoneCreate,
			},
			{
				Name:      "drop",
				Usage:     "Drop a zone",
				ArgsUsage: "APP NAME",
				Action:    zoneDrop,
			},
			{
				Name:      "get",
				Usage:     "Get a zone",
				ArgsUsage: "APP NAME",
				Action:    zoneGet,
			},
		},
	}
}

func zoneArgs(c *cli.Context) (appName, name string, err error) {
	appName, name = c.Args().Get(0), c.Args().Get(1)
	if appName == "" || name == "" {
		return "", "", fmt.Errorf("app name and zone name required")
	}
	return appName, name, nil
}

func zoneCreate(c *cli.Context) error {
	appName, name, err := zoneArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := manager(ctx, client, server.OpCreateZone, catalog.CreateZoneRequest{
		AppName: appName,
		Name:    name,
		Quota:   c.Int64("quota"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("zone created: %s/%s (id=%s)\n", appName, name, strconv.FormatInt(resp.ZoneID, 10))
	return nil
}

func zoneDrop(c *cli.Context) error {
	appName, name, err := zoneArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpDropZone, catalog.DropZoneRequest{AppName: appName, Name: name}); err != nil {
		return err
	}

	fmt.Printf("zone dropped: %s/%s\n", appName, name)
	return nil
}

func zoneGet(c *cli.Context) error {
	appName, name, err := zoneArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryZone, AppName: appName, Zone: name})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Zone)
}
