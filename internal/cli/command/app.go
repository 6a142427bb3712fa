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

// AppCommand returns the app subcommand group.
func AppCommand() *cli.Command {
	return &cli.Command{
		Name:  "app",
		Usage: "Manage apps (tenants)",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an app",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "quota", Usage: "Instance quota"},
				},
				Action: appCreate,
			},
			{
				Name:      "drop",
				Usage:     "Drop an app",
				ArgsUsage: "NAME",
				Action:    appDrop,
			},
			{
				Name:      "get",
				Usage:     "Get an app",
				ArgsUsage: "NAME",
				Action:    appGet,
			},
		},
	}
}

func appCreate(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("app name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := manager(ctx, client, server.OpCreateApp, catalog.CreateAppRequest{
		Name:  name,
		Quota: c.Int64("quota"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("app created: %s (id=%s)\n", name, strconv.FormatInt(resp.AppID, 10))
	return nil
}

func appDrop(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("app name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpDropApp, catalog.DropAppRequest{Name: name}); err != nil {
		return err
	}

	fmt.Printf("app dropped: %s\n", name)
	return nil
}

func appGet(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("app name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryApp, AppName: name})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.App)
}
