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

// ServletCommand returns the servlet subcommand group.
func ServletCommand() *cli.Command {
	return &cli.Command{
		Name:  "servlet",
		Usage: "Manage servlets",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a servlet",
				ArgsUsage: "APP ZONE NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "Environment tag"},
					&cli.StringFlag{Name: "color", Usage: "Color tag"},
				},
				Action: servletCreate,
			},
			{
				Name:      "drop",
				Usage:     "Drop a servlet",
				ArgsUsage: "APP ZONE NAME",
				Action:    servletDrop,
			},
			{
				Name:      "get",
				Usage:     "Get a servlet",
				ArgsUsage: "APP ZONE NAME",
				Action:    servletGet,
			},
		},
	}
}

func servletArgs(c *cli.Context) (appName, zone, name string, err error) {
	appName, zone, name = c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	if appName == "" || zone == "" || name == "" {
		return "", "", "", fmt.Errorf("app name, zone, and servlet name required")
	}
	return appName, zone, name, nil
}

func servletCreate(c *cli.Context) error {
	appName, zone, name, err := servletArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := manager(ctx, client, server.OpCreateServlet, catalog.CreateServletRequest{
		AppName: appName,
		Zone:    zone,
		Name:    name,
		Env:     c.String("env"),
		Color:   c.String("color"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("servlet created: %s/%s/%s (id=%s)\n", appName, zone, name, strconv.FormatInt(resp.ServletID, 10))
	return nil
}

func servletDrop(c *cli.Context) error {
	appName, zone, name, err := servletArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpDropServlet, catalog.DropServletRequest{AppName: appName, Zone: zone, Name: name}); err != nil {
		return err
	}

	fmt.Printf("servlet dropped: %s/%s/%s\n", appName, zone, name)
	return nil
}

func servletGet(c *cli.Context) error {
	appName, zone, name, err := servletArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryServlet, AppName: appName, Zone: zone, Servlet: name})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Servlet)
}
