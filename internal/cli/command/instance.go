// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/server"
)

// InstanceCommand returns the instance subcommand group.
func InstanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "instance",
		Usage: "Manage live servlet instances",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a live instance",
				ArgsUsage: "APP ZONE SERVLET ADDRESS",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "Environment tag"},
					&cli.StringFlag{Name: "color", Usage: "Color tag"},
					&cli.IntFlag{Name: "weight", Usage: "Load-balancing weight", Value: 1},
				},
				Action: instanceAdd,
			},
			{
				Name:      "drop",
				Usage:     "Remove a live instance",
				ArgsUsage: "APP ZONE SERVLET ADDRESS",
				Action:    instanceDrop,
			},
		},
	}
}

func instanceArgs(c *cli.Context) (appName, zone, servlet, address string, err error) {
	appName, zone, servlet, address = c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), c.Args().Get(3)
	if appName == "" || zone == "" || servlet == "" || address == "" {
		return "", "", "", "", fmt.Errorf("app name, zone, servlet, and address required")
	}
	return appName, zone, servlet, address, nil
}

func instanceAdd(c *cli.Context) error {
	appName, zone, servlet, address, err := instanceArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	weight := int32(c.Int("weight"))
	if _, err := manager(ctx, client, server.OpAddInstance, catalog.InstanceRequest{
		AppName: appName,
		Zone:    zone,
		Servlet: servlet,
		Address: address,
		Env:     c.String("env"),
		Color:   c.String("color"),
		Weight:  &weight,
	}); err != nil {
		return err
	}

	fmt.Printf("instance registered: %s (%s/%s/%s)\n", address, appName, zone, servlet)
	return nil
}

func instanceDrop(c *cli.Context) error {
	appName, zone, servlet, address, err := instanceArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpDropInstance, catalog.InstanceRequest{
		AppName: appName,
		Zone:    zone,
		Servlet: servlet,
		Address: address,
	}); err != nil {
		return err
	}

	fmt.Printf("instance dropped: %s (%s/%s/%s)\n", address, appName, zone, servlet)
	return nil
}
