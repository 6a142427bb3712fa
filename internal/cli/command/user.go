// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/cli/output"
	"github.com/gottingen/sirius-go/internal/server"
)

// UserCommand returns the user subcommand group for managing the catalog's
// privilege records.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage privilege accounts",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a privilege account",
				ArgsUsage: "USERNAME APP PASSWORD_HASH",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "allowed-ip", Usage: "Allowed client IP (repeatable)"},
				},
				Action: userCreate,
			},
			{
				Name:      "drop",
				Usage:     "Drop a privilege account",
				ArgsUsage: "USERNAME",
				Action:    userDrop,
			},
			{
				Name:      "add-privilege",
				Usage:     "Grant zone/servlet privileges",
				ArgsUsage: "USERNAME",
				Flags:     privilegeFlags(),
				Action:    userAddPrivilege,
			},
			{
				Name:      "drop-privilege",
				Usage:     "Revoke zone/servlet privileges",
				ArgsUsage: "USERNAME",
				Flags:     privilegeFlags(),
				Action:    userDropPrivilege,
			},
			{
				Name:      "get",
				Usage:     "Get a user's privilege record",
				ArgsUsage: "USERNAME",
				Action:    userGet,
			},
			{
				Name:      "flatten",
				Usage:     "Get a user's effective, zone-expanded servlet grants",
				ArgsUsage: "USERNAME",
				Action:    userFlatten,
			},
		},
	}
}

func privilegeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "zone", Usage: "ZONE:rw grant (repeatable, e.g. billing:rw or billing:r)"},
		&cli.StringSliceFlag{Name: "servlet", Usage: "ZONE/SERVLET:rw grant (repeatable)"},
		&cli.BoolFlag{Name: "force", Usage: "Apply even if some grants don't resolve to live entities"},
	}
}

func parseZoneGrants(values []string) ([]catalog.ZoneGrant, error) {
	var grants []catalog.ZoneGrant
	for _, v := range values {
		zone, rw, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("zone grant %q must be ZONE:rw", v)
		}
		grants = append(grants, catalog.ZoneGrant{Zone: zone, Read: strings.Contains(rw, "r"), Write: strings.Contains(rw, "w")})
	}
	return grants, nil
}

func parseServletGrants(values []string) ([]catalog.ServletGrant, error) {
	var grants []catalog.ServletGrant
	for _, v := range values {
		path, rw, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("servlet grant %q must be ZONE/SERVLET:rw", v)
		}
		zone, servlet, ok := strings.Cut(path, "/")
		if !ok {
			return nil, fmt.Errorf("servlet grant %q must be ZONE/SERVLET:rw", v)
		}
		grants = append(grants, catalog.ServletGrant{Zone: zone, Servlet: servlet, Read: strings.Contains(rw, "r"), Write: strings.Contains(rw, "w")})
	}
	return grants, nil
}

func userCreate(c *cli.Context) error {
	username, appName, passwordHash := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	if username == "" || appName == "" || passwordHash == "" {
		return fmt.Errorf("username, app name, and password hash required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpCreateUser, catalog.CreateUserRequest{
		Username:     username,
		AppName:      appName,
		PasswordHash: passwordHash,
		AllowedIPs:   c.StringSlice("allowed-ip"),
	}); err != nil {
		return err
	}

	fmt.Printf("user created: %s\n", username)
	return nil
}

func userDrop(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return fmt.Errorf("username required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpDropUser, catalog.DropUserRequest{Username: username}); err != nil {
		return err
	}

	fmt.Printf("user dropped: %s\n", username)
	return nil
}

func privilegeRequest(c *cli.Context) (catalog.PrivilegeRequest, error) {
	username := c.Args().First()
	if username == "" {
		return catalog.PrivilegeRequest{}, fmt.Errorf("username required")
	}
	zones, err := parseZoneGrants(c.StringSlice("zone"))
	if err != nil {
		return catalog.PrivilegeRequest{}, err
	}
	servlets, err := parseServletGrants(c.StringSlice("servlet"))
	if err != nil {
		return catalog.PrivilegeRequest{}, err
	}
	return catalog.PrivilegeRequest{
		Username: username,
		Zones:    zones,
		Servlets: servlets,
		Force:    c.Bool("force"),
	}, nil
}

func userAddPrivilege(c *cli.Context) error {
	req, err := privilegeRequest(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpAddPrivilege, req); err != nil {
		return err
	}

	fmt.Printf("privileges granted: %s\n", req.Username)
	return nil
}

func userDropPrivilege(c *cli.Context) error {
	req, err := privilegeRequest(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpDropPrivilege, req); err != nil {
		return err
	}

	fmt.Printf("privileges revoked: %s\n", req.Username)
	return nil
}

func userGet(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return fmt.Errorf("username required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryUserPrivilege, User: username})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Privilege)
}

func userFlatten(c *cli.Context) error {
	username := c.Args().First()
	if username == "" {
		return fmt.Errorf("username required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryPrivilegeFlatten, User: username})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	if resp.Privilege == nil {
		return formatter.Format(os.Stdout, []catalog.ServletGrant{})
	}
	return formatter.Format(os.Stdout, resp.Privilege.Servlets)
}
