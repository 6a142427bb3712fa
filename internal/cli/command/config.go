// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/cli/output"
	"github.com/gottingen/sirius-go/internal/server"
)

// ConfigCommand returns the config subcommand group, covering the catalog's
// versioned configuration entity (publish/get/list), not a local CLI
// settings file.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage versioned config blobs",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Publish a config version",
				ArgsUsage: "NAME VERSION FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "Content type: json, toml, yaml, xml, text, ini, gflags", Value: "text"},
				},
				Action: configCreate,
			},
			{
				Name:      "get",
				Usage:     "Get a config version (latest if VERSION omitted)",
				ArgsUsage: "NAME [VERSION]",
				Action:    configGet,
			},
			{
				Name:   "list",
				Usage:  "List known config names",
				Action: configList,
			},
			{
				Name:      "versions",
				Usage:     "List versions of a config",
				ArgsUsage: "NAME",
				Action:    configVersions,
			},
		},
	}
}

func parseVersion(s string) (catalog.Version, error) {
	var v catalog.Version
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return v, fmt.Errorf("version must be MAJOR.MINOR.PATCH, got %q", s)
	}
	nums := make([]uint32, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return v, fmt.Errorf("invalid version component %q: %w", p, err)
		}
		nums[i] = uint32(n)
	}
	return catalog.Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func configCreate(c *cli.Context) error {
	name, versionStr, filePath := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	if name == "" || versionStr == "" || filePath == "" {
		return fmt.Errorf("name, version, and file required")
	}

	version, err := parseVersion(versionStr)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := manager(ctx, client, server.OpCreateConfig, catalog.CreateConfigRequest{
		Name:        name,
		Version:     version,
		Content:     content,
		ContentType: catalog.ContentType(c.String("type")),
	}); err != nil {
		return err
	}

	fmt.Printf("config published: %s@%s\n", name, version.String())
	return nil
}

func configGet(c *cli.Context) error {
	name := c.Args().Get(0)
	if name == "" {
		return fmt.Errorf("config name required")
	}
	version, err := parseVersion(c.Args().Get(1))
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryGetConfig, Config: name, Version: version})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Config)
}

func configList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryListConfig})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Names)
}

func configVersions(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("config name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := query(ctx, client, server.QueryRequest{OpType: server.QueryListConfigVersion, Config: name})
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, resp.Versions)
}
