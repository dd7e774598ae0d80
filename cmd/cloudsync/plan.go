package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/comfyvn/cloudsync/pkg/manifest"
)

func planCmd() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "show what sync would do, without applying",
		ArgsUsage: "<localRoot> <snapshot>",
		Flags:     syncFlags(),
		Action:    planAction,
	}
}

func planAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf(
			"usage: cloudsync plan <localRoot> <snapshot>",
		)
	}
	root := c.Args().Get(0)
	snapshot := c.Args().Get(1)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	paths := c.StringSlice("path")
	if len(paths) == 0 {
		paths = []string{"."}
	}

	local, err := manifest.Build(manifest.BuildOptions{
		Name:           snapshot,
		Root:           root,
		Paths:          paths,
		Excludes:       c.StringSlice("exclude"),
		FollowSymlinks: c.Bool("follow-symlinks"),
	})
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}

	store := manifest.NewStore(cfg.CacheDir)
	remote, err := store.Load(cfg.Service, snapshot)
	if err != nil {
		return err
	}
	if remote == nil {
		client, err := newSyncClient(ctx, c, cfg)
		if err != nil {
			return err
		}
		remote, err = client.FetchRemoteManifest(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("fetch remote manifest: %w", err)
		}
	}

	plan := manifest.Diff(cfg.Service, snapshot, local, remote)

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	if plan.Empty() {
		fmt.Println("Already in sync.")
		return nil
	}
	printPlan(plan)
	fmt.Printf("---\n%d to upload (%s)",
		len(plan.Uploads), humanBytes(plan.BytesToUpload),
	)
	if len(plan.Deletes) > 0 {
		fmt.Printf(", %d to delete", len(plan.Deletes))
	}
	fmt.Println()
	return nil
}
