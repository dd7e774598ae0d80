package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/comfyvn/cloudsync/pkg/manifest"
	"github.com/comfyvn/cloudsync/pkg/syncer"
)

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "path",
			Usage: "input path relative to root (repeatable, default .)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "exclude pattern (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "follow-symlinks",
			Usage: "descend into symlinks",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "show what would happen",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "JSON output",
		},
	}
}

func syncCmd() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "mirror a local tree onto the remote store",
		ArgsUsage: "<localRoot> <snapshot>",
		Flags:     syncFlags(),
		Action:    syncAction,
	}
}

func syncAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf(
			"usage: cloudsync sync <localRoot> <snapshot>",
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

	client, err := newSyncClient(ctx, c, cfg)
	if err != nil {
		return err
	}

	paths := c.StringSlice("path")
	if len(paths) == 0 {
		paths = []string{"."}
	}

	summary, err := syncer.Run(ctx, client,
		manifest.NewStore(cfg.CacheDir),
		syncer.RunOptions{
			Service:        cfg.Service,
			Snapshot:       snapshot,
			Root:           root,
			Paths:          paths,
			Excludes:       c.StringSlice("exclude"),
			FollowSymlinks: c.Bool("follow-symlinks"),
			DryRun:         c.Bool("dry-run"),
		},
	)

	var agg *syncer.AggregateError
	if errors.As(err, &agg) {
		// report what landed before failing the run
		if perr := printSummary(summary, c.Bool("json")); perr != nil {
			return perr
		}
		return err
	}
	if err != nil {
		return err
	}
	return printSummary(summary, c.Bool("json"))
}
