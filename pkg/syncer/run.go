package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/comfyvn/cloudsync/pkg/manifest"
)

// RunOptions describe one sync invocation.
type RunOptions struct {
	Service        string
	Snapshot       string
	Root           string
	Paths          []string
	Excludes       []string
	FollowSymlinks bool
	DryRun         bool
}

// Run is the composition layer: build the local manifest, find the last
// known remote state (local cache first, remote fetch as fallback), diff,
// apply, and on success record the new state in the store.
//
// The store is only updated after a clean apply, mirroring the remote
// commit: a crash or partial failure leaves the cached state untouched and
// the next run re-detects the difference.
func Run(
	ctx context.Context,
	client Client,
	store *manifest.Store,
	opts RunOptions,
) (*Summary, error) {
	local, err := manifest.Build(manifest.BuildOptions{
		Name:           opts.Snapshot,
		Root:           opts.Root,
		Paths:          opts.Paths,
		Excludes:       opts.Excludes,
		FollowSymlinks: opts.FollowSymlinks,
	})
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	slog.Debug("local manifest built",
		"snapshot", opts.Snapshot, "entries", len(local.Entries),
	)

	remote, err := store.Load(opts.Service, opts.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("load cached manifest: %w", err)
	}
	if remote == nil {
		remote, err = client.FetchRemoteManifest(ctx, opts.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("fetch remote manifest: %w", err)
		}
		slog.Debug("remote manifest fetched",
			"snapshot", opts.Snapshot, "exists", remote != nil,
		)
	}

	plan := manifest.Diff(opts.Service, opts.Snapshot, local, remote)
	slog.Debug("plan computed",
		"uploads", len(plan.Uploads),
		"deletes", len(plan.Deletes),
		"unchanged", len(plan.Unchanged),
		"bytes", plan.BytesToUpload,
	)

	summary, err := client.ApplyPlan(ctx, plan, local, opts.DryRun)
	if err != nil {
		return summary, err
	}

	if !opts.DryRun {
		if _, err := store.Save(opts.Service, opts.Snapshot, local); err != nil {
			return summary, fmt.Errorf("save manifest cache: %w", err)
		}
	}
	return summary, nil
}
