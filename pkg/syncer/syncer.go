// Package syncer wires the manifest engine to pluggable remote backends:
// build, diff, apply, commit. Backends implement Client; the per-item apply
// loop with its partial-failure handling lives here so every backend shares
// the same state machine.
package syncer

import (
	"context"

	"github.com/comfyvn/cloudsync/pkg/manifest"
)

// Client is the contract every remote backend implements.
type Client interface {
	// FetchRemoteManifest downloads the provider-side manifest for the
	// snapshot, or (nil, nil) when none exists yet.
	FetchRemoteManifest(
		ctx context.Context, snapshot string,
	) (*manifest.Manifest, error)

	// UploadManifest writes or overwrites the provider-side manifest.
	// It is the commit step: it runs only after a clean apply pass, so
	// the remote-visible manifest never claims files that failed to land.
	UploadManifest(
		ctx context.Context, snapshot string, m *manifest.Manifest,
	) error

	// ApplyPlan executes the plan against the backend. With dryRun set it
	// reports the plan with zero side effects. A partially failed pass
	// returns the summary alongside an *AggregateError.
	ApplyPlan(
		ctx context.Context,
		plan *manifest.Plan,
		m *manifest.Manifest,
		dryRun bool,
	) (*Summary, error)
}
