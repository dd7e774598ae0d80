package syncer

import (
	"context"
	"log/slog"

	"github.com/comfyvn/cloudsync/pkg/manifest"
)

// ItemOps are the backend-specific per-file operations the apply loop
// drives. Each call handles exactly one path.
type ItemOps struct {
	Upload func(ctx context.Context, change manifest.Change) error
	Delete func(ctx context.Context, change manifest.Change) error
}

// Execute runs the plan application state machine shared by all backends.
//
// Dry runs report the plan and stop with zero side effects. Otherwise
// uploads and deletes run sequentially in plan order; a per-item failure is
// recorded and the loop continues. Commit runs only after a clean pass, so
// a partially failed run is never recorded as done: the returned
// *AggregateError carries the partial summary instead.
func Execute(
	ctx context.Context,
	plan *manifest.Plan,
	dryRun bool,
	ops ItemOps,
	commit func(ctx context.Context) error,
) (*Summary, error) {
	s := newSummary(plan.Service, plan.Snapshot)
	s.BytesToUpload = plan.BytesToUpload
	for _, c := range plan.Unchanged {
		s.Unchanged = append(s.Unchanged, c.Path)
	}

	if dryRun {
		for _, c := range plan.Uploads {
			s.Uploads = append(s.Uploads, c.Path)
		}
		for _, c := range plan.Deletes {
			s.Deletes = append(s.Deletes, c.Path)
		}
		s.Status = StatusDryRun
		return s, nil
	}

	for _, c := range plan.Uploads {
		if err := ops.Upload(ctx, c); err != nil {
			slog.Warn("upload failed",
				"path", c.Path, "error", err,
			)
			s.Errors = append(s.Errors, ItemError{
				Action: manifest.ActionUpload,
				Path:   c.Path,
				Error:  err.Error(),
			})
			continue
		}
		slog.Debug("uploaded", "path", c.Path, "size", c.Size)
		s.Uploads = append(s.Uploads, c.Path)
	}

	for _, c := range plan.Deletes {
		if err := ops.Delete(ctx, c); err != nil {
			slog.Warn("delete failed",
				"path", c.Path, "error", err,
			)
			s.Errors = append(s.Errors, ItemError{
				Action: manifest.ActionDelete,
				Path:   c.Path,
				Error:  err.Error(),
			})
			continue
		}
		slog.Debug("deleted", "path", c.Path)
		s.Deletes = append(s.Deletes, c.Path)
	}

	if len(s.Errors) > 0 {
		s.Status = StatusPartial
		return s, &AggregateError{Summary: s}
	}

	if err := commit(ctx); err != nil {
		s.Status = StatusPartial
		s.Errors = append(s.Errors, ItemError{
			Action: "commit",
			Error:  err.Error(),
		})
		return s, &AggregateError{Summary: s}
	}

	s.Status = StatusOK
	return s, nil
}
