package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/comfyvn/cloudsync/pkg/manifest"
	"github.com/comfyvn/cloudsync/pkg/paths"
	"github.com/comfyvn/cloudsync/pkg/syncer"
)

// appProperties keys used as the path index. Drive has no object keys, so
// these are the only durable record of where an object belongs.
const (
	propSyncPath = "syncPath"
	propSnapshot = "snapshot"
	propManifest = "manifestFor"
)

func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func (c *Client) fileQuery(snapshot, rel string) string {
	return fmt.Sprintf(
		"'%s' in parents and trashed=false"+
			" and appProperties has { key='%s' and value='%s' }"+
			" and appProperties has { key='%s' and value='%s' }",
		escapeQueryValue(c.parentID),
		propSnapshot, escapeQueryValue(snapshot),
		propSyncPath, escapeQueryValue(rel),
	)
}

func (c *Client) manifestQuery(snapshot string) string {
	return fmt.Sprintf(
		"'%s' in parents and trashed=false"+
			" and appProperties has { key='%s' and value='%s' }",
		escapeQueryValue(c.manifestParentID),
		propManifest, escapeQueryValue(snapshot),
	)
}

// lookup resolves a (snapshot, rel) pair to a Drive file id, consulting the
// per-run cache first. Returns "" when no such object exists.
func (c *Client) lookup(
	ctx context.Context, snapshot, rel string,
) (string, error) {
	cacheKey := snapshot + "\x00" + rel
	if id, ok := c.ids[cacheKey]; ok {
		return id, nil
	}
	files, err := c.api.List(ctx, c.fileQuery(snapshot, rel))
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", rel, err)
	}
	if len(files) == 0 {
		return "", nil
	}
	c.ids[cacheKey] = files[0].Id
	return files[0].Id, nil
}

// FetchRemoteManifest downloads the committed manifest object, or (nil, nil)
// when the snapshot has never been synced.
func (c *Client) FetchRemoteManifest(
	ctx context.Context, snapshot string,
) (*manifest.Manifest, error) {
	files, err := c.api.List(ctx, c.manifestQuery(snapshot))
	if err != nil {
		return nil, fmt.Errorf("find manifest: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	body, err := c.api.Download(ctx, files[0].Id)
	if err != nil {
		return nil, fmt.Errorf("download manifest: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return manifest.UnmarshalWire(data)
}

// UploadManifest writes or overwrites the committed manifest object.
func (c *Client) UploadManifest(
	ctx context.Context, snapshot string, m *manifest.Manifest,
) error {
	data, err := m.MarshalWire()
	if err != nil {
		return err
	}

	files, err := c.api.List(ctx, c.manifestQuery(snapshot))
	if err != nil {
		return fmt.Errorf("find manifest: %w", err)
	}
	if len(files) > 0 {
		if err := c.api.Update(ctx, files[0].Id, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("update manifest: %w", err)
		}
		return nil
	}

	_, err = c.api.Create(ctx, &drive.File{
		Name:     snapshot + ".json",
		MimeType: "application/json",
		Parents:  []string{c.manifestParentID},
		AppProperties: map[string]string{
			propManifest: snapshot,
		},
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	return nil
}

// ApplyPlan uploads and deletes per the plan, committing the manifest only
// after a clean pass.
func (c *Client) ApplyPlan(
	ctx context.Context,
	plan *manifest.Plan,
	m *manifest.Manifest,
	dryRun bool,
) (*syncer.Summary, error) {
	ops := syncer.ItemOps{
		Upload: func(ctx context.Context, ch manifest.Change) error {
			return c.uploadFile(ctx, plan.Snapshot, m.Root, ch.Path)
		},
		Delete: func(ctx context.Context, ch manifest.Change) error {
			return c.deleteFile(ctx, plan.Snapshot, ch.Path)
		},
	}
	return syncer.Execute(ctx, plan, dryRun, ops,
		func(ctx context.Context) error {
			return c.UploadManifest(ctx, plan.Snapshot, m)
		},
	)
}

// uploadFile streams one local file into the parent folder, updating the
// existing object when the path already has one.
func (c *Client) uploadFile(
	ctx context.Context, snapshot, root, rel string,
) error {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if !paths.IsWithinDir(root, abs) {
		return fmt.Errorf("path escapes root: %s", rel)
	}
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()

	id, err := c.lookup(ctx, snapshot, rel)
	if err != nil {
		return err
	}
	if id != "" {
		if err := c.api.Update(ctx, id, f); err != nil {
			return fmt.Errorf("update %s: %w", rel, err)
		}
		return nil
	}

	created, err := c.api.Create(ctx, &drive.File{
		Name:    path.Base(rel),
		Parents: []string{c.parentID},
		AppProperties: map[string]string{
			propSyncPath: rel,
			propSnapshot: snapshot,
		},
	}, f)
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	c.ids[snapshot+"\x00"+rel] = created.Id
	return nil
}

// deleteFile removes the remote object for a path. An already-absent object
// counts as success: deletes are idempotent.
func (c *Client) deleteFile(
	ctx context.Context, snapshot, rel string,
) error {
	id, err := c.lookup(ctx, snapshot, rel)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	if err := c.api.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	delete(c.ids, snapshot+"\x00"+rel)
	return nil
}
