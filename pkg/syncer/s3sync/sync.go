package s3sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/comfyvn/cloudsync/pkg/manifest"
	"github.com/comfyvn/cloudsync/pkg/paths"
	"github.com/comfyvn/cloudsync/pkg/syncer"
)

func (c *Client) objectKey(snapshot, rel string) string {
	return path.Join(c.prefix, snapshot, rel)
}

func (c *Client) manifestKey(snapshot string) string {
	return path.Join(c.prefix, "manifests", snapshot+".json")
}

// FetchRemoteManifest downloads the committed manifest object, or (nil, nil)
// when the snapshot has never been synced.
func (c *Client) FetchRemoteManifest(
	ctx context.Context, snapshot string,
) (*manifest.Manifest, error) {
	key := c.manifestKey(snapshot)
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", c.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", c.bucket, key, err)
	}
	return manifest.UnmarshalWire(data)
}

// UploadManifest overwrites the committed manifest object.
func (c *Client) UploadManifest(
	ctx context.Context, snapshot string, m *manifest.Manifest,
) error {
	data, err := m.MarshalWire()
	if err != nil {
		return err
	}
	key := c.manifestKey(snapshot)
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// ApplyPlan streams uploads and issues deletes per the plan, committing the
// manifest only after a clean pass.
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
			key := c.objectKey(plan.Snapshot, ch.Path)
			_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return fmt.Errorf("delete s3://%s/%s: %w",
					c.bucket, key, err,
				)
			}
			return nil
		},
	}
	return syncer.Execute(ctx, plan, dryRun, ops,
		func(ctx context.Context) error {
			return c.UploadManifest(ctx, plan.Snapshot, m)
		},
	)
}

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

	key := c.objectKey(snapshot, rel)
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
