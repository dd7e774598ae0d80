// Package gdrive mirrors a manifest into a Google Drive folder. Drive has
// no hierarchical object keys, so each uploaded file carries appProperties
// recording its snapshot and relative path, and lookups go through a
// property query with a per-run in-memory path index.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/comfyvn/cloudsync/pkg/syncer"
)

// driveAPI is the slice of the Drive v3 service this backend uses, narrowed
// to an interface so tests can substitute a fake.
type driveAPI interface {
	List(ctx context.Context, query string) ([]*drive.File, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Create(ctx context.Context, f *drive.File, media io.Reader) (*drive.File, error)
	Update(ctx context.Context, fileID string, media io.Reader) error
	Delete(ctx context.Context, fileID string) error
	About(ctx context.Context) error
}

// Config selects the Drive folders the backend writes into.
type Config struct {
	// ParentID is the folder that receives synced file objects.
	ParentID string

	// ManifestParentID is the folder that receives committed manifest
	// objects. Defaults to ParentID.
	ManifestParentID string

	// Scopes override the OAuth scopes requested for the service
	// account. Defaults to drive.file.
	Scopes []string
}

// Client implements syncer.Client against Google Drive.
type Client struct {
	api              driveAPI
	parentID         string
	manifestParentID string

	// ids caches path lookups for the duration of one run, saving one
	// List call per already-seen path.
	ids map[string]string
}

// New builds a Drive sync client from service-account credentials JSON,
// typically read from the secrets vault. A missing parent folder id is a
// fatal configuration error raised before any I/O.
func New(ctx context.Context, cfg Config, credsJSON []byte) (*Client, error) {
	if cfg.ParentID == "" {
		return nil, syncer.NewConfigError("gdrive.parent_id", "missing")
	}
	if len(credsJSON) == 0 {
		return nil, syncer.NewConfigError(
			"gdrive.credentials", "missing service account JSON",
		)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{drive.DriveFileScope}
	}

	// Parse the service-account JSON up front so a bad vault payload
	// surfaces as a configuration error, not a failure deep inside the
	// Drive client.
	jwtCfg, err := google.JWTConfigFromJSON(credsJSON, scopes...)
	if err != nil {
		return nil, syncer.NewConfigError(
			"gdrive.credentials",
			fmt.Sprintf("invalid service account JSON: %v", err),
		)
	}
	slog.Debug("drive credentials parsed", "client_email", jwtCfg.Email)

	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credsJSON),
		option.WithScopes(scopes...),
	)
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	return NewWithAPI(&realDrive{svc: svc}, cfg), nil
}

// NewWithAPI wires a client over an existing Drive API implementation.
// Used by tests.
func NewWithAPI(api driveAPI, cfg Config) *Client {
	manifestParent := cfg.ManifestParentID
	if manifestParent == "" {
		manifestParent = cfg.ParentID
	}
	return &Client{
		api:              api,
		parentID:         cfg.ParentID,
		manifestParentID: manifestParent,
		ids:              map[string]string{},
	}
}

// Probe verifies the credentials can reach the Drive API.
func (c *Client) Probe(ctx context.Context) error {
	if err := c.api.About(ctx); err != nil {
		return fmt.Errorf("drive about: %w", err)
	}
	return nil
}

// realDrive adapts *drive.Service to driveAPI.
type realDrive struct {
	svc *drive.Service
}

func (d *realDrive) List(
	ctx context.Context, query string,
) ([]*drive.File, error) {
	var files []*drive.File
	pageToken := ""
	for {
		call := d.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, appProperties)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, err
		}
		files = append(files, list.Files...)
		pageToken = list.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

func (d *realDrive) Download(
	ctx context.Context, fileID string,
) (io.ReadCloser, error) {
	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d *realDrive) Create(
	ctx context.Context, f *drive.File, media io.Reader,
) (*drive.File, error) {
	return d.svc.Files.Create(f).Media(media).Context(ctx).Do()
}

func (d *realDrive) Update(
	ctx context.Context, fileID string, media io.Reader,
) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{}).
		Media(media).
		Context(ctx).
		Do()
	return err
}

func (d *realDrive) Delete(ctx context.Context, fileID string) error {
	err := d.svc.Files.Delete(fileID).Context(ctx).Do()
	if isDriveNotFound(err) {
		return nil
	}
	return err
}

func (d *realDrive) About(ctx context.Context) error {
	_, err := d.svc.About.Get().Fields("user").Context(ctx).Do()
	return err
}

func isDriveNotFound(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 404
	}
	return false
}
