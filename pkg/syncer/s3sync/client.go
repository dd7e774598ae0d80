// Package s3sync mirrors a manifest onto an S3 bucket. File objects land at
// {prefix}/{snapshot}/{relative_path}; the committed manifest object lives
// at {prefix}/manifests/{snapshot}.json.
package s3sync

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/comfyvn/cloudsync/pkg/syncer"
)

// S3API is the slice of the AWS SDK S3 client this backend uses. Narrowed
// to an interface so tests can substitute a mock.
type S3API interface {
	PutObject(
		ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
	GetObject(
		ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
	DeleteObject(
		ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
	HeadBucket(
		ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options),
	) (*s3.HeadBucketOutput, error)
}

// Config selects the bucket and how to reach it.
type Config struct {
	Bucket      string
	Prefix      string
	Region      string
	Profile     string
	EndpointURL string
}

// Credentials is the externally-unlocked access-key material handed to the
// constructor, typically read from the secrets vault.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Client implements syncer.Client against S3.
type Client struct {
	api    S3API
	bucket string
	prefix string
}

// New builds an S3 sync client. Missing bucket is a fatal configuration
// error raised before any I/O.
func New(ctx context.Context, cfg Config, creds *Credentials) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, syncer.NewConfigError("s3.bucket", "missing")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithSharedConfigProfile(cfg.Profile),
		)
	}
	if creds != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				creds.SessionToken,
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.EndpointURL != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		})
	}

	return NewWithAPI(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewWithAPI wires a client over an existing S3 API implementation.
// Used by tests.
func NewWithAPI(api S3API, cfg Config) *Client {
	return &Client{
		api:    api,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

// Probe verifies the bucket is reachable with the configured credentials.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", c.bucket, err)
	}
	return nil
}
