package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/comfyvn/cloudsync/pkg/config"
	"github.com/comfyvn/cloudsync/pkg/manifest"
	"github.com/comfyvn/cloudsync/pkg/syncer"
	"github.com/comfyvn/cloudsync/pkg/syncer/gdrive"
	"github.com/comfyvn/cloudsync/pkg/syncer/s3sync"
	"github.com/comfyvn/cloudsync/pkg/vault"
)

const appVersion = "0.1.0"

func main() {
	app := &cli.App{
		Name:  "cloudsync",
		Usage: "mirror a local project tree onto a remote store",
		Before: func(c *cli.Context) error {
			configureLogging(c.Bool("verbose"))
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "service",
				Usage: "sync backend: s3 or gdrive",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "manifest cache root",
			},
			&cli.StringFlag{
				Name:  "vault",
				Usage: "secrets vault path",
			},
			&cli.StringFlag{
				Name:  "passphrase",
				Usage: "vault passphrase (overrides " +
					vault.DefaultPassphraseEnv + ")",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 15 * time.Minute,
				Usage: "operation timeout",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
		},
		Commands: []*cli.Command{
			syncCmd(),
			planCmd(),
			vaultCmd(),
			doctorCmd(),
			{
				Name:  "version",
				Usage: "print version",
				Action: func(c *cli.Context) error {
					fmt.Println(appVersion)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	))
}

// loadConfig merges the environment config with global CLI flags; flags win.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s := c.String("service"); s != "" {
		cfg.Service = s
	}
	if d := c.String("cache-dir"); d != "" {
		cfg.CacheDir = d
	}
	if p := c.String("vault"); p != "" {
		cfg.Vault.Path = p
	}
	return cfg, nil
}

func openVault(cfg *config.Config) *vault.Vault {
	return vault.New(cfg.Vault.Path,
		vault.WithIterations(cfg.Vault.Iterations),
		vault.WithMaxBackups(cfg.Vault.MaxBackups),
	)
}

// prober is the optional connectivity check a backend may offer.
type prober interface {
	Probe(ctx context.Context) error
}

// newSyncClient constructs the configured backend, feeding it credentials
// unlocked from the vault. An unknown service name is a configuration
// error, not a nil client discovered later.
func newSyncClient(
	ctx context.Context,
	c *cli.Context,
	cfg *config.Config,
) (syncer.Client, error) {
	switch cfg.Service {
	case "s3":
		creds, err := s3Credentials(c, cfg)
		if err != nil {
			return nil, err
		}
		return s3sync.New(ctx, s3sync.Config{
			Bucket:      cfg.S3.Bucket,
			Prefix:      cfg.S3.Prefix,
			Region:      cfg.S3.Region,
			Profile:     cfg.S3.Profile,
			EndpointURL: cfg.S3.EndpointURL,
		}, creds)
	case "gdrive":
		credsJSON, err := driveCredentials(c, cfg)
		if err != nil {
			return nil, err
		}
		return gdrive.New(ctx, gdrive.Config{
			ParentID:         cfg.Drive.ParentID,
			ManifestParentID: cfg.Drive.ManifestParentID,
			Scopes:           cfg.Drive.Scopes,
		}, credsJSON)
	default:
		return nil, syncer.NewConfigError(
			"service",
			fmt.Sprintf("unknown backend %q (want s3 or gdrive)", cfg.Service),
		)
	}
}

// s3Credentials reads access-key material from the vault when one exists.
// Without a vault the AWS default credential chain applies.
func s3Credentials(
	c *cli.Context, cfg *config.Config,
) (*s3sync.Credentials, error) {
	v := openVault(cfg)
	if !v.Exists() {
		slog.Debug("no vault, using AWS default credential chain")
		return nil, nil
	}
	payload, err := v.Unlock(c.String("passphrase"))
	if err != nil {
		return nil, err
	}
	id, _ := payload["aws_access_key_id"].(string)
	secret, _ := payload["aws_secret_access_key"].(string)
	token, _ := payload["aws_session_token"].(string)
	if id == "" || secret == "" {
		slog.Debug("vault has no AWS keys, using default chain")
		return nil, nil
	}
	return &s3sync.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    token,
	}, nil
}

// driveCredentials reads the service-account JSON from the vault. The drive
// backend cannot fall back to an ambient credential chain.
func driveCredentials(
	c *cli.Context, cfg *config.Config,
) ([]byte, error) {
	v := openVault(cfg)
	payload, err := v.Unlock(c.String("passphrase"))
	if err != nil {
		return nil, err
	}
	switch sa := payload["gdrive_service_account"].(type) {
	case string:
		return []byte(sa), nil
	case map[string]any:
		return json.Marshal(sa)
	default:
		return nil, syncer.NewConfigError(
			"gdrive.credentials",
			"vault has no gdrive_service_account entry",
		)
	}
}

func contextWithTimeout(
	c *cli.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(
		context.Background(),
		c.Duration("timeout"),
	)
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf(
			"%.1f MB", float64(n)/(1<<20),
		)
	case n >= 1<<10:
		return fmt.Sprintf(
			"%.1f KB", float64(n)/(1<<10),
		)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func printPlan(plan *manifest.Plan) {
	for _, ch := range plan.Uploads {
		prefix := "+"
		if ch.Reason == manifest.ReasonContentMismatch {
			prefix = "~"
		}
		fmt.Printf("  %s %s (%s)\n",
			prefix, ch.Path, humanBytes(ch.Size),
		)
	}
	for _, ch := range plan.Deletes {
		fmt.Printf("  - %s\n", ch.Path)
	}
}

func printSummary(s *syncer.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Printf(
		"%s: %d uploaded (%s), %d deleted, %d unchanged\n",
		s.Status,
		len(s.Uploads), humanBytes(s.BytesToUpload),
		len(s.Deletes), len(s.Unchanged),
	)
	for _, e := range s.Errors {
		fmt.Printf("  ! %s %s: %s\n", e.Action, e.Path, e.Error)
	}
	return nil
}
