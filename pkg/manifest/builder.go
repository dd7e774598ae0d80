package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/comfyvn/cloudsync/pkg/paths"
)

const hashChunkSize = 1 << 20

// BuildOptions control a single manifest build.
type BuildOptions struct {
	// Name labels the produced manifest (the snapshot name).
	Name string

	// Root is the absolute local path all entry paths are relative to.
	Root string

	// Paths are the input files or directories, resolved against Root
	// when not absolute. Inputs that do not exist are logged and skipped.
	Paths []string

	// Excludes are prefix or glob patterns matched against the
	// root-relative path.
	Excludes []string

	// FollowSymlinks enables descending into symlinked files and
	// directories. Off by default to prevent cycles.
	FollowSymlinks bool
}

// Build walks the input paths and produces a manifest with a streaming
// SHA-256 per regular file. Directories are traversed with an explicit
// stack so arbitrarily deep trees cannot exhaust the goroutine stack.
func Build(opts BuildOptions) (*Manifest, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	matcher := paths.NewExcludeMatcher(opts.Excludes)

	m := &Manifest{
		Name:      opts.Name,
		Root:      root,
		CreatedAt: time.Now().UTC(),
		Entries:   map[string]Entry{},
	}

	buf := make([]byte, hashChunkSize)
	var stack []string

	for _, in := range opts.Paths {
		abs := in
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, paths.CleanRelPath(in))
		}
		info, err := statMaybeLink(abs, opts.FollowSymlinks)
		if err != nil {
			slog.Warn("skipping missing sync path",
				"path", in, "error", err,
			)
			continue
		}
		if info == nil {
			continue // unfollowed symlink
		}
		if info.IsDir() {
			stack = append(stack, abs)
			continue
		}
		if info.Mode().IsRegular() {
			if err := addFile(m, matcher, root, abs, buf); err != nil {
				return nil, err
			}
		}
	}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ents, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", dir, err)
		}
		for _, ent := range ents {
			abs := filepath.Join(dir, ent.Name())
			rel, err := relPath(root, abs)
			if err != nil {
				return nil, err
			}
			if matcher.Match(rel) {
				continue
			}

			info, err := statMaybeLink(abs, opts.FollowSymlinks)
			if err != nil {
				slog.Warn("skipping unreadable path",
					"path", rel, "error", err,
				)
				continue
			}
			if info == nil {
				continue
			}
			switch {
			case info.IsDir():
				stack = append(stack, abs)
			case info.Mode().IsRegular():
				if err := addFile(m, matcher, root, abs, buf); err != nil {
					return nil, err
				}
			}
		}
	}

	return m, nil
}

// statMaybeLink stats a path without traversing a symlink unless following
// is enabled. Returns (nil, nil) for a symlink that should be ignored.
func statMaybeLink(abs string, follow bool) (os.FileInfo, error) {
	info, err := os.Lstat(abs)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return info, nil
	}
	if !follow {
		return nil, nil
	}
	return os.Stat(abs)
}

func relPath(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", abs, err)
	}
	rel = filepath.ToSlash(rel)
	if err := paths.ValidateRelPath(rel); err != nil {
		return "", fmt.Errorf("invalid entry path: %w", err)
	}
	return rel, nil
}

func addFile(
	m *Manifest,
	matcher *paths.ExcludeMatcher,
	root, abs string,
	buf []byte,
) error {
	rel, err := relPath(root, abs)
	if err != nil {
		return err
	}
	if matcher.Match(rel) {
		return nil
	}
	entry, err := hashFile(abs, buf)
	if err != nil {
		return fmt.Errorf("hash %s: %w", rel, err)
	}
	m.Entries[rel] = entry
	return nil
}

// hashFile streams the file through SHA-256 in fixed-size chunks. Size and
// mtime come from a single stat on the open handle.
func hashFile(abs string, buf []byte) (Entry, error) {
	f, err := os.Open(abs)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return Entry{}, err
	}

	return Entry{
		Size:   info.Size(),
		Mtime:  float64(info.ModTime().UnixNano()) / 1e9,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}
