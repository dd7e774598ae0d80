// Package manifest implements the snapshot side of the sync engine: building
// a content-addressed manifest of a local tree, diffing it against remote
// state, and caching the last pushed snapshot on disk.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Entry describes one synchronized file. Path is POSIX-relative, unique
// within a manifest, and never begins with "/" or contains "..".
type Entry struct {
	Size   int64   `json:"size"`
	Mtime  float64 `json:"mtime"`
	SHA256 string  `json:"sha256"`
}

// Manifest is an immutable snapshot of one file tree. It is created fresh on
// every build; diffing and storing operate on copies, never in place.
type Manifest struct {
	Name      string           `json:"name"`
	Root      string           `json:"root"`
	CreatedAt time.Time        `json:"created_at"`
	Entries   map[string]Entry `json:"entries"`
}

// Snapshot is the persisted form of a manifest. The checksum covers the
// sorted entries so a store can detect corruption without re-hashing files.
type Snapshot struct {
	Service  string    `json:"service"`
	Name     string    `json:"name"`
	Checksum string    `json:"checksum"`
	Manifest *Manifest `json:"manifest"`
}

// Paths returns the entry keys in sorted order.
func (m *Manifest) Paths() []string {
	out := make([]string, 0, len(m.Entries))
	for p := range m.Entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	entries := make(map[string]Entry, len(m.Entries))
	for p, e := range m.Entries {
		entries[p] = e
	}
	return &Manifest{
		Name:      m.Name,
		Root:      m.Root,
		CreatedAt: m.CreatedAt,
		Entries:   entries,
	}
}

// Checksum hashes the sorted (path, size, mtime, sha256) tuples. Two
// manifests describing identical trees produce identical checksums
// regardless of build time or root.
func (m *Manifest) Checksum() string {
	h := sha256.New()
	for _, p := range m.Paths() {
		e := m.Entries[p]
		fmt.Fprintf(h, "%s\x00%d\x00%s\x00%s\n",
			p,
			e.Size,
			strconv.FormatFloat(e.Mtime, 'f', -1, 64),
			e.SHA256,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}
