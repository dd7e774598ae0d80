package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store caches the last pushed snapshot per (service, snapshot name) under a
// local cache root, one JSON file each. It lets a re-run diff against known
// remote state without a remote round-trip.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(service, name string) string {
	return filepath.Join(s.root, service, name+".json")
}

// Load returns the cached manifest, or nil when none exists. Corrupt or
// tampered files are treated the same as absence: the next diff simply
// re-uploads everything, which is safe because uploads are idempotent.
func (s *Store) Load(service, name string) (*Manifest, error) {
	data, err := os.ReadFile(s.path(service, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		slog.Warn("manifest cache unreadable",
			"service", service, "snapshot", name, "error", err,
		)
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Manifest == nil {
		slog.Warn("manifest cache corrupt, ignoring",
			"service", service, "snapshot", name,
		)
		return nil, nil
	}
	if snap.Manifest.Checksum() != snap.Checksum {
		slog.Warn("manifest cache checksum mismatch, ignoring",
			"service", service, "snapshot", name,
		)
		return nil, nil
	}
	return snap.Manifest, nil
}

// Save persists the manifest, recomputing its checksum. The file is written
// to a temp path and atomically renamed into place.
func (s *Store) Save(service, name string, m *Manifest) (*Snapshot, error) {
	snap := &Snapshot{
		Service:  service,
		Name:     name,
		Checksum: m.Checksum(),
		Manifest: m,
	}

	dest := s.path(service, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+name+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("replace snapshot: %w", err)
	}
	return snap, nil
}
