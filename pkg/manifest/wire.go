package manifest

import (
	"encoding/json"
	"fmt"
)

// wireManifest is the JSON shape of the provider-side manifest object.
type wireManifest struct {
	Manifest *Manifest `json:"manifest"`
}

// MarshalWire encodes the manifest in the remote object wire format.
func (m *Manifest) MarshalWire() ([]byte, error) {
	data, err := json.MarshalIndent(wireManifest{Manifest: m}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// UnmarshalWire decodes a remote manifest object.
func UnmarshalWire(data []byte) (*Manifest, error) {
	var w wireManifest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if w.Manifest == nil {
		return nil, fmt.Errorf("decode manifest: missing manifest field")
	}
	if w.Manifest.Entries == nil {
		w.Manifest.Entries = map[string]Entry{}
	}
	return w.Manifest, nil
}
