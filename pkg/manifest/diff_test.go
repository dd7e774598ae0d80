package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mkManifest(entries map[string]Entry) *Manifest {
	return &Manifest{Name: "snap", Root: "/tmp/x", Entries: entries}
}

func changePaths(changes []Change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}

func TestDiffMixed(t *testing.T) {
	local := mkManifest(map[string]Entry{
		"a.txt": {Size: 10, SHA256: "aaa"},
		"b.txt": {Size: 20, SHA256: "bbb"},
	})
	remote := mkManifest(map[string]Entry{
		"a.txt": {Size: 10, SHA256: "a2a"},
		"c.txt": {Size: 30, SHA256: "ccc"},
	})

	plan := Diff("s3", "game", local, remote)

	assert.Equal(t, []string{"a.txt", "b.txt"}, changePaths(plan.Uploads))
	assert.Equal(t, ReasonContentMismatch, plan.Uploads[0].Reason)
	assert.Equal(t, ReasonMissingRemote, plan.Uploads[1].Reason)
	assert.Equal(t, []string{"c.txt"}, changePaths(plan.Deletes))
	assert.Equal(t, ReasonMissingLocal, plan.Deletes[0].Reason)
	assert.Empty(t, plan.Unchanged)
	assert.Equal(t, int64(30), plan.BytesToUpload)
	assert.Equal(t, "s3", plan.Service)
	assert.Equal(t, "game", plan.Snapshot)
}

func TestDiffNilRemote(t *testing.T) {
	local := mkManifest(map[string]Entry{
		"a.txt": {Size: 1, SHA256: "aaa"},
		"b.txt": {Size: 2, SHA256: "bbb"},
	})

	plan := Diff("s3", "game", local, nil)
	assert.Equal(t, []string{"a.txt", "b.txt"}, changePaths(plan.Uploads))
	for _, c := range plan.Uploads {
		assert.Equal(t, ReasonMissingRemote, c.Reason)
	}
	assert.Empty(t, plan.Deletes)
	assert.Equal(t, int64(3), plan.BytesToUpload)
}

func TestDiffIdentical(t *testing.T) {
	m := mkManifest(map[string]Entry{
		"a.txt": {Size: 1, SHA256: "aaa"},
		"b.txt": {Size: 2, SHA256: "bbb"},
	})

	plan := Diff("s3", "game", m, m.Clone())
	assert.True(t, plan.Empty())
	assert.Equal(t,
		[]string{"a.txt", "b.txt"},
		changePaths(plan.Unchanged),
	)
	for _, c := range plan.Unchanged {
		assert.Equal(t, ActionSkip, c.Action)
		assert.Equal(t, ReasonNone, c.Reason)
	}
}

func TestDiffDoesNotMutateInputs(t *testing.T) {
	local := mkManifest(map[string]Entry{"a.txt": {SHA256: "aaa"}})
	remote := mkManifest(map[string]Entry{"b.txt": {SHA256: "bbb"}})

	Diff("s3", "game", local, remote)
	assert.Len(t, local.Entries, 1)
	assert.Len(t, remote.Entries, 1)
	assert.Contains(t, local.Entries, "a.txt")
	assert.Contains(t, remote.Entries, "b.txt")
}

func TestDiffOrdering(t *testing.T) {
	local := mkManifest(map[string]Entry{
		"z.txt": {SHA256: "z"},
		"a.txt": {SHA256: "a"},
		"m.txt": {SHA256: "m"},
	})

	plan := Diff("s3", "game", local, nil)
	assert.Equal(t,
		[]string{"a.txt", "m.txt", "z.txt"},
		changePaths(plan.Uploads),
	)
}
