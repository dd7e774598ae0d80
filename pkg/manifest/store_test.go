package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{
		"a.txt":     "one",
		"sub/b.txt": "two",
	})
	built := buildTree(t, dir, nil)

	store := NewStore(t.TempDir())
	snap, err := store.Save("s3", "game", built)
	assert.NoError(t, err)
	assert.Equal(t, built.Checksum(), snap.Checksum)

	loaded, err := store.Load("s3", "game")
	assert.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Equal(t, built.Entries, loaded.Entries)

	// idempotence: diffing against the stored copy plans nothing
	plan := Diff("s3", "game", built, loaded)
	assert.True(t, plan.Empty())
	assert.Len(t, plan.Unchanged, 2)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	m, err := store.Load("s3", "never-saved")
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestStoreLoadCorrupt(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	dest := filepath.Join(root, "s3", "game.json")
	assert.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	assert.NoError(t, os.WriteFile(dest, []byte("{not json"), 0o644))

	m, err := store.Load("s3", "game")
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestStoreLoadTampered(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"a.txt": "one"})
	built := buildTree(t, dir, nil)

	root := t.TempDir()
	store := NewStore(root)
	_, err := store.Save("s3", "game", built)
	assert.NoError(t, err)

	// rewrite the file with a checksum that no longer matches the body
	dest := filepath.Join(root, "s3", "game.json")
	assert.NoError(t, os.WriteFile(dest,
		[]byte(`{"service":"s3","name":"game","checksum":"deadbeef",`+
			`"manifest":{"name":"game","root":"/x","entries":{}}}`),
		0o644,
	))

	m, err := store.Load("s3", "game")
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestStoreSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"a.txt": "one"})
	store := NewStore(t.TempDir())

	m1 := buildTree(t, dir, nil)
	_, err := store.Save("s3", "game", m1)
	assert.NoError(t, err)

	makeTree(t, dir, map[string]string{"a.txt": "two"})
	m2 := buildTree(t, dir, nil)
	_, err = store.Save("s3", "game", m2)
	assert.NoError(t, err)

	loaded, err := store.Load("s3", "game")
	assert.NoError(t, err)
	assert.Equal(t, m2.Entries["a.txt"].SHA256, loaded.Entries["a.txt"].SHA256)
}

func TestStoreSeparateKeys(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"a.txt": "one"})
	m := buildTree(t, dir, nil)

	store := NewStore(t.TempDir())
	_, err := store.Save("s3", "game", m)
	assert.NoError(t, err)

	other, err := store.Load("gdrive", "game")
	assert.NoError(t, err)
	assert.Nil(t, other)
}
