package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, path)
		assert.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		assert.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func buildTree(t *testing.T, dir string, excludes []string) *Manifest {
	t.Helper()
	m, err := Build(BuildOptions{
		Name:     "snap",
		Root:     dir,
		Paths:    []string{"."},
		Excludes: excludes,
	})
	assert.NoError(t, err)
	return m
}

func TestBuildWalks(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{
		"script.rpy":        "label start:",
		"scenes/act1.rpy":   "scene bg room",
		"cache/thumb.png":   "png",
		"assets/bg.pyc":     "bytecode",
	})

	m := buildTree(t, dir, []string{"cache", "*.pyc"})
	assert.Len(t, m.Entries, 2)
	assert.Contains(t, m.Entries, "script.rpy")
	assert.Contains(t, m.Entries, "scenes/act1.rpy")
	assert.NotContains(t, m.Entries, "cache/thumb.png")
	assert.NotContains(t, m.Entries, "assets/bg.pyc")
}

func TestBuildEntryFields(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"a.txt": "hello"})

	m := buildTree(t, dir, nil)
	e := m.Entries["a.txt"]
	assert.Equal(t, int64(5), e.Size)
	assert.Greater(t, e.Mtime, float64(0))
	// sha256("hello")
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		e.SHA256,
	)
}

func TestBuildSkipsMissingInputs(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"a.txt": "x"})

	m, err := Build(BuildOptions{
		Name:  "snap",
		Root:  dir,
		Paths: []string{"a.txt", "no/such/path"},
	})
	assert.NoError(t, err)
	assert.Len(t, m.Entries, 1)
	assert.Contains(t, m.Entries, "a.txt")
}

func TestBuildMultipleRoots(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{
		"scenes/a.rpy": "a",
		"assets/b.png": "b",
		"other/c.txt":  "c",
	})

	m, err := Build(BuildOptions{
		Name:  "snap",
		Root:  dir,
		Paths: []string{"scenes", "assets"},
	})
	assert.NoError(t, err)
	assert.Len(t, m.Entries, 2)
	assert.Contains(t, m.Entries, "scenes/a.rpy")
	assert.Contains(t, m.Entries, "assets/b.png")
	assert.NotContains(t, m.Entries, "other/c.txt")
}

func TestBuildIgnoresSymlinks(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"real.txt": "data"})
	assert.NoError(t, os.Symlink(
		filepath.Join(dir, "real.txt"),
		filepath.Join(dir, "link.txt"),
	))

	m := buildTree(t, dir, nil)
	assert.Contains(t, m.Entries, "real.txt")
	assert.NotContains(t, m.Entries, "link.txt")
}

func TestBuildFollowsSymlinksWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"real.txt": "data"})
	assert.NoError(t, os.Symlink(
		filepath.Join(dir, "real.txt"),
		filepath.Join(dir, "link.txt"),
	))

	m, err := Build(BuildOptions{
		Name:           "snap",
		Root:           dir,
		Paths:          []string{"."},
		FollowSymlinks: true,
	})
	assert.NoError(t, err)
	assert.Contains(t, m.Entries, "link.txt")
	assert.Equal(t,
		m.Entries["real.txt"].SHA256,
		m.Entries["link.txt"].SHA256,
	)
}

func TestBuildDeepTree(t *testing.T) {
	dir := t.TempDir()
	deep := "d0"
	for i := 1; i < 40; i++ {
		deep = filepath.Join(deep, "d")
	}
	makeTree(t, dir, map[string]string{
		filepath.Join(deep, "leaf.txt"): "bottom",
	})

	m := buildTree(t, dir, nil)
	assert.Len(t, m.Entries, 1)
}

func TestChecksumDeterminism(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{
		"a.txt":     "one",
		"sub/b.txt": "two",
	})

	m1 := buildTree(t, dir, nil)
	m2 := buildTree(t, dir, nil)
	assert.Equal(t, m1.Checksum(), m2.Checksum())

	makeTree(t, dir, map[string]string{"a.txt": "changed"})
	m3 := buildTree(t, dir, nil)
	assert.NotEqual(t, m1.Checksum(), m3.Checksum())
}

func TestCloneIsDeep(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, map[string]string{"a.txt": "x"})

	m := buildTree(t, dir, nil)
	c := m.Clone()
	c.Entries["a.txt"] = Entry{SHA256: "tampered"}
	assert.NotEqual(t, "tampered", m.Entries["a.txt"].SHA256)
}
