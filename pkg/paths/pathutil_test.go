package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRelPath(t *testing.T) {
	assert.NoError(t, ValidateRelPath("scenes/chapter1.json"))
	assert.NoError(t, ValidateRelPath("manifest.json"))
	assert.NoError(t, ValidateRelPath("assets/bg/street/night.png"))
	assert.NoError(t, ValidateRelPath("voice takes/take 03.ogg"))
	assert.NoError(t, ValidateRelPath("音声/セリフ.ogg"))
	assert.NoError(t, ValidateRelPath("a/b/c/d/e/f/g/h/i/j.txt"))

	assert.Error(t, ValidateRelPath(""))
	assert.Error(t, ValidateRelPath("/etc/comfyvn/config"))
	assert.Error(t, ValidateRelPath("../sibling-project"))
	assert.Error(t, ValidateRelPath("assets/../../etc/passwd"))
	assert.Error(t, ValidateRelPath("assets\x00bg.png"))
	assert.Error(t, ValidateRelPath("."))
	assert.Error(t, ValidateRelPath("./"))
}

func TestValidateRelPathTraversalVariants(t *testing.T) {
	cases := []string{
		"../",
		"assets/../../../etc/shadow",
		"a/b/c/../../../../tmp/x",
		"..",
	}
	for _, c := range cases {
		assert.Error(t, ValidateRelPath(c), "should reject: %q", c)
	}
}

func TestCleanRelPath(t *testing.T) {
	assert.Equal(t, "assets/bg.png", CleanRelPath("./assets/bg.png"))
	assert.Equal(t, "assets/bg.png", CleanRelPath("assets//bg.png"))
	assert.Equal(t, "assets/bg.png", CleanRelPath("assets/./bg.png"))
	assert.Equal(t, "assets", CleanRelPath("assets/bg.png/.."))
	assert.Equal(t, "a/b", CleanRelPath("./a/./b"))
}

func TestCleanRelPathNativeSeparators(t *testing.T) {
	// inputs written with the platform separator come out slash-form,
	// matching how manifest entry paths are stored
	native := filepath.FromSlash("assets/sprites/ayu.png")
	assert.Equal(t, "assets/sprites/ayu.png", CleanRelPath(native))
	assert.Equal(t, "scenes",
		CleanRelPath(filepath.FromSlash("./scenes/")),
	)
}

func TestIsWithinDir(t *testing.T) {
	assert.True(t, IsWithinDir(
		"/home/user/game",
		"/home/user/game/assets",
	))
	assert.True(t, IsWithinDir(
		"/home/user/game/",
		"/home/user/game/assets",
	))
	assert.True(t, IsWithinDir(
		"/home/user/game",
		"/home/user/game",
	))

	assert.False(t, IsWithinDir(
		"/home/user/game",
		"/home/user/other",
	))
	assert.False(t, IsWithinDir(
		"/home/user/game",
		"/etc/passwd",
	))
	assert.False(t, IsWithinDir(
		"/home/user/game",
		"/home/user/game-backup/assets",
	))
	assert.False(t, IsWithinDir(
		"/tmp/a",
		"/tmp/ab/c",
	))
}
