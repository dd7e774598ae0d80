package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcludePrefix(t *testing.T) {
	m := NewExcludeMatcher([]string{"cache"})
	assert.True(t, m.Match("cache"))
	assert.True(t, m.Match("cache/thumbs.db"))
	assert.True(t, m.Match("cache/a/b/c"))
	assert.False(t, m.Match("cache.go"))
	assert.False(t, m.Match("src/cache"))
}

func TestExcludePrefixNested(t *testing.T) {
	m := NewExcludeMatcher([]string{"assets/generated"})
	assert.True(t, m.Match("assets/generated"))
	assert.True(t, m.Match("assets/generated/img.png"))
	assert.False(t, m.Match("assets"))
	assert.False(t, m.Match("assets/raw/img.png"))
}

func TestExcludeTrailingSlash(t *testing.T) {
	m := NewExcludeMatcher([]string{"logs/"})
	assert.True(t, m.Match("logs"))
	assert.True(t, m.Match("logs/app.log"))
	assert.False(t, m.Match("src/logs"))
}

func TestExcludeWildcardExtension(t *testing.T) {
	m := NewExcludeMatcher([]string{"*.pyc"})
	assert.True(t, m.Match("main.pyc"))
	assert.True(t, m.Match("src/util.pyc"))
	assert.True(t, m.Match("deep/nested/thing.pyc"))
	assert.False(t, m.Match("main.py"))
	assert.False(t, m.Match("foo.pyco"))
}

func TestExcludeWildcardDirSegment(t *testing.T) {
	m := NewExcludeMatcher([]string{"__pycache__"})
	// no wildcard, so this anchors at the root
	assert.True(t, m.Match("__pycache__/mod.pyc"))
	assert.False(t, m.Match("src/__pycache__/mod.pyc"))

	g := NewExcludeMatcher([]string{"__pycache*"})
	assert.True(t, g.Match("src/__pycache__/mod.pyc"))
}

func TestExcludeQuestionMark(t *testing.T) {
	m := NewExcludeMatcher([]string{"?.tmp"})
	assert.True(t, m.Match("a.tmp"))
	assert.True(t, m.Match("src/x.tmp"))
	assert.False(t, m.Match("ab.tmp"))
}

func TestExcludeDoublestarPrefix(t *testing.T) {
	m := NewExcludeMatcher([]string{"**/*.bak"})
	assert.True(t, m.Match("save.bak"))
	assert.True(t, m.Match("scenes/act1/save.bak"))
	assert.False(t, m.Match("save.bak.txt"))
}

func TestExcludeDoublestarMiddle(t *testing.T) {
	m := NewExcludeMatcher([]string{"scenes/**/*.tmp"})
	assert.True(t, m.Match("scenes/act1/draft.tmp"))
	assert.True(t, m.Match("scenes/draft.tmp"))
	assert.False(t, m.Match("assets/draft.tmp"))
	assert.False(t, m.Match("scenes/act1/draft.txt"))
}

func TestExcludeDoublestarSuffix(t *testing.T) {
	m := NewExcludeMatcher([]string{"build/**"})
	assert.True(t, m.Match("build/output.js"))
	assert.True(t, m.Match("build/dist/bundle.js"))
	assert.False(t, m.Match("src/build.go"))
}

func TestExcludePathPattern(t *testing.T) {
	m := NewExcludeMatcher([]string{"doc/*.html"})
	assert.True(t, m.Match("doc/index.html"))
	assert.False(t, m.Match("doc/sub/page.html"))
	assert.False(t, m.Match("other/index.html"))
}

func TestExcludeMultiplePatterns(t *testing.T) {
	m := NewExcludeMatcher([]string{
		"*.pyc",
		"cache",
		".git",
		"*.swp",
		"node_modules",
	})

	assert.True(t, m.Match("foo.pyc"))
	assert.True(t, m.Match("cache/thumb.png"))
	assert.True(t, m.Match(".git"))
	assert.True(t, m.Match("src/main.go.swp"))
	assert.True(t, m.Match("node_modules/left-pad/index.js"))

	assert.False(t, m.Match("src/main.go"))
	assert.False(t, m.Match("README.md"))
}

func TestExcludeEmptyPatterns(t *testing.T) {
	m := NewExcludeMatcher(nil)
	assert.False(t, m.Match("anything"))
	assert.False(t, m.Match("a/b/c.go"))
}
