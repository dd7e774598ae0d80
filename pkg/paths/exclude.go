package paths

import (
	"path/filepath"
	"strings"
)

// ExcludeMatcher decides whether a root-relative path is excluded from a
// manifest build. Two pattern forms are supported: a plain path prefix
// ("cache" excludes cache and everything under it) and glob wildcards
// ("*.pyc", "build/*.tmp", "**/node_modules") evaluated against the
// slash-separated relative path.
type ExcludeMatcher struct {
	patterns []string
}

func NewExcludeMatcher(patterns []string) *ExcludeMatcher {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(p), "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &ExcludeMatcher{patterns: cleaned}
}

func (m *ExcludeMatcher) Match(relPath string) bool {
	for _, pat := range m.patterns {
		if matchPattern(pat, relPath) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, relPath string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return relPath == pattern ||
			strings.HasPrefix(relPath, pattern+"/")
	}
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, relPath)
	}
	if strings.Contains(pattern, "/") {
		matched, _ := filepath.Match(pattern, relPath)
		return matched
	}
	for _, part := range strings.Split(relPath, "/") {
		if matched, _ := filepath.Match(pattern, part); matched {
			return true
		}
	}
	return false
}

func matchDoublestar(pattern, relPath string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return false
	}
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix == "" && suffix == "" {
		return true
	}
	if prefix != "" {
		if relPath != prefix &&
			!strings.HasPrefix(relPath, prefix+"/") {
			return false
		}
		if suffix == "" {
			return true
		}
		relPath = strings.TrimPrefix(relPath, prefix+"/")
	}
	return matchSuffix(suffix, relPath)
}

func matchSuffix(suffix, relPath string) bool {
	parts := strings.Split(relPath, "/")
	for i := range parts {
		tail := strings.Join(parts[i:], "/")
		if matched, _ := filepath.Match(suffix, tail); matched {
			return true
		}
	}
	return false
}
