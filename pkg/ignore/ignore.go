// Package ignore provides .forceignore based file filtering using go-git's gitignore matcher
package ignore

import (
	"bufio"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the project-level ignore file consulted by conflict detection.
const FileName = ".forceignore"

// Matcher reports whether workspace paths are excluded from conflict detection.
type Matcher struct {
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher from default patterns layered under the
// workspace's .forceignore. A missing .forceignore is not an error.
func NewMatcher(workspaceRoot string) (*Matcher, error) {
	fs := osfs.New(workspaceRoot)

	var patterns []gitignore.Pattern
	for _, p := range []string{".git/**", ".sf/**", ".sfdx/**", "node_modules/**", "**/.eslintrc.json", "**/jsconfig.json"} {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	lines, err := readIgnoreFile(fs, FileName)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for _, line := range lines {
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return &Matcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// NewMatcherFromPatterns builds a matcher from explicit patterns only.
func NewMatcherFromPatterns(lines []string) *Matcher {
	patterns := make([]gitignore.Pattern, 0, len(lines))
	for _, line := range lines {
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &Matcher{matcher: gitignore.NewMatcher(patterns)}
}

func readIgnoreFile(fs billy.Filesystem, name string) ([]string, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// IsIgnored checks whether a slash separated path, relative to the workspace
// root, is excluded.
func (m *Matcher) IsIgnored(rel string) bool {
	if m == nil {
		return false
	}
	parts := splitPath(rel)
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, false)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(p string) []string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if p == "" || p == "." {
		return nil
	}
	p = strings.TrimPrefix(p, "/")

	parts := strings.Split(p, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
