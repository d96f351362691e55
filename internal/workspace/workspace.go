// Package workspace locates the project root and the target org identity.
package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/spf13/viper"

	"github.com/fulmenhq/metaguard/pkg/logger"
)

// ProjectFile marks the root of a metadata project.
const ProjectFile = "sfdx-project.json"

// ErrNoIdentity indicates that no target org could be resolved.
var ErrNoIdentity = errors.New("no target org configured")

// FindRoot returns the project root for start: the nearest ancestor holding
// ProjectFile, else the enclosing git worktree, else start itself.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for dir := abs; ; {
		if _, err := os.Stat(filepath.Join(dir, ProjectFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if root, ok := gitRoot(abs); ok {
		return root, nil
	}
	return abs, nil
}

func gitRoot(target string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return wt.Filesystem.Root(), true
}

// Branch returns the checked-out branch of the repository containing root,
// or "" when root is not inside a git repository.
func Branch(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Name().Short()
}

// IdentityResolver resolves the target org from, in order, an explicit flag
// value, the configured target_org, and the project's .sf/config.json.
type IdentityResolver struct {
	flag       string
	configured string
	root       string
}

// NewIdentityResolver creates a resolver for the project at root.
func NewIdentityResolver(flagValue, configured, root string) *IdentityResolver {
	return &IdentityResolver{
		flag:       strings.TrimSpace(flagValue),
		configured: strings.TrimSpace(configured),
		root:       root,
	}
}

// Identity implements conflict.IdentityResolver.
func (r *IdentityResolver) Identity() (string, bool) {
	id, err := r.Resolve()
	return id, err == nil
}

// Resolve returns the identity or ErrNoIdentity.
func (r *IdentityResolver) Resolve() (string, error) {
	if r.flag != "" {
		return r.flag, nil
	}
	if r.configured != "" {
		return r.configured, nil
	}
	if id := projectTargetOrg(r.root); id != "" {
		return id, nil
	}
	return "", ErrNoIdentity
}

func projectTargetOrg(root string) string {
	if root == "" {
		return ""
	}
	path := filepath.Join(root, ".sf", "config.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Failed to read project org config", logger.String("path", path), logger.Err(err))
		return ""
	}
	return strings.TrimSpace(v.GetString("target-org"))
}
