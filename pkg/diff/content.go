package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/metaguard/pkg/ignore"
	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/fulmenhq/metaguard/pkg/metadata"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
)

// ContentDiffer compares the local package directory with the copy retrieved
// into the org cache, byte for byte.
type ContentDiffer struct {
	WorkspaceRoot string
	// PackageDir is relative to both the workspace root and the org cache directory.
	PackageDir string
	CacheDir   string
	Registry   *metadata.Registry
	Ignore     *ignore.Matcher
}

// CompareForConflicts reports files inside the manifest scope that exist on
// both sides with different content.
func (d *ContentDiffer) CompareForConflicts(ctx context.Context, cfg DetectionConfig) (*DirectoryDiffResults, error) {
	if cfg.Username == "" {
		return nil, errors.New("compare for conflicts: empty username")
	}

	manifestPath := cfg.Manifest
	if manifestPath != "" && !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(d.WorkspaceRoot, manifestPath)
	}
	var scope []string
	if manifestPath != "" {
		m, err := metadata.ParseManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		scope = m.Patterns(d.Registry)
	}

	pkgDir := filepath.ToSlash(filepath.Clean(d.PackageDir))
	localRoot := filepath.Join(d.WorkspaceRoot, d.PackageDir)
	orgDir, err := snapshot.OrgDir(d.CacheDir, cfg.Username)
	if err != nil {
		return nil, err
	}
	remoteRoot := filepath.Join(orgDir, d.PackageDir)
	if _, err := os.Stat(remoteRoot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for %s", snapshot.ErrNoSnapshot, cfg.Username)
		}
		return nil, fmt.Errorf("stat remote cache: %w", err)
	}

	inScope := func(rel string) bool {
		if d.Ignore.IsIgnored(path.Join(pkgDir, rel)) {
			return false
		}
		if manifestPath == "" {
			return true
		}
		for _, p := range scope {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
		}
		return false
	}

	localFiles, err := listFiles(ctx, localRoot, inScope)
	if err != nil {
		return nil, fmt.Errorf("scan local files: %w", err)
	}
	remoteFiles, err := listFiles(ctx, remoteRoot, inScope)
	if err != nil {
		return nil, fmt.Errorf("scan remote files: %w", err)
	}

	results := &DirectoryDiffResults{ScannedLocal: len(localFiles), ScannedRemote: len(remoteFiles)}
	for rel, localInfo := range localFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remoteInfo, ok := remoteFiles[rel]
		if !ok {
			continue
		}
		same, err := sameContent(filepath.Join(localRoot, filepath.FromSlash(rel)), filepath.Join(remoteRoot, filepath.FromSlash(rel)), localInfo, remoteInfo)
		if err != nil {
			return nil, err
		}
		if same {
			continue
		}
		results.Add(FileDiff{
			LocalRelPath:       path.Join(pkgDir, rel),
			RemoteRelPath:      path.Join(cfg.Username, pkgDir, rel),
			LocalLastModified:  localInfo.ModTime(),
			RemoteLastModified: remoteInfo.ModTime(),
		})
	}

	logger.Debug("Content comparison complete",
		logger.String("org", cfg.Username),
		logger.Int("local_scanned", results.ScannedLocal),
		logger.Int("remote_scanned", results.ScannedRemote),
		logger.Int("different", results.Len()))
	return results, nil
}

// listFiles returns regular files under root, keyed by slash separated
// relative path, that pass keep. A missing root yields no files.
func listFiles(ctx context.Context, root string, keep func(rel string) bool) (map[string]fs.FileInfo, error) {
	files := make(map[string]fs.FileInfo)
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !keep(rel) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files[rel] = info
		return nil
	})
	return files, err
}

func sameContent(localPath, remotePath string, localInfo, remoteInfo fs.FileInfo) (bool, error) {
	if localInfo.Size() != remoteInfo.Size() {
		return false, nil
	}
	a, err := os.ReadFile(localPath) // #nosec G304 -- walked from the package directory
	if err != nil {
		return false, fmt.Errorf("read %s: %w", localPath, err)
	}
	b, err := os.ReadFile(remotePath) // #nosec G304 -- walked from the cache directory
	if err != nil {
		return false, fmt.Errorf("read %s: %w", remotePath, err)
	}
	return bytes.Equal(a, b), nil
}
