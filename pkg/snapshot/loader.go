package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/fulmenhq/metaguard/pkg/metadata"
)

// TimestampLookup reads recorded timestamps; *Store satisfies it.
type TimestampLookup interface {
	Lookup(ctx context.Context, org string, keys []string) (map[string]time.Time, error)
}

// Loader builds snapshots from the local project and the org cache directory.
type Loader struct {
	registry   *metadata.Registry
	packageDir string
	cacheDir   string
	recorded   TimestampLookup
}

// NewLoader creates a Loader. packageDir is relative to the workspace root;
// cacheDir holds one sub-directory per org.
func NewLoader(reg *metadata.Registry, packageDir, cacheDir string, recorded TimestampLookup) *Loader {
	return &Loader{registry: reg, packageDir: packageDir, cacheDir: cacheDir, recorded: recorded}
}

// LoadSnapshot resolves selection (a manifest path or a source path) in
// workspaceRoot and pairs it with the cached remote properties of identity.
func (l *Loader) LoadSnapshot(ctx context.Context, identity, selection, workspaceRoot string, isManifest bool) (*Snapshot, error) {
	snap := &Snapshot{Identity: identity, Selection: selection, IsManifest: isManifest}
	orgDir, err := OrgDir(l.cacheDir, identity)
	if err != nil {
		return nil, &LoadError{Selection: selection, Err: err}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		local, err := l.loadLocal(selection, workspaceRoot, isManifest)
		if err != nil {
			return err
		}
		snap.Local = local
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		remote, err := ReadProperties(orgDir)
		if err != nil {
			return err
		}
		snap.Remote = remote
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, &LoadError{Selection: selection, Err: err}
	}

	keys := make([]string, 0, len(snap.Local))
	for _, e := range snap.Local {
		keys = append(keys, metadata.Key(e.Type, e.FullName))
	}
	recorded, err := l.recorded.Lookup(ctx, identity, keys)
	if err != nil {
		return nil, &LoadError{Selection: selection, Err: err}
	}
	snap.Recorded = recorded

	logger.Debug("Snapshot loaded",
		logger.String("selection", selection),
		logger.Int("local", len(snap.Local)),
		logger.Int("remote", len(snap.Remote)),
		logger.Int("recorded", len(snap.Recorded)))
	return snap, nil
}

func (l *Loader) loadLocal(selection, workspaceRoot string, isManifest bool) ([]LocalEntry, error) {
	packageRoot := filepath.Join(workspaceRoot, l.packageDir)
	if !filepath.IsAbs(selection) {
		selection = filepath.Join(workspaceRoot, selection)
	}

	var refs []metadata.ComponentRef
	if isManifest {
		m, err := metadata.ParseManifest(selection)
		if err != nil {
			return nil, err
		}
		if refs, err = m.Resolve(l.registry, packageRoot); err != nil {
			return nil, err
		}
	} else {
		var err error
		if refs, err = metadata.ResolveSourcePath(l.registry, packageRoot, selection); err != nil {
			return nil, err
		}
	}

	entries := make([]LocalEntry, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, LocalEntry{
			Type:     ref.Type,
			FullName: ref.FullName,
			RelPath:  path.Join(filepath.ToSlash(l.packageDir), ref.RelPath),
		})
	}
	return entries, nil
}

// ReadProperties reads properties.json from an org cache directory.
func ReadProperties(orgDir string) ([]RemoteEntry, error) {
	raw, err := os.ReadFile(filepath.Join(orgDir, PropertiesFileName)) // #nosec G304 -- path built from the configured cache directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoSnapshot, orgDir)
		}
		return nil, fmt.Errorf("read remote properties: %w", err)
	}
	return ParseProperties(raw)
}

// ParseProperties decodes a properties.json document.
func ParseProperties(raw []byte) ([]RemoteEntry, error) {
	var props []RemoteEntry
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("parse remote properties: %w", err)
	}
	return props, nil
}
