package metadata

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ComponentForFile maps a slash separated path relative to the package
// directory to the component it belongs to.
func ComponentForFile(reg *Registry, rel string) (ComponentRef, bool) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ComponentRef{}, false
	}
	info, ok := reg.ByDirectory(parts[0])
	if !ok {
		return ComponentRef{}, false
	}
	name := parts[1]
	if info.Strategy != StrategyBundle {
		name = componentName(name)
	}
	if name == "" {
		return ComponentRef{}, false
	}
	return ComponentRef{Type: info.Name, FullName: name, RelPath: PrimaryPath(info, name)}, true
}

// ResolveSourcePath expands a file or directory inside packageRoot into the
// components it contains.
func ResolveSourcePath(reg *Registry, packageRoot, sourcePath string) ([]ComponentRef, error) {
	absRoot, err := filepath.Abs(packageRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve package directory: %w", err)
	}
	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absSource)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("source path %s is outside package directory %s", sourcePath, packageRoot)
	}

	seen := make(map[string]struct{})
	var refs []ComponentRef
	walkErr := filepath.WalkDir(absSource, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		relFile, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		ref, ok := ComponentForFile(reg, relFile)
		if !ok {
			return nil
		}
		if _, dup := seen[ref.Key()]; dup {
			return nil
		}
		seen[ref.Key()] = struct{}{}
		refs = append(refs, ref)
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return nil, fmt.Errorf("source path %s does not exist", sourcePath)
		}
		return nil, fmt.Errorf("walk source path %s: %w", sourcePath, walkErr)
	}
	return refs, nil
}
