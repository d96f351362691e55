package metadata

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/metaguard/pkg/logger"
)

const wildcardMember = "*"

// ManifestError reports a manifest that could not be read or parsed.
type ManifestError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ManifestError) Unwrap() error { return e.Err }

// TypeMembers lists the members declared for one type in a manifest.
type TypeMembers struct {
	Name    string
	Members []string
}

// Manifest is a parsed package.xml selection.
type Manifest struct {
	Path    string
	Version string
	Types   []TypeMembers
}

// ComponentRef names one component resolved from a manifest or source path.
type ComponentRef struct {
	Type     string
	FullName string
	// RelPath is the slash separated primary path relative to the package directory.
	RelPath string
}

// Key returns the correlation key of the component.
func (c ComponentRef) Key() string { return Key(c.Type, c.FullName) }

// ParseManifest reads and parses a package.xml file.
func ParseManifest(manifestPath string) (*Manifest, error) {
	raw, err := os.ReadFile(manifestPath) // #nosec G304 -- manifest path supplied by the caller
	if err != nil {
		return nil, &ManifestError{Path: manifestPath, Err: err}
	}
	return ParseManifestBytes(manifestPath, raw)
}

// ParseManifestBytes parses package.xml content.
func ParseManifestBytes(manifestPath string, raw []byte) (*Manifest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &ManifestError{Path: manifestPath, Err: err}
	}
	root := doc.SelectElement("Package")
	if root == nil {
		return nil, &ManifestError{Path: manifestPath, Err: fmt.Errorf("missing <Package> root element")}
	}

	m := &Manifest{Path: manifestPath}
	if v := root.SelectElement("version"); v != nil {
		m.Version = strings.TrimSpace(v.Text())
	}
	for _, t := range root.SelectElements("types") {
		nameEl := t.SelectElement("name")
		if nameEl == nil || strings.TrimSpace(nameEl.Text()) == "" {
			return nil, &ManifestError{Path: manifestPath, Err: fmt.Errorf("<types> entry without <name>")}
		}
		tm := TypeMembers{Name: strings.TrimSpace(nameEl.Text())}
		for _, member := range t.SelectElements("members") {
			if text := strings.TrimSpace(member.Text()); text != "" {
				tm.Members = append(tm.Members, text)
			}
		}
		m.Types = append(m.Types, tm)
	}
	return m, nil
}

// Patterns returns doublestar patterns, relative to the package directory,
// that cover every file belonging to the manifest's members.
func (m *Manifest) Patterns(reg *Registry) []string {
	var patterns []string
	for _, tm := range m.Types {
		info, ok := reg.Lookup(tm.Name)
		if !ok {
			logger.Warn("Manifest type not registered, skipping", logger.String("type", tm.Name), logger.String("manifest", m.Path))
			continue
		}
		for _, member := range tm.Members {
			switch {
			case member == wildcardMember:
				patterns = append(patterns, info.Directory+"/**")
			case info.Strategy == StrategyBundle:
				patterns = append(patterns, info.Directory+"/"+member+"/**")
			default:
				patterns = append(patterns, info.Directory+"/"+member+".*")
			}
		}
	}
	return patterns
}

// Resolve expands the manifest into components, globbing wildcard members
// against packageRoot.
func (m *Manifest) Resolve(reg *Registry, packageRoot string) ([]ComponentRef, error) {
	fsys := os.DirFS(packageRoot)
	seen := make(map[string]struct{})
	var refs []ComponentRef
	add := func(ref ComponentRef) {
		if _, dup := seen[ref.Key()]; dup {
			return
		}
		seen[ref.Key()] = struct{}{}
		refs = append(refs, ref)
	}

	for _, tm := range m.Types {
		info, ok := reg.Lookup(tm.Name)
		if !ok {
			continue
		}
		for _, member := range tm.Members {
			if member != wildcardMember {
				add(ComponentRef{Type: info.Name, FullName: member, RelPath: PrimaryPath(info, member)})
				continue
			}
			names, err := memberNames(fsys, info)
			if err != nil {
				return nil, &ManifestError{Path: m.Path, Err: err}
			}
			for _, name := range names {
				add(ComponentRef{Type: info.Name, FullName: name, RelPath: PrimaryPath(info, name)})
			}
		}
	}
	return refs, nil
}

func memberNames(fsys fs.FS, info TypeInfo) ([]string, error) {
	matches, err := doublestar.Glob(fsys, info.Directory+"/*")
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", info.Directory, err)
	}
	set := make(map[string]struct{})
	for _, match := range matches {
		base := path.Base(match)
		if info.Strategy != StrategyBundle {
			base = componentName(base)
		}
		if base != "" {
			set[base] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// PrimaryPath is the slash separated path, relative to the package
// directory, that represents a component in diffs.
func PrimaryPath(info TypeInfo, name string) string {
	if info.Strategy == StrategyBundle {
		return info.Directory + "/" + name
	}
	if len(info.Extensions) > 0 {
		return info.Directory + "/" + name + info.Extensions[0]
	}
	return info.Directory + "/" + name + "." + info.Suffix + "-meta.xml"
}

// componentName strips every extension from a file name: Foo.cls-meta.xml -> Foo.
func componentName(file string) string {
	if i := strings.Index(file, "."); i >= 0 {
		return file[:i]
	}
	return file
}
