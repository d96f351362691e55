package metadata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed types.yaml
var defaultTypesYAML []byte

//go:embed types.schema.json
var typesSchemaJSON []byte

// ErrMissingSuffix is returned when neither the component nor the registry declares a suffix.
var ErrMissingSuffix = errors.New("metadata suffix not found")

// PathStrategy decides where the source file for a component lives.
type PathStrategy string

const (
	// StrategyRelative places files directly in the output directory: <dir>/<name><ext>.
	StrategyRelative PathStrategy = "relative"
	// StrategyBundle places files in a folder named after the component: <dir>/<name>/<name><ext>.
	StrategyBundle PathStrategy = "bundle"
)

// PathToSource returns the slash separated path of a component source file.
func (s PathStrategy) PathToSource(outputDir, fileName, ext string) string {
	if s == StrategyBundle {
		return filepath.ToSlash(filepath.Join(outputDir, fileName, fileName+ext))
	}
	return filepath.ToSlash(filepath.Join(outputDir, fileName+ext))
}

// TypeInfo describes one registered metadata type.
type TypeInfo struct {
	Name       string       `yaml:"-"`
	Directory  string       `yaml:"directory"`
	Suffix     string       `yaml:"suffix,omitempty"`
	Extensions []string     `yaml:"extensions,omitempty"`
	Strategy   PathStrategy `yaml:"strategy,omitempty"`
}

type registryFile struct {
	Types map[string]TypeInfo `yaml:"types"`
}

// Registry is the path-strategy dictionary keyed by metadata type name.
type Registry struct {
	types map[string]TypeInfo
	byDir map[string]string
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	r, err := parseRegistry(defaultTypesYAML)
	if err != nil {
		// embedded data is covered by tests
		panic(fmt.Sprintf("invalid embedded type registry: %v", err))
	}
	return r
}

// LoadRegistry returns the built-in registry merged with the types declared in
// overridePath. An empty path returns the defaults.
func LoadRegistry(overridePath string) (*Registry, error) {
	reg := DefaultRegistry()
	if strings.TrimSpace(overridePath) == "" {
		return reg, nil
	}
	raw, err := os.ReadFile(overridePath) // #nosec G304 -- path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("read type registry %s: %w", overridePath, err)
	}
	if err := ValidateRegistry(raw); err != nil {
		return nil, fmt.Errorf("type registry %s: %w", overridePath, err)
	}
	overrides, err := parseRegistry(raw)
	if err != nil {
		return nil, fmt.Errorf("type registry %s: %w", overridePath, err)
	}
	for name, info := range overrides.types {
		reg.add(name, info)
	}
	return reg, nil
}

// ValidateRegistry checks registry YAML against the embedded JSON schema.
func ValidateRegistry(raw []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse registry yaml: %w", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(typesSchemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("registry validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

func parseRegistry(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	reg := &Registry{types: make(map[string]TypeInfo), byDir: make(map[string]string)}
	for name, info := range file.Types {
		reg.add(name, info)
	}
	return reg, nil
}

func (r *Registry) add(name string, info TypeInfo) {
	info.Name = name
	if info.Strategy == "" {
		info.Strategy = StrategyRelative
	}
	if old, ok := r.types[name]; ok && old.Directory != info.Directory {
		delete(r.byDir, old.Directory)
	}
	r.types[name] = info
	r.byDir[info.Directory] = name
}

// Lookup returns the registered info for a type.
func (r *Registry) Lookup(typ string) (TypeInfo, bool) {
	info, ok := r.types[typ]
	return info, ok
}

// Resolve returns the registered info for a type, or a relative-strategy
// default with no suffix when the type is unregistered.
func (r *Registry) Resolve(typ string) TypeInfo {
	if info, ok := r.types[typ]; ok {
		return info
	}
	return TypeInfo{Name: typ, Strategy: StrategyRelative}
}

// ByDirectory returns the type stored under a package directory name.
func (r *Registry) ByDirectory(dir string) (TypeInfo, bool) {
	name, ok := r.byDir[dir]
	if !ok {
		return TypeInfo{}, false
	}
	return r.types[name], true
}

// Names returns all registered type names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalYAML renders the registry in the same shape it is loaded from.
func (r *Registry) MarshalYAML() (interface{}, error) {
	return registryFile{Types: r.types}, nil
}

// FileExtensions returns the candidate extensions for a component: the
// metadata descriptor extension followed by the type's content extensions.
// ErrMissingSuffix is returned along with the content extensions when no
// suffix can be determined.
func (r *Registry) FileExtensions(c LocalComponent) ([]string, error) {
	info, known := r.Lookup(c.RegistryType())
	suffix := c.Suffix
	if suffix == "" && known {
		suffix = info.Suffix
	}
	var exts []string
	if suffix != "" {
		exts = append(exts, "."+suffix+"-meta.xml")
	}
	if known {
		exts = append(exts, info.Extensions...)
	}
	if suffix == "" {
		return exts, fmt.Errorf("%w for %s", ErrMissingSuffix, c.RegistryType())
	}
	return exts, nil
}

// SourcePaths returns the workspace relative candidate paths of a component.
func (r *Registry) SourcePaths(c LocalComponent) ([]string, error) {
	info := r.Resolve(c.RegistryType())
	exts, err := r.FileExtensions(c)
	paths := make([]string, 0, len(exts))
	for _, ext := range exts {
		paths = append(paths, info.Strategy.PathToSource(c.OutputDir, c.FileName, ext))
	}
	return paths, err
}
