package metadata

import (
	"fmt"
	"strings"
)

// LocalComponent identifies one local artifact that an operation may write.
type LocalComponent struct {
	Type      string `json:"type" yaml:"type"`
	FileName  string `json:"file_name" yaml:"file_name"`
	Suffix    string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// MetadataType overrides Type for registry lookups when set.
	MetadataType string `json:"metadata_type,omitempty" yaml:"metadata_type,omitempty"`
}

// RegistryType returns the type name used to look the component up in a Registry.
func (c LocalComponent) RegistryType() string {
	if c.MetadataType != "" {
		return c.MetadataType
	}
	return c.Type
}

// String renders the component as Type:FileName.
func (c LocalComponent) String() string {
	return c.Type + ":" + c.FileName
}

// ParseComponent parses "Type:Name[:suffix]" as accepted on the command line.
func ParseComponent(arg, outputDir string) (LocalComponent, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return LocalComponent{}, fmt.Errorf("invalid component %q: expected Type:Name[:suffix]", arg)
	}
	c := LocalComponent{
		Type:      strings.TrimSpace(parts[0]),
		FileName:  strings.TrimSpace(parts[1]),
		OutputDir: outputDir,
	}
	if len(parts) == 3 {
		c.Suffix = strings.TrimPrefix(strings.TrimSpace(parts[2]), ".")
	}
	if c.Type == "" || c.FileName == "" {
		return LocalComponent{}, fmt.Errorf("invalid component %q: type and name are required", arg)
	}
	return c, nil
}

// Selection is the payload of an overwrite check: either one component or a list.
// A single component can only be overwritten or cancelled, a list can be narrowed.
type Selection struct {
	components []LocalComponent
	single     bool
}

// SingleComponent wraps one component.
func SingleComponent(c LocalComponent) Selection {
	return Selection{components: []LocalComponent{c}, single: true}
}

// ComponentList wraps a list of components. The slice is copied and repeated
// components keep only their first position.
func ComponentList(cs []LocalComponent) Selection {
	seen := make(map[LocalComponent]struct{}, len(cs))
	out := make([]LocalComponent, 0, len(cs))
	for _, c := range cs {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return Selection{components: out}
}

// IsList reports whether the selection was built from a list.
func (s Selection) IsList() bool { return !s.single }

// Len returns the number of components.
func (s Selection) Len() int { return len(s.components) }

// Components returns a copy of the selected components in order.
func (s Selection) Components() []LocalComponent {
	out := make([]LocalComponent, len(s.components))
	copy(out, s.components)
	return out
}

// Without returns a new list selection excluding every component in skip.
// A single-component selection is returned unchanged.
func (s Selection) Without(skip map[LocalComponent]struct{}) Selection {
	if s.single || len(skip) == 0 {
		return s
	}
	kept := make([]LocalComponent, 0, len(s.components))
	for _, c := range s.components {
		if _, ok := skip[c]; ok {
			continue
		}
		kept = append(kept, c)
	}
	return Selection{components: kept}
}

// Key builds the identity used to correlate local components with remote properties.
func Key(typ, fullName string) string {
	return typ + "#" + fullName
}
