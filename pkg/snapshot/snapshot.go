// Package snapshot captures the local and cached-remote state of a selection
// so it can be compared for conflicts.
package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/metaguard/pkg/safeio"
)

// PropertiesFileName is the file, inside an org cache directory, holding remote file properties.
const PropertiesFileName = "properties.json"

var (
	// ErrNoSnapshot indicates that no cached remote snapshot exists for an org.
	ErrNoSnapshot = errors.New("no cached remote snapshot")
	// ErrInvalidIdentity is returned for an org identity that cannot name a cache directory.
	ErrInvalidIdentity = errors.New("invalid org identity")
)

// OrgDir returns the cache directory of identity inside cacheDir. The identity
// must be a single path element.
func OrgDir(cacheDir, identity string) (string, error) {
	if identity == "" || identity == "." || identity == ".." || strings.ContainsAny(identity, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	dir, err := safeio.Contained(cacheDir, identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return dir, nil
}

// LocalEntry is one component present in the local project.
type LocalEntry struct {
	Type     string
	FullName string
	// RelPath is slash separated and relative to the workspace root.
	RelPath string
}

// RemoteEntry holds the server-side properties of one component as captured
// by the last retrieve into the cache.
type RemoteEntry struct {
	Type         string    `json:"type"`
	FullName     string    `json:"fullName"`
	CachePath    string    `json:"fileName"`
	LastModified time.Time `json:"lastModifiedDate"`
}

// Snapshot is the diff-ready view of one selection.
type Snapshot struct {
	Identity   string
	Selection  string
	IsManifest bool
	Local      []LocalEntry
	Remote     []RemoteEntry
	// Recorded maps metadata.Key(type, fullName) to the remote timestamp
	// recorded at the last successful sync.
	Recorded map[string]time.Time
}

// LoadError reports a snapshot that could not be produced.
type LoadError struct {
	Selection string
	Err       error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot for %s: %v", e.Selection, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }
