// Package diff describes and computes the differences between a local
// project and a cached remote snapshot.
package diff

import (
	"sort"
	"time"
)

// DetectionConfig identifies one conflict comparison.
type DetectionConfig struct {
	// Username is the identity (username or alias) of the target org.
	Username string
	// Manifest is the path of the selection to compare.
	Manifest string
}

// FileDiff is one file that differs between the local project and the org.
type FileDiff struct {
	LocalRelPath  string `json:"local_rel_path"`
	RemoteRelPath string `json:"remote_rel_path"`
	// LocalLastModified is the time the local side is compared from. The
	// ContentDiffer sets the local file's modification time. The
	// TimestampDiffBuilder sets the remote timestamp recorded at the last
	// sync, zero when nothing was recorded.
	LocalLastModified  time.Time `json:"local_last_modified,omitempty"`
	RemoteLastModified time.Time `json:"remote_last_modified,omitempty"`
}

// DirectoryDiffResults is the outcome of one comparison pass. Entries are
// unique by local relative path. Build it with Add; readers only use the
// accessor methods.
type DirectoryDiffResults struct {
	different     map[string]FileDiff
	ScannedLocal  int `json:"scanned_local"`
	ScannedRemote int `json:"scanned_remote"`
}

// Add records a difference. It returns false if the local path was already present.
func (r *DirectoryDiffResults) Add(d FileDiff) bool {
	if r.different == nil {
		r.different = make(map[string]FileDiff)
	}
	if _, ok := r.different[d.LocalRelPath]; ok {
		return false
	}
	r.different[d.LocalRelPath] = d
	return true
}

// Len returns the number of differences.
func (r *DirectoryDiffResults) Len() int {
	if r == nil {
		return 0
	}
	return len(r.different)
}

// Has reports whether localRelPath is among the differences.
func (r *DirectoryDiffResults) Has(localRelPath string) bool {
	if r == nil {
		return false
	}
	_, ok := r.different[localRelPath]
	return ok
}

// Different returns the differences ordered by local relative path.
func (r *DirectoryDiffResults) Different() []FileDiff {
	if r == nil {
		return nil
	}
	out := make([]FileDiff, 0, len(r.different))
	for _, d := range r.different {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalRelPath < out[j].LocalRelPath })
	return out
}
