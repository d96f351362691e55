package diff

import (
	"github.com/fulmenhq/metaguard/pkg/metadata"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
)

// TimestampDiffBuilder turns a snapshot into differences by comparing the
// remote last-modified timestamps against those recorded at the last sync.
type TimestampDiffBuilder struct{}

// BuildDiffs reports each local component whose remote copy changed since it
// was recorded, or that has no recorded timestamp at all. Components missing
// from the remote properties are new on this side and never conflict.
func (TimestampDiffBuilder) BuildDiffs(snap *snapshot.Snapshot) *DirectoryDiffResults {
	results := &DirectoryDiffResults{}
	if snap == nil {
		return results
	}
	results.ScannedLocal = len(snap.Local)
	results.ScannedRemote = len(snap.Remote)

	remote := make(map[string]snapshot.RemoteEntry, len(snap.Remote))
	for _, r := range snap.Remote {
		remote[metadata.Key(r.Type, r.FullName)] = r
	}

	for _, l := range snap.Local {
		key := metadata.Key(l.Type, l.FullName)
		r, ok := remote[key]
		if !ok {
			continue
		}
		recorded, seen := snap.Recorded[key]
		if seen && !r.LastModified.After(recorded) {
			continue
		}
		results.Add(FileDiff{
			LocalRelPath:       l.RelPath,
			RemoteRelPath:      r.CachePath,
			// the recorded sync time, not the local file's mtime
			LocalLastModified:  recorded,
			RemoteLastModified: r.LastModified,
		})
	}
	return results
}
