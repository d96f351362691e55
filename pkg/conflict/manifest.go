package conflict

import (
	"context"

	"github.com/fulmenhq/metaguard/pkg/diff"
	"github.com/fulmenhq/metaguard/pkg/logger"
)

// ManifestConfig configures a ManifestConflictChecker.
type ManifestConfig struct {
	Collaborators
	// Enabled is the conflict detection policy. When false the checker passes
	// every input through without calling any collaborator.
	Enabled  bool
	Differ   RemoteDiffer
	Messages Messages
}

// ManifestConflictChecker compares a manifest selection against the org
// content and asks before overwriting differences.
type ManifestConflictChecker struct {
	cfg ManifestConfig
}

// NewManifestConflictChecker creates the checker.
func NewManifestConflictChecker(cfg ManifestConfig) *ManifestConflictChecker {
	return &ManifestConflictChecker{cfg: cfg}
}

// Check implements Checker over a manifest path.
func (c *ManifestConflictChecker) Check(ctx context.Context, in Result[string]) Result[string] {
	if in.Cancelled() {
		return in
	}
	if !c.cfg.Enabled {
		logger.Debug("Conflict detection disabled", logger.String("operation", c.cfg.Messages.Operation))
		return in
	}

	identity, ok := c.cfg.Identity.Identity()
	if !ok {
		return Cancel[string](NoIdentityMessage)
	}

	results, err := c.cfg.Differ.CompareForConflicts(ctx, diff.DetectionConfig{Username: identity, Manifest: in.Payload()})
	if err != nil {
		reportFailure(c.cfg.Collaborators, c.cfg.Messages, err)
		return Cancel[string]("")
	}

	if resolveRemote(ctx, c.cfg.Collaborators, c.cfg.Messages, identity, results,
		[]Option{{Choice: Override}, {Choice: ShowConflicts}}) {
		return in
	}
	return Cancel[string]("")
}
