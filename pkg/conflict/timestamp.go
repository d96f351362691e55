package conflict

import (
	"context"
	"fmt"

	"github.com/fulmenhq/metaguard/pkg/diff"
	"github.com/fulmenhq/metaguard/pkg/logger"
)

// TimestampConfig configures a TimestampConflictChecker.
type TimestampConfig struct {
	Collaborators
	Enabled       bool
	IsManifest    bool
	WorkspaceRoot string
	Loader        SnapshotLoader
	Builder       DiffBuilder
	// Lock is held by the caller and released here on every cancellation.
	Lock     Lock
	Messages Messages
}

// TimestampConflictChecker detects components changed in the org since the
// last sync, using cached timestamps instead of content.
type TimestampConflictChecker struct {
	cfg TimestampConfig
}

// NewTimestampConflictChecker creates the checker.
func NewTimestampConflictChecker(cfg TimestampConfig) *TimestampConflictChecker {
	return &TimestampConflictChecker{cfg: cfg}
}

// Check implements Checker over a selection path.
func (c *TimestampConflictChecker) Check(ctx context.Context, in Result[string]) Result[string] {
	if in.Cancelled() {
		return in
	}
	if !c.cfg.Enabled {
		logger.Debug("Conflict detection disabled", logger.String("operation", c.cfg.Messages.Operation))
		return in
	}

	identity, ok := c.cfg.Identity.Identity()
	if !ok {
		c.release(ctx)
		return Cancel[string](NoIdentityMessage)
	}

	results, err := c.compare(ctx, identity, in.Payload())
	if err != nil {
		reportFailure(c.cfg.Collaborators, c.cfg.Messages, err)
		c.release(ctx)
		return Cancel[string]("")
	}

	if resolveRemote(ctx, c.cfg.Collaborators, c.cfg.Messages, identity, results,
		[]Option{{Choice: ShowConflicts}, {Choice: Override}}) {
		return in
	}
	c.release(ctx)
	return Cancel[string]("")
}

func (c *TimestampConflictChecker) compare(ctx context.Context, identity, selection string) (results *diff.DirectoryDiffResults, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("building diffs: %v", r)
		}
	}()
	snap, err := c.cfg.Loader.LoadSnapshot(ctx, identity, selection, c.cfg.WorkspaceRoot, c.cfg.IsManifest)
	if err != nil {
		return nil, err
	}
	return c.cfg.Builder.BuildDiffs(snap), nil
}

func (c *TimestampConflictChecker) release(ctx context.Context) {
	if c.cfg.Lock == nil {
		return
	}
	if err := c.cfg.Lock.Unlock(ctx); err != nil {
		logger.Warn("Failed to release deploy queue", logger.Err(err))
	}
}
