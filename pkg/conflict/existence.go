package conflict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/fulmenhq/metaguard/pkg/metadata"
)

// ExistenceConfig configures a LocalExistenceChecker.
type ExistenceConfig struct {
	Paths         PathResolver
	WorkspaceRoot string
	Prompter      Prompter
	Notifier      Notifier
	Telemetry     Telemetry
}

// LocalExistenceChecker asks before a retrieve overwrites components that
// already exist in the workspace.
type LocalExistenceChecker struct {
	cfg ExistenceConfig
}

// NewLocalExistenceChecker creates the checker.
func NewLocalExistenceChecker(cfg ExistenceConfig) *LocalExistenceChecker {
	return &LocalExistenceChecker{cfg: cfg}
}

// Check implements Checker over a component selection. A list is narrowed
// to the components the user did not skip.
func (c *LocalExistenceChecker) Check(ctx context.Context, in Result[metadata.Selection]) Result[metadata.Selection] {
	if in.Cancelled() {
		return in
	}
	sel := in.Payload()

	found := c.existing(sel.Components())
	if len(found) == 0 {
		return in
	}

	skipped, ok := DecideBatch(len(found), func(i int, opts []Option) Choice {
		return c.cfg.Prompter.Choose(ctx, OverwriteMessage(found, i), opts)
	})
	if !ok || len(skipped) == len(found) {
		logger.Debug("Overwrite declined", logger.Bool("dismissed", !ok), logger.Int("found", len(found)))
		return Cancel[metadata.Selection]("")
	}
	if !sel.IsList() {
		return in
	}

	skip := make(map[metadata.LocalComponent]struct{}, len(skipped))
	for _, i := range skipped {
		skip[found[i]] = struct{}{}
	}
	narrowed := sel.Without(skip)
	logger.Debug("Selection narrowed", logger.Int("before", sel.Len()), logger.Int("after", narrowed.Len()))
	return Continue(narrowed)
}

// existing returns the components with at least one candidate file in the workspace.
func (c *LocalExistenceChecker) existing(components []metadata.LocalComponent) []metadata.LocalComponent {
	var found []metadata.LocalComponent
	for _, comp := range components {
		paths, err := c.cfg.Paths.SourcePaths(comp)
		if err != nil {
			c.reportPathError(comp, err)
		}
		for _, p := range paths {
			if isFile(filepath.Join(c.cfg.WorkspaceRoot, filepath.FromSlash(p))) {
				found = append(found, comp)
				break
			}
		}
	}
	return found
}

func (c *LocalExistenceChecker) reportPathError(comp metadata.LocalComponent, err error) {
	msg := err.Error()
	if errors.Is(err, metadata.ErrMissingSuffix) {
		msg = fmt.Sprintf("Missing suffix for %s", comp.RegistryType())
	}
	logger.Warn("Cannot determine component files", logger.String("component", comp.String()), logger.Err(err))
	c.cfg.Notifier.ShowError(msg)
	c.cfg.Telemetry.SendException(ExceptionOverwritePrompt, msg)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
