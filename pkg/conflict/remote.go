package conflict

import (
	"context"
	"fmt"

	"github.com/fulmenhq/metaguard/pkg/diff"
	"github.com/fulmenhq/metaguard/pkg/logger"
)

// resolveRemote reports the differences and asks whether to proceed. It
// returns true when the operation may continue.
func resolveRemote(ctx context.Context, co Collaborators, msgs Messages, identity string, results *diff.DirectoryDiffResults, options []Option) bool {
	title := fmt.Sprintf("%s: %d differences", identity, results.Len())
	if results.Len() == 0 {
		logger.Debug("No conflicts detected", logger.String("org", identity), logger.String("operation", msgs.Operation))
		co.Visualizer.Show(title, identity, false, results)
		return true
	}

	co.Channel.AppendLine(fmt.Sprintf("Conflicts detected: %d differences (%d remote / %d local files scanned)",
		results.Len(), results.ScannedRemote, results.ScannedLocal))
	for _, d := range results.Different() {
		co.Channel.AppendLine(d.LocalRelPath)
	}
	co.Channel.Show()

	choice := co.Prompter.Choose(ctx, msgs.WarningMessage, options)
	logger.Debug("Conflict prompt answered",
		logger.String("operation", msgs.Operation),
		logger.String("choice", choice.String()),
		logger.Int("differences", results.Len()))
	if choice == Override {
		co.Visualizer.Reset(identity)
		return true
	}

	if msgs.CommandHint != nil {
		co.Channel.AppendLine(msgs.CommandHint(identity))
		co.Channel.Show()
	}
	co.Visualizer.Show(title, identity, true, results)
	return false
}

// reportFailure sends a collaborator failure to the channel and telemetry.
func reportFailure(co Collaborators, msgs Messages, err error) {
	logger.Error("Conflict detection failed", logger.String("operation", msgs.Operation), logger.Err(err))
	co.Channel.AppendLine(fmt.Sprintf("Conflict detection failed: %v", err))
	co.Channel.Show()
	co.Telemetry.SendException(ExceptionConflictDetection, err.Error())
}
