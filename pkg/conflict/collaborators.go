package conflict

import (
	"context"
	"fmt"

	"github.com/fulmenhq/metaguard/pkg/diff"
	"github.com/fulmenhq/metaguard/pkg/metadata"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
)

// Telemetry event names.
const (
	ExceptionConflictDetection = "ConflictDetectionException"
	ExceptionOverwritePrompt   = "OverwriteComponentPromptException"
)

// NoIdentityMessage is the cancellation message when no target org is known.
const NoIdentityMessage = "No default org is set. Set target_org in your configuration or pass --target-org to enable conflict detection."

// IdentityResolver returns the username or alias of the target org.
type IdentityResolver interface {
	Identity() (string, bool)
}

// RemoteDiffer compares the local project with the org.
type RemoteDiffer interface {
	CompareForConflicts(ctx context.Context, cfg diff.DetectionConfig) (*diff.DirectoryDiffResults, error)
}

// SnapshotLoader captures the local and cached remote state of a selection.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, identity, selection, workspaceRoot string, isManifest bool) (*snapshot.Snapshot, error)
}

// DiffBuilder turns a snapshot into differences.
type DiffBuilder interface {
	BuildDiffs(snap *snapshot.Snapshot) *diff.DirectoryDiffResults
}

// OutputChannel is an append-only line sink that can be brought to the front.
type OutputChannel interface {
	AppendLine(line string)
	Show()
}

// Telemetry records diagnostics events.
type Telemetry interface {
	SendException(name, message string)
}

// Visualizer presents a set of differences to the user.
type Visualizer interface {
	Show(title, identity string, reveal bool, results *diff.DirectoryDiffResults)
	Reset(identity string)
}

// Notifier surfaces errors to the user without blocking.
type Notifier interface {
	ShowError(message string)
}

// Lock is the deploy-queue lock held by the caller. Unlock must be idempotent.
type Lock interface {
	Unlock(ctx context.Context) error
}

// PathResolver returns workspace relative candidate paths of a component.
// *metadata.Registry satisfies it.
type PathResolver interface {
	SourcePaths(c metadata.LocalComponent) ([]string, error)
}

// Messages holds the operation specific text of a remote conflict prompt.
type Messages struct {
	Operation      string
	WarningMessage string
	// CommandHint tells the user how to inspect the conflicts for identity.
	CommandHint func(identity string) string
}

// DeployMessages returns the text used before a deploy.
func DeployMessages() Messages {
	return Messages{
		Operation:      "deploy",
		WarningMessage: "Conflicts were detected between your local project and the org. Deploying will overwrite the changes in the org.",
		CommandHint: func(identity string) string {
			return fmt.Sprintf("Review the differences with `metaguard cache show --target-org %s`, or rerun with --no-conflict-check to deploy anyway.", identity)
		},
	}
}

// RetrieveMessages returns the text used before a retrieve.
func RetrieveMessages() Messages {
	return Messages{
		Operation:      "retrieve",
		WarningMessage: "Conflicts were detected between your local project and the org. Retrieving will overwrite your local changes.",
		CommandHint: func(identity string) string {
			return fmt.Sprintf("Review the differences with `metaguard cache show --target-org %s`, or rerun with --no-conflict-check to retrieve anyway.", identity)
		},
	}
}

// Collaborators are the services shared by the remote conflict checkers.
type Collaborators struct {
	Identity   IdentityResolver
	Prompter   Prompter
	Channel    OutputChannel
	Telemetry  Telemetry
	Visualizer Visualizer
}
