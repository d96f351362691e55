package cmd

import (
	"fmt"

	"github.com/fulmenhq/metaguard/pkg/conflict"
	"github.com/fulmenhq/metaguard/pkg/deploylock"
	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/spf13/cobra"
)

// deployQueue serializes deploys started from this process.
var deployQueue = deploylock.NewQueue()

func newDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Check a deploy for conflicts with the org",
		Long: `Check whether deploying a manifest or a source path would overwrite
changes made in the org since the last sync. On approval the selection is
printed; on cancellation metaguard exits with code 10.`,
		Args: cobra.NoArgs,
		RunE: runDeploy,
	}
	addConflictFlags(cmd.Flags())
	cmd.Flags().StringP("source-path", "d", "", "Path to the source to deploy")
	cmd.MarkFlagsMutuallyExclusive(flagManifest, "source-path")
	cmd.MarkFlagsOneRequired(flagManifest, "source-path")
	return cmd
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	manifest, _ := cmd.Flags().GetString(flagManifest)
	sourcePath, _ := cmd.Flags().GetString("source-path")
	isManifest := manifest != ""
	selection := sourcePath
	if isManifest {
		selection = manifest
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	selection, err = s.selectionPath(selection)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	token, err := deployQueue.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire deploy queue: %w", err)
	}
	logger.Debug("Deploy queue acquired", logger.String("token", token))

	checker, err := s.remoteChecker(conflict.DeployMessages(), isManifest, checksDisabled(cmd.Flags()), deployQueue)
	if err != nil {
		_ = deployQueue.Unlock(ctx)
		return err
	}

	res := checker.Check(ctx, conflict.Continue(selection))
	if res.Cancelled() {
		// may already be released by the checker
		_ = deployQueue.Unlock(ctx)
		return s.finish("deploy", res)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Approved for deploy: %s\n", res.Payload())
	if err := deployQueue.Unlock(ctx); err != nil {
		return fmt.Errorf("release deploy queue: %w", err)
	}
	return s.finish("deploy", res)
}
