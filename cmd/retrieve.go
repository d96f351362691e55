package cmd

import (
	"fmt"

	"github.com/fulmenhq/metaguard/pkg/conflict"
	"github.com/fulmenhq/metaguard/pkg/metadata"
	"github.com/fulmenhq/metaguard/pkg/safeio"
	"github.com/spf13/cobra"
)

func newRetrieveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Check a retrieve for conflicts with local changes",
		Long: `Check whether a retrieve would overwrite local work.

With --manifest the manifest is compared against the org, as for deploy.
With --component each component already present under --output-dir is
confirmed one by one; components you skip are removed from the printed list.`,
		Args: cobra.NoArgs,
		RunE: runRetrieve,
	}
	addConflictFlags(cmd.Flags())
	cmd.Flags().StringArrayP("component", "m", nil, "Component to retrieve as Type:Name[:suffix] (repeatable)")
	cmd.Flags().String("output-dir", "", "Workspace relative directory the components are written to")
	cmd.MarkFlagsMutuallyExclusive(flagManifest, "component")
	cmd.MarkFlagsOneRequired(flagManifest, "component")
	cmd.MarkFlagsRequiredTogether("component", "output-dir")
	return cmd
}

func runRetrieve(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	manifest, _ := cmd.Flags().GetString(flagManifest)
	if manifest != "" {
		return retrieveManifest(cmd, s, manifest)
	}
	args, _ := cmd.Flags().GetStringArray("component")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	return retrieveComponents(cmd, s, args, outputDir)
}

func retrieveManifest(cmd *cobra.Command, s *session, manifest string) error {
	selection, err := s.selectionPath(manifest)
	if err != nil {
		return err
	}
	checker, err := s.remoteChecker(conflict.RetrieveMessages(), true, checksDisabled(cmd.Flags()), nil)
	if err != nil {
		return err
	}
	res := checker.Check(cmd.Context(), conflict.Continue(selection))
	if !res.Cancelled() {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Approved for retrieve: %s\n", res.Payload())
	}
	return s.finish("retrieve", res)
}

func retrieveComponents(cmd *cobra.Command, s *session, args []string, outputDir string) error {
	dir, err := safeio.CleanUserPath(outputDir)
	if err != nil {
		return &configError{err: fmt.Errorf("--output-dir: %w", err)}
	}

	components := make([]metadata.LocalComponent, 0, len(args))
	for _, arg := range args {
		c, err := metadata.ParseComponent(arg, dir)
		if err != nil {
			return &configError{err: err}
		}
		components = append(components, c)
	}
	sel := metadata.ComponentList(components)
	if len(components) == 1 {
		sel = metadata.SingleComponent(components[0])
	}

	var checker conflict.Checker[metadata.Selection] = conflict.Empty[metadata.Selection]{}
	if !checksDisabled(cmd.Flags()) {
		checker = conflict.NewChain[metadata.Selection](conflict.NewLocalExistenceChecker(conflict.ExistenceConfig{
			Paths:         s.registry,
			WorkspaceRoot: s.root,
			Prompter:      s.prompter,
			Notifier:      s.notifier,
			Telemetry:     s.telemetry,
		}))
	}

	res := checker.Check(cmd.Context(), conflict.Continue(sel))
	outcome := "approved"
	if res.Cancelled() {
		outcome = "cancelled"
	}
	s.telemetry.SendEvent("retrieve", map[string]string{
		"outcome":    outcome,
		"components": fmt.Sprint(len(components)),
	})
	if res.Cancelled() {
		return &cancelledError{message: res.Message()}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Approved for retrieve:")
	for _, c := range res.Payload().Components() {
		_, _ = fmt.Fprintf(out, "  %s\n", c)
	}
	return nil
}
