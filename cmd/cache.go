package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/fulmenhq/metaguard/pkg/safeio"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the recorded org state",
		Long: `The cache holds, per org, the remote properties captured at the last
successful deploy or retrieve. Timestamp conflict detection compares the
current org properties against these recorded values.`,
	}

	record := &cobra.Command{
		Use:   "record",
		Short: "Record remote properties after a sync",
		Args:  cobra.NoArgs,
		RunE:  runCacheRecord,
	}
	addTargetOrgFlag(record.Flags())
	record.Flags().String("properties", "", "Path to the properties.json captured by the last sync")
	_ = record.MarkFlagRequired("properties")

	show := &cobra.Command{
		Use:   "show",
		Short: "List the recorded properties of an org",
		Args:  cobra.NoArgs,
		RunE:  runCacheShow,
	}
	addTargetOrgFlag(show.Flags())

	cmd.AddCommand(record, show)
	return cmd
}

func runCacheRecord(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	org, err := s.identity.Resolve()
	if err != nil {
		return &configError{err: err}
	}
	orgDir, err := snapshot.OrgDir(s.cacheDir, org)
	if err != nil {
		return &configError{err: err}
	}

	propsPath, _ := cmd.Flags().GetString("properties")
	raw, err := safeio.ReadFileContained(s.root, propsPath)
	if err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	props, err := snapshot.ParseProperties(raw)
	if err != nil {
		return err
	}

	store, err := s.openStore()
	if err != nil {
		return err
	}
	if err := store.Record(cmd.Context(), org, props); err != nil {
		return err
	}
	cached := filepath.Join(orgDir, snapshot.PropertiesFileName)
	if err := safeio.WriteFileAtomic(cached, raw); err != nil {
		return fmt.Errorf("update org cache: %w", err)
	}

	logger.Info("Recorded remote properties", logger.String("org", org), logger.Int("components", len(props)))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d components for %s\n", len(props), org)
	return nil
}

func runCacheShow(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	org, err := s.identity.Resolve()
	if err != nil {
		return &configError{err: err}
	}
	store, err := s.openStore()
	if err != nil {
		return err
	}
	entries, err := store.List(cmd.Context(), org)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "Nothing recorded for %s\n", org)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tNAME\tLAST MODIFIED\tRECORDED")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Type, e.FullName,
			e.LastModified.UTC().Format(time.RFC3339), e.RecordedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
