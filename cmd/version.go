package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/metaguard/pkg/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show detailed build information")
	cmd.Flags().String("format", "text", "Output format (text|json)")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	info := buildinfo.Current()

	switch format {
	case "json":
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	case "text":
	default:
		return &configError{err: fmt.Errorf("unknown format %q", format)}
	}

	_, _ = fmt.Fprintf(out, "metaguard %s\n", info.Version)
	if extended {
		if info.ModuleVersion != "" {
			_, _ = fmt.Fprintf(out, "Module: %s\n", info.ModuleVersion)
		}
		if info.Revision != "" {
			_, _ = fmt.Fprintf(out, "Revision: %s\n", info.Revision)
		}
		_, _ = fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		_, _ = fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	}
	return nil
}
