package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Print the effective metadata type registry",
		Long: `Print the metadata type registry as YAML: the built-in types merged
with the file named by types_file, if any.`,
		Args: cobra.NoArgs,
		RunE: runTypes,
	}
}

func runTypes(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(s.registry); err != nil {
		return fmt.Errorf("encode type registry: %w", err)
	}
	return enc.Close()
}
