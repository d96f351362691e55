/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/metaguard/pkg/buildinfo"
	"github.com/fulmenhq/metaguard/pkg/config"
	"github.com/fulmenhq/metaguard/pkg/exitcode"
	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metaguard",
		Short: "Conflict checks before metadata deploys and retrieves",
		Long: `Metaguard decides whether a deploy or retrieve may overwrite components.
It compares the local project with the last known org state, asks before
overwriting changes, and prints the approved selection.

Examples:
   metaguard deploy --manifest manifest/package.xml
   metaguard deploy --source-path force-app/main/default/classes
   metaguard retrieve --component ApexClass:Invoice --output-dir force-app/main/default/classes
   metaguard cache record --properties .sf/retrieve/properties.json
   metaguard types`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().Bool("no-op", false, "Mark log output as a dry run")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("metaguard {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newDeployCommand())
	cmd.AddCommand(newRetrieveCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(newTypesCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command and exits with the code matching the outcome.
// This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Close()
	if err == nil {
		return
	}
	var cancelled *cancelledError
	if errors.As(err, &cancelled) {
		if cancelled.message != "" {
			fmt.Fprintln(os.Stderr, cancelled.message)
		}
		os.Exit(exitcode.Cancelled)
	}
	logger.Error("Command execution failed", logger.Err(err))
	os.Exit(exitCodeFor(err))
}

func init() {
	registerSubcommands(rootCmd)
}

// cancelledError reports that a conflict check stopped the operation.
type cancelledError struct {
	message string
}

func (e *cancelledError) Error() string {
	if e.message == "" {
		return "operation cancelled"
	}
	return "operation cancelled: " + e.message
}

// configError marks failures caused by configuration or flags.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var cancelled *cancelledError
	var cfgErr *configError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &cancelled):
		return exitcode.Cancelled
	case errors.As(err, &cfgErr):
		return exitcode.ConfigError
	default:
		return exitcode.GeneralError
	}
}

// initializeLogger sets up the logger based on command flags and the log
// section of the configuration.
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noOp, _ := cmd.Flags().GetBool("no-op")

	logLevel, err := logger.ParseLevel(logLevelStr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v, using info\n", err)
	}

	cfg := logger.Config{
		Level:     logLevel,
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "metaguard",
		NoOp:      noOp,
	}
	if appCfg, err := config.LoadConfig(); err == nil && appCfg.Log.File != "" {
		cfg.File = logger.FileConfig{
			Path:       appCfg.Log.File,
			MaxSizeMB:  appCfg.Log.MaxSizeMB,
			MaxBackups: appCfg.Log.MaxBackups,
			MaxAgeDays: appCfg.Log.MaxAgeDays,
		}
	}

	if err := logger.Initialize(cfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
