package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/metaguard/internal/channel"
	"github.com/fulmenhq/metaguard/internal/report"
	"github.com/fulmenhq/metaguard/internal/telemetry"
	"github.com/fulmenhq/metaguard/internal/terminal"
	"github.com/fulmenhq/metaguard/internal/workspace"
	"github.com/fulmenhq/metaguard/pkg/config"
	"github.com/fulmenhq/metaguard/pkg/conflict"
	"github.com/fulmenhq/metaguard/pkg/diff"
	"github.com/fulmenhq/metaguard/pkg/ignore"
	"github.com/fulmenhq/metaguard/pkg/logger"
	"github.com/fulmenhq/metaguard/pkg/metadata"
	"github.com/fulmenhq/metaguard/pkg/safeio"
	"github.com/fulmenhq/metaguard/pkg/snapshot"
	"github.com/spf13/cobra"
)

const channelName = "metaguard"

// session wires the collaborators of one command invocation.
type session struct {
	root       string
	cfg        *config.Config
	registry   *metadata.Registry
	cacheDir   string
	identity   *workspace.IdentityResolver
	prompter   *terminal.Prompter
	notifier   *terminal.Notifier
	channel    *channel.Channel
	telemetry  *telemetry.Sink
	visualizer *report.Visualizer
	store      *snapshot.Store
}

func newSession(cmd *cobra.Command) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return nil, fmt.Errorf("find workspace root: %w", err)
	}

	cfg, err := config.LoadProjectConfig(root)
	if err != nil {
		return nil, &configError{err: err}
	}

	typesFile := cfg.TypesFile
	if typesFile != "" && !filepath.IsAbs(typesFile) {
		typesFile = filepath.Join(root, typesFile)
	}
	reg, err := metadata.LoadRegistry(typesFile)
	if err != nil {
		return nil, &configError{err: err}
	}

	cacheDir, err := cfg.ResolveCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(root, cacheDir)
	}

	flagOrg, _ := cmd.Flags().GetString(flagTargetOrg)
	out := cmd.OutOrStdout()

	ch := channel.New(channelName, out)
	if logDir, err := config.GetLogDir(); err == nil {
		ch = ch.WithFile(channel.FileConfig{
			Path:       filepath.Join(logDir, channelName+"-channel.log"),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
	} else {
		logger.Debug("Channel file mirror disabled", logger.Err(err))
	}

	logger.Debug("Session ready",
		logger.String("root", root),
		logger.String("strategy", cfg.ConflictDetection.Strategy),
		logger.Bool("enabled", cfg.ConflictDetection.Enabled),
		logger.String("branch", workspace.Branch(root)))

	return &session{
		root:       root,
		cfg:        cfg,
		registry:   reg,
		cacheDir:   cacheDir,
		identity:   workspace.NewIdentityResolver(flagOrg, cfg.TargetOrg, root),
		prompter:   terminal.NewPrompter(cmd.InOrStdin(), out),
		notifier:   terminal.NewNotifier(cmd.ErrOrStderr()),
		channel:    ch,
		telemetry:  telemetry.New(cfg.Telemetry.Enabled),
		visualizer: report.NewVisualizer(out),
	}, nil
}

// Close releases the store and the channel file.
func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("Failed to close timestamp store", logger.Err(err))
		}
	}
	if err := s.channel.Close(); err != nil {
		logger.Warn("Failed to close output channel", logger.Err(err))
	}
}

func (s *session) collaborators() conflict.Collaborators {
	return conflict.Collaborators{
		Identity:   s.identity,
		Prompter:   s.prompter,
		Channel:    s.channel,
		Telemetry:  s.telemetry,
		Visualizer: s.visualizer,
	}
}

func (s *session) openStore() (*snapshot.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	dbPath, err := config.GetDatabasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	store, err := snapshot.OpenStore(dbPath)
	if err != nil {
		return nil, err
	}
	s.store = store
	return store, nil
}

// selectionPath returns p relative to the workspace root, slash separated.
// Paths outside the workspace are rejected.
func (s *session) selectionPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	abs, err = safeio.Contained(s.root, abs)
	if err != nil {
		return "", &configError{err: err}
	}
	if _, err := os.Stat(abs); err != nil {
		return "", &configError{err: fmt.Errorf("selection %s: %w", p, err)}
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// remoteChecker builds the chain guarding a deploy or a manifest retrieve.
// Manifest selections use content comparison when configured; everything
// else is checked against recorded timestamps.
func (s *session) remoteChecker(msgs conflict.Messages, isManifest, disabled bool, lock conflict.Lock) (conflict.Checker[string], error) {
	if disabled {
		logger.Info("Conflict detection skipped", logger.String("operation", msgs.Operation))
		return conflict.Empty[string]{}, nil
	}

	enabled := s.cfg.ConflictDetection.Enabled
	if isManifest && s.cfg.ConflictDetection.Strategy == config.StrategyContent {
		matcher, err := ignore.NewMatcher(s.root)
		if err != nil {
			return nil, err
		}
		return conflict.NewChain[string](conflict.NewManifestConflictChecker(conflict.ManifestConfig{
			Collaborators: s.collaborators(),
			Enabled:       enabled,
			Differ: &diff.ContentDiffer{
				WorkspaceRoot: s.root,
				PackageDir:    s.cfg.PackageDirectory,
				CacheDir:      s.cacheDir,
				Registry:      s.registry,
				Ignore:        matcher,
			},
			Messages: msgs,
		})), nil
	}

	store, err := s.openStore()
	if err != nil {
		return nil, err
	}
	return conflict.NewChain[string](conflict.NewTimestampConflictChecker(conflict.TimestampConfig{
		Collaborators: s.collaborators(),
		Enabled:       enabled,
		IsManifest:    isManifest,
		WorkspaceRoot: s.root,
		Loader:        snapshot.NewLoader(s.registry, s.cfg.PackageDirectory, s.cacheDir, store),
		Builder:       diff.TimestampDiffBuilder{},
		Lock:          lock,
		Messages:      msgs,
	})), nil
}

// finish records the outcome and converts a cancellation into an error.
func (s *session) finish(operation string, res conflict.Result[string]) error {
	outcome := "approved"
	if res.Cancelled() {
		outcome = "cancelled"
	}
	s.telemetry.SendEvent(operation, map[string]string{
		"outcome":  outcome,
		"strategy": s.cfg.ConflictDetection.Strategy,
	})
	if res.Cancelled() {
		return &cancelledError{message: res.Message()}
	}
	return nil
}
