package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Strategy selects how remote conflicts are detected.
const (
	StrategyContent   = "content"
	StrategyTimestamp = "timestamp"
)

// Config holds all configuration for metaguard
type Config struct {
	ConflictDetection ConflictDetectionConfig `mapstructure:"conflict_detection"`
	TargetOrg         string                  `mapstructure:"target_org"`
	PackageDirectory  string                  `mapstructure:"package_directory"`
	CacheDir          string                  `mapstructure:"cache_dir"`
	TypesFile         string                  `mapstructure:"types_file"`
	Log               LogConfig               `mapstructure:"log"`
	Telemetry         TelemetryConfig         `mapstructure:"telemetry"`
}

// ConflictDetectionConfig is the conflict detection policy.
type ConflictDetectionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Strategy string `mapstructure:"strategy"` // content | timestamp
}

// LogConfig configures the optional rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TelemetryConfig toggles local diagnostics recording.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var defaultConfig = Config{
	ConflictDetection: ConflictDetectionConfig{
		Enabled:  true,
		Strategy: StrategyTimestamp,
	},
	PackageDirectory: "force-app/main/default",
	Log: LogConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	},
	Telemetry: TelemetryConfig{Enabled: true},
}

// ProjectConfigFiles are the project-level overlay file names, in lookup order.
var ProjectConfigFiles = []string{
	".metaguard.yaml",
	".metaguard.yml",
	".metaguard.json",
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("conflict_detection.enabled", defaultConfig.ConflictDetection.Enabled)
	v.SetDefault("conflict_detection.strategy", defaultConfig.ConflictDetection.Strategy)
	v.SetDefault("target_org", "")
	v.SetDefault("package_directory", defaultConfig.PackageDirectory)
	v.SetDefault("cache_dir", "")
	v.SetDefault("types_file", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", defaultConfig.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", defaultConfig.Log.MaxBackups)
	v.SetDefault("log.max_age_days", defaultConfig.Log.MaxAgeDays)
	v.SetDefault("telemetry.enabled", defaultConfig.Telemetry.Enabled)

	v.SetEnvPrefix("METAGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from defaults, metaguard.yaml in the current
// directory, $HOME or the metaguard config directory, and METAGUARD_*
// environment variables.
func LoadConfig() (*Config, error) {
	v := newViper()

	v.SetConfigName("metaguard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return finish(v)
}

// LoadProjectConfig loads the global configuration and overlays the first
// project config file found in root. The overlay is schema validated.
func LoadProjectConfig(root string) (*Config, error) {
	v := newViper()

	v.SetConfigName("metaguard")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	for _, name := range ProjectConfigFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		overlay := viper.New()
		overlay.SetConfigFile(path)
		if err := overlay.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		if err := ValidateSettings(overlay.AllSettings()); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := v.MergeConfigMap(overlay.AllSettings()); err != nil {
			return nil, fmt.Errorf("error merging %s: %w", path, err)
		}
		break
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the schema cannot express for env overrides.
func (c *Config) Validate() error {
	switch c.ConflictDetection.Strategy {
	case StrategyContent, StrategyTimestamp:
	default:
		return fmt.Errorf("invalid conflict_detection.strategy %q (expected %s or %s)",
			c.ConflictDetection.Strategy, StrategyContent, StrategyTimestamp)
	}
	if strings.TrimSpace(c.PackageDirectory) == "" {
		return fmt.Errorf("package_directory must not be empty")
	}
	return nil
}

// ResolveCacheDir returns the configured cache directory or the default one
// under the metaguard home.
func (c *Config) ResolveCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	return GetCacheDir()
}

// GetMetaguardHome returns the metaguard home directory
func GetMetaguardHome() (string, error) {
	if home := os.Getenv("METAGUARD_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}
	return filepath.Join(homeDir, ".metaguard"), nil
}

// EnsureMetaguardHome creates the metaguard home directory if it doesn't exist
func EnsureMetaguardHome() (string, error) {
	homeDir, err := GetMetaguardHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create metaguard home directory: %v", err)
	}
	return homeDir, nil
}

func ensureSubdir(name string) (string, error) {
	homeDir, err := EnsureMetaguardHome()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %v", name, err)
	}
	return dir, nil
}

// GetCacheDir returns the org cache directory
func GetCacheDir() (string, error) { return ensureSubdir("cache") }

// GetLogDir returns the log directory
func GetLogDir() (string, error) { return ensureSubdir("logs") }

// GetConfigDir returns the config directory
func GetConfigDir() (string, error) { return ensureSubdir("config") }

// GetDatabasePath returns the path of the timestamp database.
func GetDatabasePath() (string, error) {
	homeDir, err := EnsureMetaguardHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, "metaguard.db"), nil
}
