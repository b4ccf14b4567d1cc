package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "sister"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SISTER"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Use the global viper instance to ensure flag bindings work
	return &Loader{v: viper.GetViper()}
}

// Load loads configuration from files, environment variables, and sets defaults.
// It returns the loaded configuration and any error encountered.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// LoadWithoutValidation loads configuration without validating it, for
// callers (e.g. `version`) that don't need a fully-formed pipeline config.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/sister")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "sister"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "sister"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("catalog.icon_dir", defaults.Catalog.IconDir)
	l.v.SetDefault("catalog.overlay_dir", defaults.Catalog.OverlayDir)
	l.v.SetDefault("catalog.hash_index_path", defaults.Catalog.HashIndexPath)

	l.v.SetDefault("pipeline.hash.match_size", defaults.Pipeline.Hash.MatchSize)

	l.v.SetDefault("pipeline.prefilter.phash_radius", defaults.Pipeline.Prefilter.PHashRadius)
	l.v.SetDefault("pipeline.prefilter.dhash_radius", defaults.Pipeline.Prefilter.DHashRadius)
	l.v.SetDefault("pipeline.prefilter.rank_walk_gap", defaults.Pipeline.Prefilter.RankWalkGap)
	l.v.SetDefault("pipeline.prefilter.rank_walk_max", defaults.Pipeline.Prefilter.RankWalkMax)

	l.v.SetDefault("pipeline.overlay_detect.scale_min", defaults.Pipeline.OverlayDetect.ScaleMin)
	l.v.SetDefault("pipeline.overlay_detect.scale_max", defaults.Pipeline.OverlayDetect.ScaleMax)
	l.v.SetDefault("pipeline.overlay_detect.scale_steps", defaults.Pipeline.OverlayDetect.ScaleSteps)
	l.v.SetDefault("pipeline.overlay_detect.offset_grid_max", defaults.Pipeline.OverlayDetect.OffsetGridMax)
	l.v.SetDefault("pipeline.overlay_detect.stripe_columns", defaults.Pipeline.OverlayDetect.StripeColumns)
	l.v.SetDefault("pipeline.overlay_detect.right_pad", defaults.Pipeline.OverlayDetect.RightPad)
	l.v.SetDefault("pipeline.overlay_detect.ssim_threshold", defaults.Pipeline.OverlayDetect.SSIMThreshold)

	l.v.SetDefault("pipeline.icon_match.scale_min", defaults.Pipeline.IconMatch.ScaleMin)
	l.v.SetDefault("pipeline.icon_match.scale_max", defaults.Pipeline.IconMatch.ScaleMax)
	l.v.SetDefault("pipeline.icon_match.scale_steps", defaults.Pipeline.IconMatch.ScaleSteps)
	l.v.SetDefault("pipeline.icon_match.score_threshold", defaults.Pipeline.IconMatch.ScoreThreshold)
	l.v.SetDefault("pipeline.icon_match.blur_sigma", defaults.Pipeline.IconMatch.BlurSigma)
	l.v.SetDefault("pipeline.icon_match.require_threshold_on_common_branch", defaults.Pipeline.IconMatch.RequireThresholdOnCommonBranch)

	l.v.SetDefault("pipeline.parallel.workers", defaults.Pipeline.Parallel.Workers)
	l.v.SetDefault("pipeline.parallel.chunk_size", defaults.Pipeline.Parallel.ChunkSize)
	l.v.SetDefault("pipeline.backfill_matches_with_prefiltered", defaults.Pipeline.BackfillMatchesWithPrefiltered)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.no_resize", defaults.Output.NoResize)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.metrics_enabled", defaults.Server.MetricsEnabled)
	l.v.SetDefault("server.rate_limit.enabled", defaults.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", defaults.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", defaults.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", defaults.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_screenshots_per_day", defaults.Server.RateLimit.MaxScreenshotsPerDay)

	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)

	l.v.SetDefault("test_data.enabled", defaults.TestData.Enabled)
	l.v.SetDefault("test_data.prefix", defaults.TestData.Prefix)

	l.v.SetDefault("gpu.enabled", defaults.GPU.Enabled)
	l.v.SetDefault("gpu.device", defaults.GPU.Device)
	l.v.SetDefault("gpu.memory_limit", defaults.GPU.MemoryLimit)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoader()
	loader.setDefaults()

	if filename == "" {
		filename = "sister.yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "sister"))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", "sister"))
	}

	paths = append(paths, "/etc/sister")

	return paths
}

// PrintConfigInfo prints information about configuration loading for debugging.
func (l *Loader) PrintConfigInfo() {
	fmt.Printf("Configuration file used: %s\n", l.GetConfigFileUsed())
	fmt.Printf("Configuration search paths: %v\n", GetConfigSearchPaths())
	fmt.Printf("Environment prefix: %s\n", EnvPrefix)
}
