// Package cmd implements the sister command-line tool: a Cobra/Viper
// CLI over the catalog, hash-index, and pipeline packages, mirroring
// the layout of a typical single-binary analysis tool (global
// persistent flags, a lazily-loaded merged config, one subcommand per
// operation).
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phillipod/sister-sto/internal/config"
	"github.com/phillipod/sister-sto/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// configLoader is the global configuration loader.
	configLoader *config.Loader
	// globalConfig caches the merged configuration once loaded.
	globalConfig *config.Config
	// cfgFile is the path given via --config, if any.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sister",
	Short: "Identify Star Trek Online character-sheet icons and rarity overlays",
	Long: `sister analyzes Star Trek Online character-sheet screenshots (or
PDF exports) and identifies the equipped icons and their rarity
overlays against a catalog of reference images.

This tool provides:
- Icon-group and icon-slot location within a screenshot
- Perceptual-hash prefiltering against a catalog hash index
- Rarity-overlay detection and multi-scale icon matching
- A batch CLI mode and an optional HTTP server mode

Examples:
  sister run screenshot.png
  sister build-cache --image-cache catalog/icons/image_cache.json
  sister serve --port 8080`,
	Version: "", // set in init() once version.Info() is available
}

// Execute runs the root command; it is the sole entry point called
// from main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCommand returns the root command for tests.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	default:
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	cobra.OnInitialize(initConfig)

	v, commit, date := version.Info()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/sister, /etc/sister)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	configLoader = config.NewLoader()
}

// GetConfigLoader returns the global configuration loader, creating it
// if a command runs before Cobra's OnInitialize hook (e.g. in tests).
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// GetConfig returns the merged configuration (file + env + flags),
// validating it. Commands that don't need a fully-formed pipeline
// config (e.g. version) should use GetConfigUnvalidated instead.
func GetConfig() *config.Config {
	cfg, err := loadConfig(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// GetConfigUnvalidated loads the merged configuration without
// rejecting an incomplete one.
func GetConfigUnvalidated() *config.Config {
	cfg, err := loadConfig(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func loadConfig(validate bool) (*config.Config, error) {
	loader := GetConfigLoader()

	var cfg *config.Config
	var err error
	switch {
	case cfgFile != "":
		// LoadWithFile always validates; an explicit --config path is
		// assumed to be intentional even for otherwise-unvalidated commands.
		cfg, err = loader.LoadWithFile(cfgFile)
	case validate:
		cfg, err = loader.Load()
	default:
		cfg, err = loader.LoadWithoutValidation()
	}
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	setupLogging(cfg)
	return cfg, nil
}
