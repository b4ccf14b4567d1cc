package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/phillipod/sister-sto/internal/iconmatch"
	"github.com/phillipod/sister-sto/internal/imagehash"
	"github.com/phillipod/sister-sto/internal/overlaydetect"
	"github.com/phillipod/sister-sto/internal/pipeline"
	"github.com/phillipod/sister-sto/internal/prefilter"
	"github.com/phillipod/sister-sto/internal/server"
)

const (
	autoValue  = "auto"
	infoLevel  = "info"
	jsonFormat = "json"
	textFormat = "text"
)

// DefaultConfig returns a configuration with sensible defaults, matching
// every algorithm package's own DefaultConfig().
func DefaultConfig() Config {
	hash := imagehash.DefaultConfig()
	pre := prefilter.DefaultConfig()
	overlay := overlaydetect.DefaultConfig()
	match := iconmatch.DefaultConfig()

	return Config{
		LogLevel: infoLevel,
		Verbose:  false,
		Catalog: CatalogConfig{
			IconDir:       "catalog/icons",
			OverlayDir:    "catalog/overlays",
			HashIndexPath: "catalog/hash_index.json",
		},
		Pipeline: PipelineConfig{
			Hash: HashConfig{MatchSize: hash.MatchSize},
			Prefilter: PrefilterConfig{
				PHashRadius: pre.PHashRadius,
				DHashRadius: pre.DHashRadius,
				RankWalkGap: pre.RankWalkGap,
				RankWalkMax: pre.RankWalkMax,
			},
			OverlayDetect: OverlayDetectConfig{
				ScaleMin:      overlay.ScaleMin,
				ScaleMax:      overlay.ScaleMax,
				ScaleSteps:    overlay.ScaleSteps,
				OffsetGridMax: overlay.OffsetGridMax,
				StripeColumns: overlay.StripeColumns,
				RightPad:      overlay.RightPad,
				SSIMThreshold: overlay.SSIMThreshold,
			},
			IconMatch: IconMatchConfig{
				ScaleMin:                       match.ScaleMin,
				ScaleMax:                       match.ScaleMax,
				ScaleSteps:                     match.ScaleSteps,
				ScoreThreshold:                 match.ScoreThreshold,
				BlurSigma:                      match.BlurSigma,
				RequireThresholdOnCommonBranch: match.RequireThresholdOnCommonBranch,
			},
			Parallel: ParallelConfig{Workers: 4, ChunkSize: 10},
		},
		Output: OutputConfig{
			Format: jsonFormat,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			MetricsEnabled:  true,
			RateLimit: RateLimitConfig{
				Enabled:              false,
				RequestsPerMinute:    60,
				RequestsPerHour:      1000,
				MaxRequestsPerDay:    5000,
				MaxScreenshotsPerDay: 20000,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
		TestData: TestDataConfig{
			Enabled: false,
			Prefix:  "sister",
		},
		GPU: GPUConfig{
			Enabled:     false,
			Device:      0,
			MemoryLimit: autoValue,
		},
	}
}

// validateBasicEnums validates log level and output format.
func (c *Config) validateBasicEnums() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{textFormat, jsonFormat}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	return nil
}

// validateThresholds validates every 0.0-1.0 bounded value.
func (c *Config) validateThresholds() error {
	if err := validateThreshold(c.Pipeline.OverlayDetect.SSIMThreshold, "pipeline.overlay_detect.ssim_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.IconMatch.ScoreThreshold, "pipeline.icon_match.score_threshold"); err != nil {
		return err
	}
	return nil
}

// validatePositiveIntegers validates all positive integer values.
func (c *Config) validatePositiveIntegers() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Pipeline.Parallel.Workers <= 0 {
		return fmt.Errorf("invalid pipeline.parallel.workers: %d (must be positive)", c.Pipeline.Parallel.Workers)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch.workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Pipeline.Hash.MatchSize <= 0 {
		return fmt.Errorf("invalid pipeline.hash.match_size: %d (must be positive)", c.Pipeline.Hash.MatchSize)
	}
	return nil
}

// validateGPU validates GPU-related settings.
func (c *Config) validateGPU() error {
	if c.GPU.MemoryLimit != autoValue && c.GPU.MemoryLimit != "" {
		if err := validateMemoryLimit(c.GPU.MemoryLimit); err != nil {
			return fmt.Errorf("invalid GPU memory limit: %w", err)
		}
	}
	return nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if err := c.validateBasicEnums(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validatePositiveIntegers(); err != nil {
		return err
	}
	if err := c.validateGPU(); err != nil {
		return err
	}
	return nil
}

// ToHashConfig converts to imagehash.Config.
func (c *Config) ToHashConfig() imagehash.Config {
	return imagehash.Config{MatchSize: c.Pipeline.Hash.MatchSize}
}

// ToPrefilterConfig converts to prefilter.Config.
func (c *Config) ToPrefilterConfig() prefilter.Config {
	return prefilter.Config{
		PHashRadius: c.Pipeline.Prefilter.PHashRadius,
		DHashRadius: c.Pipeline.Prefilter.DHashRadius,
		RankWalkGap: c.Pipeline.Prefilter.RankWalkGap,
		RankWalkMax: c.Pipeline.Prefilter.RankWalkMax,
	}
}

// ToOverlayDetectConfig converts to overlaydetect.Config, keeping the
// numeric-kernel sub-configs (block threshold, hue classify, barcode) at
// their package defaults since nothing in the CLI surface exposes them.
func (c *Config) ToOverlayDetectConfig() overlaydetect.Config {
	cfg := overlaydetect.DefaultConfig()
	cfg.ScaleMin = c.Pipeline.OverlayDetect.ScaleMin
	cfg.ScaleMax = c.Pipeline.OverlayDetect.ScaleMax
	cfg.ScaleSteps = c.Pipeline.OverlayDetect.ScaleSteps
	cfg.OffsetGridMax = c.Pipeline.OverlayDetect.OffsetGridMax
	cfg.StripeColumns = c.Pipeline.OverlayDetect.StripeColumns
	cfg.RightPad = c.Pipeline.OverlayDetect.RightPad
	cfg.SSIMThreshold = c.Pipeline.OverlayDetect.SSIMThreshold
	return cfg
}

// ToIconMatchConfig converts to iconmatch.Config.
func (c *Config) ToIconMatchConfig() iconmatch.Config {
	return iconmatch.Config{
		ScaleMin:                       c.Pipeline.IconMatch.ScaleMin,
		ScaleMax:                       c.Pipeline.IconMatch.ScaleMax,
		ScaleSteps:                     c.Pipeline.IconMatch.ScaleSteps,
		ScoreThreshold:                 c.Pipeline.IconMatch.ScoreThreshold,
		BlurSigma:                      c.Pipeline.IconMatch.BlurSigma,
		RequireThresholdOnCommonBranch: c.Pipeline.IconMatch.RequireThresholdOnCommonBranch,
	}
}

// ToOrchestratorConfig fills in the worker-pool sizing and the optional
// output-transform flag on a pipeline.Config the caller has already
// populated with its collaborators, hash index, and overlays.
func (c *Config) ToOrchestratorConfig(base pipeline.Config) pipeline.Config {
	base.Workers = c.Pipeline.Parallel.Workers
	base.ChunkSize = c.Pipeline.Parallel.ChunkSize
	base.HashConfig = c.ToHashConfig()
	base.PrefilterConfig = c.ToPrefilterConfig()
	base.MatchConfig = c.ToIconMatchConfig()
	base.BackfillMatchesWithPrefiltered = c.Pipeline.BackfillMatchesWithPrefiltered
	return base
}

// ToServerConfig converts the serve command's HTTP-facing settings to
// server.Config. The caller still fills in OrchestratorConfig and Source
// once the catalog/hash index/collaborators are loaded.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		CORSOrigin:      c.Server.CORSOrigin,
		TimeoutSec:      c.Server.TimeoutSec,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		MetricsEnabled:  c.Server.MetricsEnabled,
		RateLimit: server.RateLimitConfig{
			Enabled:              c.Server.RateLimit.Enabled,
			RequestsPerMinute:    c.Server.RateLimit.RequestsPerMinute,
			RequestsPerHour:      c.Server.RateLimit.RequestsPerHour,
			MaxRequestsPerDay:    c.Server.RateLimit.MaxRequestsPerDay,
			MaxScreenshotsPerDay: c.Server.RateLimit.MaxScreenshotsPerDay,
		},
	}
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// validateMemoryLimit validates GPU memory limit format (e.g. "1GB", "512MB").
func validateMemoryLimit(limit string) error {
	if limit == "" || limit == autoValue {
		return nil
	}

	validUnits := []string{"B", "KB", "MB", "GB"}
	hasValidUnit := false
	for _, unit := range validUnits {
		if strings.HasSuffix(strings.ToUpper(limit), unit) {
			hasValidUnit = true
			numStr := strings.TrimSuffix(strings.ToUpper(limit), unit)
			if _, err := strconv.ParseFloat(numStr, 64); err != nil {
				return fmt.Errorf("invalid number in memory limit: %s", limit)
			}
			break
		}
	}

	if !hasValidUnit {
		return fmt.Errorf("memory limit must end with one of: %s", strings.Join(validUnits, ", "))
	}
	return nil
}
