// Package config implements the Viper/YAML configuration layer: a
// struct-tagged Config loaded from a "sister.yaml" file, SISTER_-prefixed
// environment variables, and command-line flags, in that increasing
// order of precedence.
package config

// Config is the complete configuration for the sister-sto pipeline tool.
// It covers every command (run, build-cache, download, serve) and
// supports loading from configuration files, environment variables, and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose"   yaml:"verbose"   json:"verbose"`

	// Catalog locates the reference icon/overlay images and the
	// persisted hash index the prefilter stage queries.
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Test-instrumentation sink
	TestData TestDataConfig `mapstructure:"test_data" yaml:"test_data" json:"test_data"`

	// GPU configuration, settable from the config file or SISTER_GPU_*
	// environment variables (no CLI flag sets it); no stage in this
	// pipeline has a GPU-accelerated code path, so Enabled is read but
	// never wired to behavior.
	GPU GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// CatalogConfig locates the on-disk catalog the hash index is built from
// and queries against.
type CatalogConfig struct {
	IconDir       string `mapstructure:"icon_dir"        yaml:"icon_dir"        json:"icon_dir"`
	OverlayDir    string `mapstructure:"overlay_dir"     yaml:"overlay_dir"     json:"overlay_dir"`
	HashIndexPath string `mapstructure:"hash_index_path" yaml:"hash_index_path" json:"hash_index_path"`
}

// PipelineConfig contains the tuning knobs for every algorithmic stage.
type PipelineConfig struct {
	Hash           HashConfig           `mapstructure:"hash"            yaml:"hash"            json:"hash"`
	Prefilter      PrefilterConfig      `mapstructure:"prefilter"       yaml:"prefilter"       json:"prefilter"`
	OverlayDetect  OverlayDetectConfig  `mapstructure:"overlay_detect"  yaml:"overlay_detect"  json:"overlay_detect"`
	IconMatch      IconMatchConfig      `mapstructure:"icon_match"      yaml:"icon_match"      json:"icon_match"`
	Parallel       ParallelConfig       `mapstructure:"parallel"        yaml:"parallel"        json:"parallel"`

	// BackfillMatchesWithPrefiltered enables the optional output
	// transform that substitutes a slot's best prefiltered candidate
	// when the matcher produced nothing for it.
	BackfillMatchesWithPrefiltered bool `mapstructure:"backfill_matches_with_prefiltered" yaml:"backfill_matches_with_prefiltered" json:"backfill_matches_with_prefiltered"`
}

// HashConfig contains the perceptual-hash resize target.
type HashConfig struct {
	MatchSize int `mapstructure:"match_size" yaml:"match_size" json:"match_size"`
}

// PrefilterConfig contains the adaptive-cutoff hash-distance prefilter's
// tuning knobs.
type PrefilterConfig struct {
	PHashRadius int `mapstructure:"phash_radius"  yaml:"phash_radius"  json:"phash_radius"`
	DHashRadius int `mapstructure:"dhash_radius"  yaml:"dhash_radius"  json:"dhash_radius"`
	RankWalkGap int `mapstructure:"rank_walk_gap" yaml:"rank_walk_gap" json:"rank_walk_gap"`
	RankWalkMax int `mapstructure:"rank_walk_max" yaml:"rank_walk_max" json:"rank_walk_max"`
}

// OverlayDetectConfig contains the barcode-stripe overlay detector's
// search-grid geometry.
type OverlayDetectConfig struct {
	ScaleMin      float64 `mapstructure:"scale_min"       yaml:"scale_min"       json:"scale_min"`
	ScaleMax      float64 `mapstructure:"scale_max"       yaml:"scale_max"       json:"scale_max"`
	ScaleSteps    int     `mapstructure:"scale_steps"     yaml:"scale_steps"     json:"scale_steps"`
	OffsetGridMax int     `mapstructure:"offset_grid_max" yaml:"offset_grid_max" json:"offset_grid_max"`
	StripeColumns int     `mapstructure:"stripe_columns"  yaml:"stripe_columns"  json:"stripe_columns"`
	RightPad      int     `mapstructure:"right_pad"       yaml:"right_pad"       json:"right_pad"`
	SSIMThreshold float64 `mapstructure:"ssim_threshold"  yaml:"ssim_threshold"  json:"ssim_threshold"`
}

// IconMatchConfig contains the multi-scale SSIM matcher's search schedule
// and acceptance threshold.
type IconMatchConfig struct {
	ScaleMin                       float64 `mapstructure:"scale_min"                          yaml:"scale_min"                          json:"scale_min"`
	ScaleMax                       float64 `mapstructure:"scale_max"                          yaml:"scale_max"                          json:"scale_max"`
	ScaleSteps                     int     `mapstructure:"scale_steps"                        yaml:"scale_steps"                        json:"scale_steps"`
	ScoreThreshold                 float64 `mapstructure:"score_threshold"                    yaml:"score_threshold"                    json:"score_threshold"`
	BlurSigma                      float64 `mapstructure:"blur_sigma"                         yaml:"blur_sigma"                         json:"blur_sigma"`
	RequireThresholdOnCommonBranch bool    `mapstructure:"require_threshold_on_common_branch" yaml:"require_threshold_on_common_branch" json:"require_threshold_on_common_branch"`
}

// ParallelConfig contains worker-pool sizing shared by every
// pool-parallel stage.
type ParallelConfig struct {
	Workers   int `mapstructure:"workers"    yaml:"workers"    json:"workers"`
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size" json:"chunk_size"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format   string `mapstructure:"format"    yaml:"format"    json:"format"`
	File     string `mapstructure:"file"      yaml:"file"      json:"file"`
	NoResize bool   `mapstructure:"no_resize" yaml:"no_resize" json:"no_resize"`
}

// ServerConfig contains HTTP server settings for the optional serve
// command: health/metrics endpoints plus a progress-streaming websocket.
type ServerConfig struct {
	Host            string          `mapstructure:"host"             yaml:"host"             json:"host"`
	Port            int             `mapstructure:"port"             yaml:"port"             json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin"      yaml:"cors_origin"      json:"cors_origin"`
	TimeoutSec      int             `mapstructure:"timeout_sec"      yaml:"timeout_sec"      json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MetricsEnabled  bool            `mapstructure:"metrics_enabled"  yaml:"metrics_enabled"  json:"metrics_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"       yaml:"rate_limit"       json:"rate_limit"`
}

// RateLimitConfig contains per-client request/screenshot quota settings
// for the serve command's optional rate limiter.
type RateLimitConfig struct {
	Enabled              bool  `mapstructure:"enabled"                  yaml:"enabled"                  json:"enabled"`
	RequestsPerMinute    int   `mapstructure:"requests_per_minute"      yaml:"requests_per_minute"      json:"requests_per_minute"`
	RequestsPerHour      int   `mapstructure:"requests_per_hour"        yaml:"requests_per_hour"        json:"requests_per_hour"`
	MaxRequestsPerDay    int   `mapstructure:"max_requests_per_day"     yaml:"max_requests_per_day"     json:"max_requests_per_day"`
	MaxScreenshotsPerDay int64 `mapstructure:"max_screenshots_per_day"  yaml:"max_screenshots_per_day"  json:"max_screenshots_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers"           yaml:"workers"           json:"workers"`
	OutputDir       string `mapstructure:"output_dir"        yaml:"output_dir"        json:"output_dir"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// TestDataConfig controls the optional test-instrumentation sink.
type TestDataConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Prefix  string `mapstructure:"prefix"  yaml:"prefix"  json:"prefix"`
}

// GPUConfig contains GPU acceleration settings, carried for CLI surface
// parity only (see Config.GPU).
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"      json:"enabled"`
	Device      int    `mapstructure:"device"       yaml:"device"       json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
