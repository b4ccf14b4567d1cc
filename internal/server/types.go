package server

import (
	"net/http"

	"github.com/phillipod/sister-sto/internal/collaborators"
	"github.com/phillipod/sister-sto/internal/pipeline"
)

// Server holds the HTTP server state: the orchestrator configuration
// shared by every run (hash index, overlays, collaborators) plus the
// ambient CORS/rate-limit/metrics concerns every route goes through.
type Server struct {
	orchestratorCfg pipeline.Config
	source          collaborators.ScreenshotSource

	corsOrigin     string
	timeoutSec     int
	metricsEnabled bool
	rateLimiter    *RateLimiter
}

// Config holds server configuration, built by the serve command from
// the merged CLI configuration plus the loaded catalog.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	TimeoutSec      int
	ShutdownTimeout int
	MetricsEnabled  bool

	OrchestratorConfig pipeline.Config
	Source             collaborators.ScreenshotSource

	RateLimit RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled              bool
	RequestsPerMinute    int
	RequestsPerHour      int
	MaxRequestsPerDay    int
	MaxScreenshotsPerDay int64 // screenshots processed across all /run calls
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CatalogInfoResponse is the /catalog payload: a summary of the loaded
// hash index and overlay set, standing in for the OCR server's /models
// endpoint in this domain.
type CatalogInfoResponse struct {
	HashIndexEntries int      `json:"hash_index_entries"`
	Overlays         []string `json:"overlays"`
}

// RunResponse wraps one pipeline run's output and per-stage metrics for
// the /run endpoint.
type RunResponse struct {
	Success bool                  `json:"success"`
	Output  pipeline.OutputResult `json:"output,omitempty"`
	Metrics pipeline.Metrics      `json:"metrics,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// NewServer builds a Server from config. The orchestrator config must
// already carry its collaborators, hash index, overlays and detector;
// NewServer only wires the HTTP-facing concerns around it.
func NewServer(config Config) (*Server, error) {
	var rateLimiter *RateLimiter
	if config.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxScreenshotsPerDay,
		)
	}

	return &Server{
		orchestratorCfg: config.OrchestratorConfig,
		source:          config.Source,
		corsOrigin:      config.CORSOrigin,
		timeoutSec:      config.TimeoutSec,
		metricsEnabled:  config.MetricsEnabled,
		rateLimiter:     rateLimiter,
	}, nil
}

// Close releases server resources. The orchestrator itself is
// stateless between runs, so there is nothing to release today; kept
// for symmetry with the CLI's defer-Close pattern and as a home for
// future collaborator teardown (e.g. a networked CargoDownloader).
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/catalog", s.corsMiddleware(s.catalogHandler))
	mux.HandleFunc("/metrics", s.corsMiddleware(s.metricsHandler))
	mux.HandleFunc("/run", s.corsMiddleware(s.rateLimitMiddleware(s.runHandler)))
	mux.HandleFunc("/ws/progress", s.corsMiddleware(s.progressWebSocketHandler))
}

// overlayNames returns the configured overlay image names, for the
// catalog-info response.
func (s *Server) overlayNames() []string {
	names := make([]string, 0, len(s.orchestratorCfg.Overlays))
	for _, o := range s.orchestratorCfg.Overlays {
		names = append(names, o.Name)
	}
	return names
}

// hashIndexLen reports the loaded hash index size, or 0 if unset.
func (s *Server) hashIndexLen() int {
	if idx := s.orchestratorCfg.HashIndex; idx != nil {
		return idx.Len()
	}
	return 0
}
