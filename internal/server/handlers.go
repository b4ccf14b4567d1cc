package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/pipeline"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// catalogHandler reports the loaded hash index size and configured
// overlays, standing in for an OCR server's /models endpoint.
func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := CatalogInfoResponse{
		HashIndexEntries: s.hashIndexLen(),
		Overlays:         s.overlayNames(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding catalog response: %v\n", err)
	}
}

// metricsHandler exposes Prometheus metrics when enabled.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.metricsEnabled {
		http.NotFound(w, r)
		return
	}
	promhttp.Handler().ServeHTTP(w, r)
}

// runRequest is the /run endpoint's JSON body: one or more screenshot
// paths already reachable on the server's filesystem, since uploads are
// out of scope for this tool's HTTP surface (the CLI's run command is
// the primary batch entry point).
type runRequest struct {
	Paths []string `json:"paths"`
}

// runHandler runs the identification pipeline against the requested
// screenshot paths and returns the sorted match table, folding what
// would otherwise be separate single-image/PDF/batch OCR endpoints
// into one batch-of-N run.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeRunError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		s.writeRunError(w, "paths must contain at least one screenshot", http.StatusBadRequest)
		return
	}
	if s.source == nil {
		s.writeRunError(w, "server has no screenshot source configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	screenshots, err := s.loadScreenshots(ctx, req.Paths)
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		s.writeRunError(w, err.Error(), http.StatusBadRequest)
		return
	}

	orchestrator := pipeline.New(s.orchestratorCfg)
	state, metrics, runErr := orchestrator.Run(ctx, screenshots)
	if runErr != nil {
		runsTotal.WithLabelValues("error").Inc()
		s.writeRunError(w, runErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	runsTotal.WithLabelValues("success").Inc()
	s.recordStageMetrics(metrics)
	s.recordOutputMetrics(state.Output)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(RunResponse{
		Success: true,
		Output:  state.Output,
		Metrics: metrics,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding run response: %v\n", err)
	}
}

// loadScreenshots resolves every requested path through the server's
// configured ScreenshotSource, flattening PDF exports into one or more
// screenshots each, in request order.
func (s *Server) loadScreenshots(ctx context.Context, paths []string) ([]catalogmodel.Screenshot, error) {
	var out []catalogmodel.Screenshot
	for _, path := range paths {
		loaded, err := s.source.LoadScreenshots(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		out = append(out, loaded...)
	}
	return out, nil
}

func (s *Server) recordStageMetrics(metrics pipeline.Metrics) {
	for _, stage := range metrics.Stages {
		if stage.Success {
			stageDuration.WithLabelValues(string(stage.Stage)).Observe(stage.Duration.Seconds())
		}
	}
	runHeapAllocBytes.Observe(float64(metrics.Memory.MemoryAfter.Alloc - metrics.Memory.MemoryBefore.Alloc))
}

// recordOutputMetrics observes the per-slot prefilter shortlist size and
// the winning match/overlay score for every slot in the run's output,
// giving the Prometheus surface visibility into match quality the way
// the stage metrics give it visibility into timing.
func (s *Server) recordOutputMetrics(output pipeline.OutputResult) {
	for _, bySlot := range output.PrefilteredIcons {
		for _, candidates := range bySlot {
			prefilterCandidates.Observe(float64(len(candidates)))
		}
	}
	for _, bySlot := range output.Matches {
		for _, results := range bySlot {
			if len(results) > 0 {
				matchScore.WithLabelValues("icon").Observe(results[0].Score)
			}
		}
	}
	for _, detection := range flattenOverlayDetections(output.DetectedOverlays) {
		matchScore.WithLabelValues("overlay").Observe(detection.SSIM)
	}
}

func flattenOverlayDetections(byGroup map[string]map[int]catalogmodel.OverlayDetection) []catalogmodel.OverlayDetection {
	var out []catalogmodel.OverlayDetection
	for _, bySlot := range byGroup {
		for _, d := range bySlot {
			out = append(out, d)
		}
	}
	return out
}

func (s *Server) writeRunError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(RunResponse{Success: false, Error: message}); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
