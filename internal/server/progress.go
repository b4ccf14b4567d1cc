package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phillipod/sister-sto/internal/pipeline"
)

// upgrader configures the WebSocket upgrade for the progress endpoint.
// CheckOrigin accepts every origin instead of the gorilla default of
// same-origin-only; the server's CORS origin setting is not applied to
// the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// progressRequest is the /ws/progress client message: the same screenshot
// paths the /run endpoint accepts, run once the connection is open.
type progressRequest struct {
	Paths []string `json:"paths"`
}

// progressEvent is one server->client frame streamed while a run
// progresses. Exactly one of Output/Error is set on the final event.
type progressEvent struct {
	Type     string               `json:"type"` // stage_start, progress, stage_complete, error, complete
	Stage    string               `json:"stage,omitempty"`
	Fraction float64              `json:"fraction,omitempty"`
	Error    string               `json:"error,omitempty"`
	Output   *pipeline.OutputResult `json:"output,omitempty"`
}

// progressWebSocketHandler upgrades the connection, runs the pipeline
// against the requested screenshots, and streams stage-start/progress/
// stage-complete events as they fire, followed by one final "complete"
// (or "error") frame carrying the output.
func (s *Server) progressWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	var req progressRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.sendProgressError(conn, "invalid request: "+err.Error())
		return
	}
	websocketMessagesTotal.WithLabelValues("received").Inc()

	if len(req.Paths) == 0 {
		s.sendProgressError(conn, "paths must contain at least one screenshot")
		return
	}
	if s.source == nil {
		s.sendProgressError(conn, "server has no screenshot source configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	screenshots, err := s.loadScreenshots(ctx, req.Paths)
	if err != nil {
		s.sendProgressError(conn, err.Error())
		return
	}

	cfg := s.orchestratorCfg
	cfg.Callbacks = &websocketCallbacks{conn: conn}

	orchestrator := pipeline.New(cfg)
	state, metrics, runErr := orchestrator.Run(ctx, screenshots)
	if runErr != nil {
		runsTotal.WithLabelValues("error").Inc()
		s.sendProgressError(conn, runErr.Error())
		return
	}
	runsTotal.WithLabelValues("success").Inc()
	s.recordStageMetrics(metrics)
	s.recordOutputMetrics(state.Output)

	s.sendProgressEvent(conn, progressEvent{Type: "complete", Output: &state.Output})
}

func (s *Server) sendProgressError(conn *websocket.Conn, message string) {
	s.sendProgressEvent(conn, progressEvent{Type: "error", Error: message})
}

func (s *Server) sendProgressEvent(conn *websocket.Conn, event progressEvent) {
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	if err := conn.WriteJSON(event); err != nil {
		slog.Warn("websocket write failed", "error", err)
	}
}

// websocketCallbacks adapts pipeline.Callbacks to stream stage-start,
// progress, and stage-complete frames over an open connection. Errors
// writing to the socket are swallowed: a client that went away mid-run
// must not abort the pipeline (§4.1's "errors inside a callback are
// logged but never abort the pipeline").
type websocketCallbacks struct {
	conn *websocket.Conn
}

func (c *websocketCallbacks) OnStageStart(stage pipeline.StageName) {
	c.send(progressEvent{Type: "stage_start", Stage: string(stage)})
}

func (c *websocketCallbacks) OnStageComplete(status pipeline.StageStatus) {
	event := progressEvent{Type: "stage_complete", Stage: string(status.Name)}
	if status.Err != nil {
		event.Error = status.Err.Error()
	}
	c.send(event)
}

func (c *websocketCallbacks) OnProgress(stage pipeline.StageName, fraction float64) {
	c.send(progressEvent{Type: "progress", Stage: string(stage), Fraction: fraction})
}

func (c *websocketCallbacks) OnPipelineComplete(pipeline.OutputResult) {}

func (c *websocketCallbacks) OnError(stage pipeline.StageName, err error) {
	c.send(progressEvent{Type: "error", Stage: string(stage), Error: err.Error()})
}

func (c *websocketCallbacks) OnMetricsComplete(pipeline.Metrics) {}

func (c *websocketCallbacks) send(event progressEvent) {
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Warn("websocket write failed", "error", err)
	}
}
