package pipeline

import (
	"time"

	"github.com/phillipod/sister-sto/internal/common"
)

// StageMetric is one stage's wall-clock timing, reported via
// on_metrics_complete (§4.1/§7).
type StageMetric struct {
	Stage    StageName     `json:"stage"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
}

// Metrics is the full per-run timing table handed to OnMetricsComplete.
// It is always complete: a stage that was skipped for unmet
// dependencies still gets a zero-duration entry, so a caller inspecting
// Metrics after a cascading failure sees every stage accounted for
// (§8 Scenario 6).
type Metrics struct {
	Stages []StageMetric          `json:"stages"`
	Total  time.Duration          `json:"total"`
	Memory common.BenchmarkResult `json:"memory"`
	byName map[StageName]int      `json:"-"`
}

// newMetrics preallocates one zero-valued entry per known stage, in
// declared order, so record below only ever overwrites.
func newMetrics() *Metrics {
	m := &Metrics{
		Stages: make([]StageMetric, len(allStages)),
		byName: make(map[StageName]int, len(allStages)),
	}
	for i, name := range allStages {
		m.Stages[i] = StageMetric{Stage: name}
		m.byName[name] = i
	}
	return m
}

func (m *Metrics) record(name StageName, d time.Duration, success bool) {
	if i, ok := m.byName[name]; ok {
		m.Stages[i] = StageMetric{Stage: name, Duration: d, Success: success}
		m.Total += d
	}
}

// stageTimer wraps common.Timer to keep the orchestrator's stage-timing
// idiom consistent with the rest of the teacher's codebase.
type stageTimer struct {
	timer *common.Timer
}

func startStageTimer(name StageName) stageTimer {
	return stageTimer{timer: common.NewNamedTimer(string(name))}
}

func (t stageTimer) stop() time.Duration {
	t.timer.Stop()
	return t.timer.Duration()
}
