// Package pipeline implements the stage-graph orchestrator: a declared
// set of named stages with explicit prerequisites, dispatched in order
// against a shared RunState, each stage's failure cascading to every
// stage that (transitively) depends on it rather than aborting the run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/collaborators"
	"github.com/phillipod/sister-sto/internal/common"
	"github.com/phillipod/sister-sto/internal/hashindex"
	"github.com/phillipod/sister-sto/internal/iconmatch"
	"github.com/phillipod/sister-sto/internal/imagehash"
	"github.com/phillipod/sister-sto/internal/overlaydetect"
	"github.com/phillipod/sister-sto/internal/prefilter"
	"github.com/phillipod/sister-sto/internal/testdata"
)

// Config bundles every collaborator and domain-package configuration the
// orchestrator needs to dispatch all nine stages (§5 "Collaborators").
type Config struct {
	Workers   int // worker-pool size; 0 defaults to 4
	ChunkSize int // progress/onChunk granularity; 0 defaults to 10

	LabelLocator     collaborators.LabelLocator
	LayoutClassifier collaborators.LayoutClassifier
	GroupLocator     collaborators.IconGroupLocator
	SlotLocator      collaborators.IconSlotLocator
	IconLoader       collaborators.IconLoader

	HashIndex       *hashindex.HashIndex
	Overlays        []catalogmodel.OverlayImage
	PrefilterConfig prefilter.Config
	OverlayDetector *overlaydetect.Detector
	HashConfig      imagehash.Config
	MatchConfig     iconmatch.Config

	Callbacks Callbacks

	// BackfillMatchesWithPrefiltered enables the optional output
	// transformation that substitutes a slot's best prefiltered
	// candidate when the matcher produced nothing for it (§6).
	BackfillMatchesWithPrefiltered bool

	// Recorder captures a per-stage snapshot for offline test
	// instrumentation (§6). Defaults to a no-op recorder.
	Recorder testdata.Recorder
}

// Orchestrator dispatches the nine-stage graph for one or more
// screenshots sharing a single RunState.
type Orchestrator struct {
	cfg  Config
	pool *WorkerPool
}

// New builds an Orchestrator from cfg, defaulting Workers/ChunkSize and
// Callbacks when unset.
func New(cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10
	}
	if cfg.Callbacks == nil {
		cfg.Callbacks = NoOpCallbacks{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = testdata.NoopRecorder{}
	}
	return &Orchestrator{cfg: cfg, pool: NewWorkerPool(cfg.Workers)}
}

type stageFunc func(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error

var stageFuncs = map[StageName]stageFunc{
	StageLocateLabels:         runLocateLabels,
	StageClassifyLayout:       runClassifyLayout,
	StageLocateIconGroups:     runLocateIconGroups,
	StageLocateIconSlots:      runLocateIconSlots,
	StagePrefilterIcons:       runPrefilterIcons,
	StageLoadIcons:            runLoadIcons,
	StageDetectIconOverlays:   runDetectIconOverlays,
	StageDetectIcons:          runDetectIcons,
	StageOutputTransformation: runOutputTransformation,
}

// equalShareWindows splits the overall [0,1] run progress into one
// equal-sized sub-window per declared stage, in dispatch order (§4.1
// "Progress scaling"). A stage that does nothing measurable (e.g.
// classify_layout) simply never calls OnProgress within its window.
func equalShareWindows() map[StageName]ProgressWindow {
	n := float64(len(allStages))
	out := make(map[StageName]ProgressWindow, len(allStages))
	for i, name := range allStages {
		out[name] = NewProgressWindow().Sub(float64(i)/n, float64(i+1)/n)
	}
	return out
}

// Run dispatches every stage in declared order against a fresh RunState
// built from screenshots, checking each stage's prerequisites before
// running it and recording a StageStatus regardless of outcome. A stage
// whose dependencies did not all succeed is marked failed via
// DependencyError without ever being invoked, cascading the original
// failure down the graph (§4.1, §8 Scenario 6). Run never returns early:
// every stage gets a chance to dispatch, and Metrics always covers every
// stage name.
func (o *Orchestrator) Run(ctx context.Context, screenshots []catalogmodel.Screenshot) (*RunState, Metrics, error) {
	state := NewRunState(screenshots)
	metrics := newMetrics()
	windows := equalShareWindows()
	o.cfg.Recorder.Section("input", screenshotNames(screenshots))

	memBefore := common.GetMemoryStats()
	var firstErr error

	for _, name := range allStages {
		o.cfg.Callbacks.OnStageStart(name)

		if ok, missing := state.dependenciesSatisfied(name); !ok {
			state.markDependencyFailure(name, missing)
			status := state.Status(name)
			o.cfg.Callbacks.OnError(name, status.Err)
			o.cfg.Callbacks.OnStageComplete(status)
			if firstErr == nil {
				firstErr = status.Err
			}
			continue
		}

		timer := startStageTimer(name)
		fn := stageFuncs[name]
		var err error
		if fn == nil {
			err = fmt.Errorf("pipeline: no stage function registered for %s", name)
		} else {
			err = fn(ctx, o, state, windows[name])
		}
		duration := timer.stop()

		state.markResult(name, err)
		metrics.record(name, duration, err == nil)
		status := state.Status(name)
		if err != nil {
			o.cfg.Callbacks.OnError(name, err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			o.cfg.Recorder.Section(string(name), stageSnapshot(name, state))
		}
		o.cfg.Callbacks.OnStageComplete(status)
	}

	metrics.Memory = common.BenchmarkResult{
		Name:         "run",
		Duration:     metrics.Total,
		Iterations:   1,
		MemoryBefore: memBefore,
		MemoryAfter:  common.GetMemoryStats(),
	}

	o.cfg.Callbacks.OnPipelineComplete(state.Output)
	o.cfg.Callbacks.OnMetricsComplete(*metrics)
	if err := o.cfg.Recorder.Flush(); err != nil {
		o.cfg.Callbacks.OnError(StageOutputTransformation, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return state, *metrics, &PipelineError{StageName: string(firstFailedStage(state)), Err: firstErr, Snapshot: state.snapshot()}
	}
	return state, *metrics, nil
}

func screenshotNames(screenshots []catalogmodel.Screenshot) []string {
	names := make([]string, len(screenshots))
	for i, s := range screenshots {
		names[i] = s.Name
	}
	return names
}

// stageSnapshot returns the portion of the run-state a given stage just
// produced, for the test-instrumentation recorder (§6).
func stageSnapshot(name StageName, state *RunState) any {
	switch name {
	case StageLocateLabels:
		return state.Labels
	case StageClassifyLayout:
		return state.Classification
	case StageLocateIconGroups:
		return state.IconGroups
	case StageLocateIconSlots:
		return state.Slots
	case StagePrefilterIcons:
		return state.Shortlist
	case StageLoadIcons:
		return len(state.LoadedIcons)
	case StageDetectIconOverlays:
		return state.OverlayDetections
	case StageDetectIcons:
		return state.Matches
	case StageOutputTransformation:
		return state.Output
	default:
		return nil
	}
}

func firstFailedStage(state *RunState) StageName {
	for _, name := range allStages {
		st := state.Status(name)
		if st.Completed && !st.Success {
			return name
		}
	}
	return ""
}
