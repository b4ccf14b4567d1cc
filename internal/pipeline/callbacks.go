package pipeline

// Callbacks is the orchestrator's lifecycle hook surface (§4.1): one
// method per named event a caller can observe during a run. All methods
// are invoked synchronously from the orchestrator's own goroutine in
// between stage dispatches, never concurrently with each other.
type Callbacks interface {
	// OnStageStart fires immediately before a stage's dependencies are
	// checked, even if the stage ultimately fails its dependency check.
	OnStageStart(stage StageName)

	// OnStageComplete fires after a stage finishes running (or is
	// skipped for failed dependencies), with its final status.
	OnStageComplete(status StageStatus)

	// OnProgress fires from within a stage's own worker-pool loop,
	// fraction already rescaled into the overall run's [0,1] window by
	// a ProgressWindow (§4.1 "Progress scaling").
	OnProgress(stage StageName, fraction float64)

	// OnPipelineComplete fires once, after every stage has been
	// dispatched (successfully or not) and output_transformation has
	// produced its result.
	OnPipelineComplete(output OutputResult)

	// OnError fires whenever a stage or the orchestrator itself
	// produces an error, in addition to (not instead of)
	// OnStageComplete recording the same failure.
	OnError(stage StageName, err error)

	// OnMetricsComplete fires once, after OnPipelineComplete, with the
	// full per-stage timing table.
	OnMetricsComplete(metrics Metrics)
}

// NoOpCallbacks implements Callbacks with no behavior, the default for
// callers that don't need lifecycle hooks.
type NoOpCallbacks struct{}

func (NoOpCallbacks) OnStageStart(StageName)            {}
func (NoOpCallbacks) OnStageComplete(StageStatus)       {}
func (NoOpCallbacks) OnProgress(StageName, float64)     {}
func (NoOpCallbacks) OnPipelineComplete(OutputResult)   {}
func (NoOpCallbacks) OnError(StageName, error)          {}
func (NoOpCallbacks) OnMetricsComplete(Metrics)         {}

// MultiCallbacks fans every lifecycle event out to several Callbacks,
// in the order they were given.
type MultiCallbacks struct {
	targets []Callbacks
}

func NewMultiCallbacks(targets ...Callbacks) MultiCallbacks {
	return MultiCallbacks{targets: targets}
}

func (m MultiCallbacks) OnStageStart(stage StageName) {
	for _, t := range m.targets {
		t.OnStageStart(stage)
	}
}

func (m MultiCallbacks) OnStageComplete(status StageStatus) {
	for _, t := range m.targets {
		t.OnStageComplete(status)
	}
}

func (m MultiCallbacks) OnProgress(stage StageName, fraction float64) {
	for _, t := range m.targets {
		t.OnProgress(stage, fraction)
	}
}

func (m MultiCallbacks) OnPipelineComplete(output OutputResult) {
	for _, t := range m.targets {
		t.OnPipelineComplete(output)
	}
}

func (m MultiCallbacks) OnError(stage StageName, err error) {
	for _, t := range m.targets {
		t.OnError(stage, err)
	}
}

func (m MultiCallbacks) OnMetricsComplete(metrics Metrics) {
	for _, t := range m.targets {
		t.OnMetricsComplete(metrics)
	}
}

// ProgressWindow composes nested sub-ranges of the overall [0,1] run
// progress. Each stage owns a window sized to its share of total work;
// a stage that sub-divides its own work (e.g. per-screenshot, then
// per-chunk within a screenshot) further narrows the window it was
// given, so nested fractions multiply rather than overwrite each other
// (§4.1 "Progress scaling").
type ProgressWindow struct {
	start, end float64
}

// NewProgressWindow returns the full [0,1] window.
func NewProgressWindow() ProgressWindow {
	return ProgressWindow{start: 0, end: 1}
}

// Sub carves out [start,end) of w's own span, both fractions in [0,1].
func (w ProgressWindow) Sub(start, end float64) ProgressWindow {
	span := w.end - w.start
	return ProgressWindow{start: w.start + span*start, end: w.start + span*end}
}

// Scale maps a local fraction in [0,1] into the window's absolute
// position within the overall run.
func (w ProgressWindow) Scale(fraction float64) float64 {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	return w.start + (w.end-w.start)*fraction
}
