package pipeline

import "fmt"

// PipelineError wraps any stage error with the stage name and a snapshot
// of the run-state at the moment of failure (§7 "Pipeline error").
type PipelineError struct {
	StageName string
	Err       error
	Snapshot  StateSnapshot
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed: %v", e.StageName, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StateSnapshot is a read-only, shallow summary of the run-state taken
// when a stage fails, attached to the PipelineError for diagnostics.
type StateSnapshot struct {
	ScreenshotCount int
	CompletedStages []string
}

// stageErrorKind names one of the per-stage error subclasses §7 lists.
type stageErrorKind string

const (
	kindLocate     stageErrorKind = "locate"
	kindClassify   stageErrorKind = "classify"
	kindIconGroup  stageErrorKind = "icon-group"
	kindIconSlot   stageErrorKind = "icon-slot"
	kindPrefilter  stageErrorKind = "prefilter"
	kindMatch      stageErrorKind = "match"
	kindCargo      stageErrorKind = "cargo"
	kindDependency stageErrorKind = "dependency"
)

// StageError is the typed per-stage failure §7 names: one subclass per
// stage family, preserving the original cause via Unwrap.
type StageError struct {
	Kind  stageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func newStageError(kind stageErrorKind, stage StageName, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// DependencyError is raised when a stage's declared prerequisite did not
// complete successfully; the stage itself never runs.
type DependencyError struct {
	Stage   StageName
	Missing []StageName
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s: dependencies not met: %v", e.Stage, e.Missing)
}
