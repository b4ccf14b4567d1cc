package pipeline

import (
	"image"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// StageName identifies one node in the stage graph (§2's table).
type StageName string

const (
	StageLocateLabels         StageName = "locate_labels"
	StageClassifyLayout       StageName = "classify_layout"
	StageLocateIconGroups     StageName = "locate_icon_groups"
	StageLocateIconSlots      StageName = "locate_icon_slots"
	StagePrefilterIcons       StageName = "prefilter_icons"
	StageLoadIcons            StageName = "load_icons"
	StageDetectIconOverlays   StageName = "detect_icon_overlays"
	StageDetectIcons          StageName = "detect_icons"
	StageOutputTransformation StageName = "output_transformation"
)

// allStages lists every stage in declared execution order, each with its
// declared prerequisite stage names. The orchestrator refuses to run a
// stage whose prerequisites did not complete successfully (§4.1).
var allStages = []StageName{
	StageLocateLabels,
	StageClassifyLayout,
	StageLocateIconGroups,
	StageLocateIconSlots,
	StagePrefilterIcons,
	StageLoadIcons,
	StageDetectIconOverlays,
	StageDetectIcons,
	StageOutputTransformation,
}

var stageDependencies = map[StageName][]StageName{
	StageLocateLabels:         nil,
	StageClassifyLayout:       {StageLocateLabels},
	StageLocateIconGroups:     {StageLocateLabels, StageClassifyLayout},
	StageLocateIconSlots:      {StageLocateIconGroups},
	StagePrefilterIcons:       {StageLocateIconSlots, StageClassifyLayout},
	StageLoadIcons:            {StagePrefilterIcons},
	StageDetectIconOverlays:   {StageLocateIconSlots},
	StageDetectIcons:          {StageLocateIconSlots, StagePrefilterIcons, StageDetectIconOverlays, StageLoadIcons},
	StageOutputTransformation: {StageDetectIcons, StagePrefilterIcons, StageDetectIconOverlays},
}

// StageStatus records whether a stage ran, and if so whether it
// succeeded, for the dependency-checking contract in §4.1/§8.
type StageStatus struct {
	Name      StageName
	Completed bool
	Success   bool
	Err       error
}

// RunState is the shared, mutable-by-one-owner-stage-at-a-time context a
// single pipeline run threads through every stage (§5 "Shared
// resources"/"Run-state"). Each field is written exactly once, by the
// stage that owns it; later stages only read earlier stages' writes, so
// no locking is required.
type RunState struct {
	Screenshots []catalogmodel.Screenshot

	// Labels is keyed by screenshot name (locate_labels' output).
	Labels map[string][]catalogmodel.Label

	// Classification is the winning build type plus any additional
	// required classifications (classify_layout's output).
	Classification catalogmodel.ClassificationSet

	// IconGroups is the flat list of groups located across every
	// screenshot in this run (locate_icon_groups' output).
	IconGroups []catalogmodel.IconGroup

	// GroupIconSet records which icon set each group's label was
	// located under, since a run's classification can carry several
	// classifications (a build plus coexisting trait boxes) and each
	// drives its own LocateIconGroups call (locate_icon_groups' output).
	GroupIconSet map[string]catalogmodel.IconSetKey

	// Slots is keyed by icon-group label (locate_icon_slots' output).
	Slots map[string][]catalogmodel.Slot

	// Shortlist is keyed by group label then slot index
	// (prefilter_icons' output).
	Shortlist map[string]map[int][]catalogmodel.MatchCandidate

	// LoadedIcons is keyed by catalog file path (load_icons' output).
	LoadedIcons map[string]image.Image

	// OverlayDetections is keyed by group label then slot index
	// (detect_icon_overlays' output).
	OverlayDetections map[string]map[int]catalogmodel.OverlayDetection

	// Matches is keyed by group label then slot index
	// (detect_icons' output).
	Matches map[string]map[int][]catalogmodel.MatchResult

	// Output is output_transformation's final result.
	Output OutputResult

	statuses map[StageName]*StageStatus
}

// NewRunState builds an empty run-state for the given screenshots, with
// every stage marked not-yet-run.
func NewRunState(screenshots []catalogmodel.Screenshot) *RunState {
	statuses := make(map[StageName]*StageStatus, len(allStages))
	for _, name := range allStages {
		statuses[name] = &StageStatus{Name: name}
	}
	return &RunState{
		Screenshots:       screenshots,
		Labels:            make(map[string][]catalogmodel.Label),
		IconGroups:        nil,
		GroupIconSet:      make(map[string]catalogmodel.IconSetKey),
		Slots:             make(map[string][]catalogmodel.Slot),
		Shortlist:         make(map[string]map[int][]catalogmodel.MatchCandidate),
		LoadedIcons:       make(map[string]image.Image),
		OverlayDetections: make(map[string]map[int]catalogmodel.OverlayDetection),
		Matches:           make(map[string]map[int][]catalogmodel.MatchResult),
		statuses:          statuses,
	}
}

// Status returns the current status record for name, or a zero-value
// not-yet-run status if name is not a known stage.
func (s *RunState) Status(name StageName) StageStatus {
	if st, ok := s.statuses[name]; ok {
		return *st
	}
	return StageStatus{Name: name}
}

// dependenciesSatisfied reports whether every prerequisite of name
// completed successfully.
func (s *RunState) dependenciesSatisfied(name StageName) (bool, []StageName) {
	var missing []StageName
	for _, dep := range stageDependencies[name] {
		st := s.statuses[dep]
		if st == nil || !st.Completed || !st.Success {
			missing = append(missing, dep)
		}
	}
	return len(missing) == 0, missing
}

func (s *RunState) markResult(name StageName, err error) {
	s.statuses[name] = &StageStatus{Name: name, Completed: true, Success: err == nil, Err: err}
}

func (s *RunState) markDependencyFailure(name StageName, missing []StageName) {
	s.statuses[name] = &StageStatus{
		Name:      name,
		Completed: true,
		Success:   false,
		Err:       &DependencyError{Stage: name, Missing: missing},
	}
}

// snapshot takes a shallow, read-only summary of the run-state for
// PipelineError diagnostics.
func (s *RunState) snapshot() StateSnapshot {
	var completed []string
	for _, name := range allStages {
		if st := s.statuses[name]; st != nil && st.Completed && st.Success {
			completed = append(completed, string(name))
		}
	}
	return StateSnapshot{ScreenshotCount: len(s.Screenshots), CompletedStages: completed}
}

// IsTraitGroup reports whether a group label belongs to one of the
// trait/reputation icon sets, which skip overlay blending on the
// matcher's common-overlay branch (§4.5 "Per-candidate dispatch").
func IsTraitGroup(key catalogmodel.IconSetKey) bool {
	return key == catalogmodel.IconSetTraits
}
