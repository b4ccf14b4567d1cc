package pipeline

import (
	"context"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// runClassifyLayout flattens every screenshot's located labels into one
// set and classifies the run once: a single character sheet (or a small
// batch of screenshots covering one build) carries one winning layout
// plus whatever additional classifications coexist with it (§2).
func runClassifyLayout(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	var allLabels []catalogmodel.Label
	for _, s := range state.Screenshots {
		allLabels = append(allLabels, state.Labels[s.Name]...)
	}

	classification, err := o.cfg.LayoutClassifier.ClassifyLayout(ctx, allLabels)
	if err != nil {
		return newStageError(kindClassify, StageClassifyLayout, err)
	}
	state.Classification = classification
	o.cfg.Callbacks.OnProgress(StageClassifyLayout, window.Scale(1))
	return nil
}
