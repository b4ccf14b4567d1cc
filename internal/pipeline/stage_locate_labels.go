package pipeline

import "context"

// runLocateLabels locates OCR label boxes on every screenshot in the run.
// Per the collaborator contract this runs sequentially on the main thread
// rather than through the worker pool: label location is expected to be a
// single OCR engine call per screenshot, not independently parallelizable
// work this package owns.
func runLocateLabels(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	total := maxInt(len(state.Screenshots), 1)
	for i, s := range state.Screenshots {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		labels, err := o.cfg.LabelLocator.LocateLabels(ctx, s)
		if err != nil {
			return newStageError(kindLocate, StageLocateLabels, err)
		}
		state.Labels[s.Name] = labels
		o.cfg.Callbacks.OnProgress(StageLocateLabels, window.Scale(float64(i+1)/float64(total)))
	}
	return nil
}
