package pipeline

import "context"

// runLocateIconGroups locates icon-group bounding boxes for every
// (screenshot, classification) pair the run carries: a build's main
// classification plus any additional ones (e.g. trait boxes coexisting
// with a ship build) each drive their own locate call against every
// screenshot's labels (§2, §5 "Shared resources").
func runLocateIconGroups(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	classifications := state.Classification.All()
	total := maxInt(len(state.Screenshots)*len(classifications), 1)
	done := 0

	for _, s := range state.Screenshots {
		labels := state.Labels[s.Name]
		for _, cls := range classifications {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			groups, err := o.cfg.GroupLocator.LocateIconGroups(ctx, labels, cls)
			if err != nil {
				return newStageError(kindIconGroup, StageLocateIconGroups, err)
			}
			for _, g := range groups {
				g.ScreenshotName = s.Name
				state.IconGroups = append(state.IconGroups, g)
				state.GroupIconSet[g.Label] = cls.IconSetKey
			}
			done++
			o.cfg.Callbacks.OnProgress(StageLocateIconGroups, window.Scale(float64(done)/float64(total)))
		}
	}
	return nil
}
