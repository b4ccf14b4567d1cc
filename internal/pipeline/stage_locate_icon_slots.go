package pipeline

import (
	"context"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/imagehash"
)

// runLocateIconSlots locates each icon group's individual slot rectangles
// and computes each slot's own pHash/dHash up front, so the prefilter
// stage never has to touch image pixels again (§2, §4.2).
func runLocateIconSlots(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	screenshotByName := make(map[string]catalogmodel.Screenshot, len(state.Screenshots))
	for _, s := range state.Screenshots {
		screenshotByName[s.Name] = s
	}

	total := maxInt(len(state.IconGroups), 1)
	for i, group := range state.IconGroups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		screenshot := screenshotByName[group.ScreenshotName]
		slots, err := o.cfg.SlotLocator.LocateIconSlots(ctx, screenshot, group)
		if err != nil {
			return newStageError(kindIconSlot, StageLocateIconSlots, err)
		}

		mask := catalogmodel.MaskTypeForIconSet(state.GroupIconSet[group.Label])
		for idx := range slots {
			if slots[idx].ROI == nil {
				continue
			}
			hashes := imagehash.Compute(slots[idx].ROI, mask, o.cfg.HashConfig)
			slots[idx].PHash = hashes.PHash
			slots[idx].DHash = hashes.DHash
		}
		state.Slots[group.Label] = append(state.Slots[group.Label], slots...)

		o.cfg.Callbacks.OnProgress(StageLocateIconSlots, window.Scale(float64(i+1)/float64(total)))
	}
	return nil
}
