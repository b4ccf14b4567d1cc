package pipeline

import (
	"context"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/prefilter"
)

// slotRef locates one slot within the run-state's group->slots map, the
// shared unit of work for every pool-parallel stage downstream of
// locate_icon_slots.
type slotRef struct {
	group     string
	slotIndex int
	slot      catalogmodel.Slot
}

func slotRefs(state *RunState) []slotRef {
	var out []slotRef
	for group, slots := range state.Slots {
		for i, slot := range slots {
			out = append(out, slotRef{group: group, slotIndex: i, slot: slot})
		}
	}
	return out
}

// runPrefilterIcons shortlists candidate catalog entries for every slot
// by hash distance alone, one worker-pool task per slot (§5).
func runPrefilterIcons(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	refs := slotRefs(state)

	results, errs := Map(ctx, o.pool, refs, o.cfg.ChunkSize,
		func(ctx context.Context, r slotRef) ([]catalogmodel.MatchCandidate, error) {
			allowed := catalogmodel.AllowedCategoriesForIconSet(state.GroupIconSet[r.group])
			return prefilter.Run(ctx, o.cfg.HashIndex, r.slot, allowed, o.cfg.PrefilterConfig)
		},
		func(done, total int) {
			o.cfg.Callbacks.OnProgress(StagePrefilterIcons, window.Scale(float64(done)/float64(maxInt(total, 1))))
		},
	)

	for i, err := range errs {
		if err != nil {
			return newStageError(kindPrefilter, StagePrefilterIcons, err)
		}
		r := refs[i]
		if state.Shortlist[r.group] == nil {
			state.Shortlist[r.group] = make(map[int][]catalogmodel.MatchCandidate)
		}
		state.Shortlist[r.group][r.slotIndex] = results[i]
	}
	return nil
}
