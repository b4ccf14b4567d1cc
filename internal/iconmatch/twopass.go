package iconmatch

import (
	"image"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// SlotInput bundles everything one slot's two-pass match needs: its ROI,
// shortlisted candidates, detected overlay, and whether its group is a
// trait group (which skips overlay blending on the common branch).
type SlotInput struct {
	Group        string
	SlotIndex    int
	ROI          image.Image
	Candidates   []Candidate
	Detected     catalogmodel.OverlayDetection
	IsTraitGroup bool
}

// RunTwoPass matches every slot's shortlist against its ROI. Pass 1 uses
// the detector's (dx, dy) hint; slots that produce zero matches are
// retried in pass 2 with the hint disabled and the full scale/offset
// sweep. Results accumulate into a fresh group->slot->matches map rather
// than mutating any input in place.
func RunTwoPass(slots []SlotInput, overlays []catalogmodel.OverlayImage, cfg Config) map[string]map[int][]catalogmodel.MatchResult {
	out := make(map[string]map[int][]catalogmodel.MatchResult)

	var needsFallback []SlotInput
	for _, slot := range slots {
		matches := matchSlot(slot, overlays, Hint{Enabled: slot.Detected.OffsetX != 0 || slot.Detected.OffsetY != 0, Dx: slot.Detected.OffsetX, Dy: slot.Detected.OffsetY}, cfg, false)
		if len(matches) == 0 {
			needsFallback = append(needsFallback, slot)
			continue
		}
		storeMatches(out, slot.Group, slot.SlotIndex, matches)
	}

	for _, slot := range needsFallback {
		matches := matchSlot(slot, overlays, Hint{}, cfg, true)
		if len(matches) > 0 {
			storeMatches(out, slot.Group, slot.SlotIndex, matches)
		}
	}

	return out
}

func matchSlot(slot SlotInput, overlays []catalogmodel.OverlayImage, hint Hint, cfg Config, wideScale bool) []catalogmodel.MatchResult {
	var results []catalogmodel.MatchResult
	for _, candidate := range slot.Candidates {
		result, ok := DispatchSlot(slot.Group, slot.SlotIndex, slot.ROI, candidate, slot.Detected, overlays, slot.IsTraitGroup, hint, cfg, wideScale)
		if ok {
			results = append(results, result)
		}
	}
	return results
}

func storeMatches(out map[string]map[int][]catalogmodel.MatchResult, group string, slotIndex int, matches []catalogmodel.MatchResult) {
	if out[group] == nil {
		out[group] = make(map[int][]catalogmodel.MatchResult)
	}
	out[group][slotIndex] = append(out[group][slotIndex], matches...)
}
