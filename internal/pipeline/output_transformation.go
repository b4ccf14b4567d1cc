package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// TransformBackfillMatchesWithPrefiltered names the optional output
// transform that substitutes a slot's best prefiltered candidate when the
// matcher produced nothing for it (§6 "Output transformations").
const TransformBackfillMatchesWithPrefiltered = "backfill_matches_with_prefiltered"

// OutputResult is output_transformation's final, caller-facing result: the
// sorted match table plus the intermediate shortlist and overlay
// detections a caller may want for diagnostics, and a record of which
// optional transforms actually fired this run (§6).
type OutputResult struct {
	BuildType               catalogmodel.BuildType
	Matches                 map[string]map[int][]catalogmodel.MatchResult
	PrefilteredIcons        map[string]map[int][]catalogmodel.MatchCandidate
	DetectedOverlays        map[string]map[int]catalogmodel.OverlayDetection
	TransformationsApplied  []string
}

// runOutputTransformation sorts every slot's match list into its
// canonical best-first order and, if configured, backfills any slot the
// matcher left empty with its best prefiltered candidate reported as a
// synthesized hash-based match (§6).
func runOutputTransformation(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	var applied []string

	if o.cfg.BackfillMatchesWithPrefiltered {
		backfillEmptySlots(state)
		applied = append(applied, TransformBackfillMatchesWithPrefiltered)
	}

	for _, bySlot := range state.Matches {
		for slotIndex, results := range bySlot {
			bySlot[slotIndex] = sortMatches(results)
		}
	}

	state.Output = OutputResult{
		BuildType:              state.Classification.Main.BuildType,
		Matches:                state.Matches,
		PrefilteredIcons:       state.Shortlist,
		DetectedOverlays:       state.OverlayDetections,
		TransformationsApplied: applied,
	}
	o.cfg.Callbacks.OnProgress(StageOutputTransformation, window.Scale(1))
	return nil
}

// backfillEmptySlots fills in a synthesized match for every slot whose
// matcher output is empty but whose prefilter shortlist is not, using the
// shortlist's closest (lowest hash-distance) candidate.
func backfillEmptySlots(state *RunState) {
	for group, slots := range state.Shortlist {
		for slotIndex, candidates := range slots {
			if len(candidates) == 0 {
				continue
			}
			if len(state.Matches[group][slotIndex]) > 0 {
				continue
			}
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.Distance < best.Distance {
					best = c
				}
			}
			if state.Matches[group] == nil {
				state.Matches[group] = make(map[int][]catalogmodel.MatchResult)
			}
			state.Matches[group][slotIndex] = []catalogmodel.MatchResult{{
				Group:   group,
				Slot:    slotIndex,
				Name:    best.FilePath,
				Score:   float64(best.Distance),
				Overlay: state.OverlayDetections[group][slotIndex].OverlayName,
				Method:  "hash-" + best.HashKind,
			}}
		}
	}
}

// sortMatches orders one slot's match results best-first: hash-derived
// matches (synthesized by the backfill transform) sort by ascending
// distance, SSIM-derived matches sort by descending score. The two
// families never mix within a slot's natural output since the matcher
// only ever produces one or the other per slot, but sorting handles both
// methods uniformly regardless.
func sortMatches(results []catalogmodel.MatchResult) []catalogmodel.MatchResult {
	sorted := append([]catalogmodel.MatchResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if strings.HasPrefix(a.Method, "hash-") || strings.HasPrefix(b.Method, "hash-") {
			return a.Score < b.Score
		}
		return a.Score > b.Score
	})
	return sorted
}
