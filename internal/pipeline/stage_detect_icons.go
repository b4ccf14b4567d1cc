package pipeline

import (
	"context"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/iconmatch"
)

// slotMatchJob bundles one slot's two-pass matching input, built once per
// slot so both worker-pool passes below reuse the same normalized ROI and
// candidate list.
type slotMatchJob struct {
	ref   slotRef
	input iconmatch.SlotInput
}

func buildSlotMatchJobs(state *RunState) []slotMatchJob {
	refs := slotRefs(state)
	jobs := make([]slotMatchJob, 0, len(refs))

	for _, r := range refs {
		if r.slot.ROI == nil {
			continue
		}
		var candidates []iconmatch.Candidate
		for _, c := range state.Shortlist[r.group][r.slotIndex] {
			icon := state.LoadedIcons[c.FilePath]
			if icon == nil {
				continue
			}
			mask := catalogmodel.MaskDefault
			if len(c.MetadataList) > 0 {
				mask = c.MetadataList[0].MaskType
			}
			candidates = append(candidates, iconmatch.Candidate{Name: c.FilePath, Icon: icon, Mask: mask})
		}
		if len(candidates) == 0 {
			continue
		}

		detected := state.OverlayDetections[r.group][r.slotIndex]
		norm := iconmatch.NormalizeROI(r.slot.ROI)

		jobs = append(jobs, slotMatchJob{
			ref: r,
			input: iconmatch.SlotInput{
				Group:        r.group,
				SlotIndex:    r.slotIndex,
				ROI:          norm.Image,
				Candidates:   candidates,
				Detected:     detected,
				IsTraitGroup: IsTraitGroup(state.GroupIconSet[r.group]),
			},
		})
	}
	return jobs
}

// matchSlotJob runs every one of a slot's candidates against its ROI
// under the given hint, returning every match DispatchSlot accepts (on
// the common, non-trait branch that can include a sub-threshold best
// overlay when RequireThresholdOnCommonBranch is false).
// wideScale widens the detected-overlay branch's scale sweep to cfg's
// full schedule instead of pinning to the detector's single reported
// scale; pass 2 sets this for slots pass 1 left unmatched (§4.5).
func matchSlotJob(job slotMatchJob, overlays []catalogmodel.OverlayImage, hint iconmatch.Hint, cfg iconmatch.Config, wideScale bool) []catalogmodel.MatchResult {
	var out []catalogmodel.MatchResult
	for _, candidate := range job.input.Candidates {
		result, ok := iconmatch.DispatchSlot(job.input.Group, job.input.SlotIndex, job.input.ROI, candidate, job.input.Detected, overlays, job.input.IsTraitGroup, hint, cfg, wideScale)
		if ok {
			out = append(out, result)
		}
	}
	return out
}

// runDetectIcons confirms each slot's identity via multi-scale SSIM
// against its shortlisted, overlay-blended candidates. Pass 1 dispatches
// every slot's candidates in parallel using the overlay detector's
// (dx, dy) hint; slots left with zero matches are retried in pass 2 with
// the hint disabled, sweeping the full offset range (§4.5 "Two-pass
// dispatch"). Both passes run on the worker pool, one task per slot.
func runDetectIcons(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	jobs := buildSlotMatchJobs(state)
	firstWindow := window.Sub(0, 0.7)
	secondWindow := window.Sub(0.7, 1)

	pass1, errs := Map(ctx, o.pool, jobs, o.cfg.ChunkSize,
		func(ctx context.Context, job slotMatchJob) ([]catalogmodel.MatchResult, error) {
			d := job.input.Detected
			hint := iconmatch.Hint{Enabled: d.OffsetX != 0 || d.OffsetY != 0, Dx: d.OffsetX, Dy: d.OffsetY}
			return matchSlotJob(job, o.cfg.Overlays, hint, o.cfg.MatchConfig, false), nil
		},
		func(done, total int) {
			o.cfg.Callbacks.OnProgress(StageDetectIcons, firstWindow.Scale(float64(done)/float64(maxInt(total, 1))))
		},
	)
	for _, err := range errs {
		if err != nil {
			return newStageError(kindMatch, StageDetectIcons, err)
		}
	}

	matches := make(map[string]map[int][]catalogmodel.MatchResult)
	var fallback []slotMatchJob
	for i, job := range jobs {
		if len(pass1[i]) == 0 {
			fallback = append(fallback, job)
			continue
		}
		storeSlotMatches(matches, job.ref, pass1[i])
	}

	if len(fallback) > 0 {
		pass2, errs2 := Map(ctx, o.pool, fallback, o.cfg.ChunkSize,
			func(ctx context.Context, job slotMatchJob) ([]catalogmodel.MatchResult, error) {
				return matchSlotJob(job, o.cfg.Overlays, iconmatch.Hint{}, o.cfg.MatchConfig, true), nil
			},
			func(done, total int) {
				o.cfg.Callbacks.OnProgress(StageDetectIcons, secondWindow.Scale(float64(done)/float64(maxInt(total, 1))))
			},
		)
		for _, err := range errs2 {
			if err != nil {
				return newStageError(kindMatch, StageDetectIcons, err)
			}
		}
		for i, job := range fallback {
			if len(pass2[i]) > 0 {
				storeSlotMatches(matches, job.ref, pass2[i])
			}
		}
	} else {
		o.cfg.Callbacks.OnProgress(StageDetectIcons, secondWindow.Scale(1))
	}

	state.Matches = matches
	return nil
}

func storeSlotMatches(matches map[string]map[int][]catalogmodel.MatchResult, ref slotRef, results []catalogmodel.MatchResult) {
	if matches[ref.group] == nil {
		matches[ref.group] = make(map[int][]catalogmodel.MatchResult)
	}
	matches[ref.group][ref.slotIndex] = append(matches[ref.group][ref.slotIndex], results...)
}
