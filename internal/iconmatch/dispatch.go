package iconmatch

import (
	"image"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// Candidate is one shortlisted catalog entry to try matching against a
// slot, carrying its decoded icon image and the metadata needed to
// build a MatchResult.
type Candidate struct {
	Name string // catalog file path, reported as the match's Name
	Icon image.Image
	Mask catalogmodel.MaskType
}

// DispatchSlot runs the per-candidate dispatch rule for one slot: when
// the detected overlay is "common", trait groups match the raw icon
// across the full scale range while other groups try every non-common
// overlay and keep the best blend; otherwise the candidate is blended
// with the detected overlay once and matched either at the detected
// scale only (hinted by the detector's offset, the first-pass case) or,
// when wideScale is set, across cfg's full scale schedule with the hint
// disabled — the fallback pass for slots pass 1 left unmatched (§4.5).
func DispatchSlot(group string, slotIndex int, roi image.Image, candidate Candidate, detected catalogmodel.OverlayDetection, overlays []catalogmodel.OverlayImage, isTraitGroup bool, hint Hint, cfg Config, wideScale bool) (catalogmodel.MatchResult, bool) {
	if detected.OverlayName == "common" {
		if isTraitGroup {
			return matchRaw(group, slotIndex, roi, candidate, cfg)
		}
		return matchBestOverlay(group, slotIndex, roi, candidate, overlays, cfg)
	}
	return matchDetectedOverlay(group, slotIndex, roi, candidate, detected, overlays, hint, cfg, wideScale)
}

func matchRaw(group string, slotIndex int, roi image.Image, candidate Candidate, cfg Config) (catalogmodel.MatchResult, bool) {
	result, ok := MultiScaleMatch(roi, candidate.Icon, candidate.Mask, Hint{}, cfg, true)
	if !ok {
		return catalogmodel.MatchResult{}, false
	}
	return catalogmodel.MatchResult{
		Group:   group,
		Slot:    slotIndex,
		Name:    candidate.Name,
		Score:   result.Score,
		Scale:   result.Scale,
		Overlay: "common",
		Method:  "ssim-common-raw-" + result.Stepping,
	}, true
}

func matchBestOverlay(group string, slotIndex int, roi image.Image, candidate Candidate, overlays []catalogmodel.OverlayImage, cfg Config) (catalogmodel.MatchResult, bool) {
	var best catalogmodel.MatchResult
	found := false

	for _, overlay := range overlays {
		if overlay.Name == "common" {
			continue
		}
		blended := BlendOverlay(candidate.Icon, overlay.Image)
		result, ok := MultiScaleMatch(roi, blended, candidate.Mask, Hint{}, cfg, cfg.RequireThresholdOnCommonBranch)
		if !ok {
			continue
		}
		if !found || result.Score > best.Score {
			best = catalogmodel.MatchResult{
				Group:   group,
				Slot:    slotIndex,
				Name:    candidate.Name,
				Score:   result.Score,
				Scale:   result.Scale,
				Overlay: overlay.Name,
				Method:  "ssim-common-overlay-sweep-" + result.Stepping,
			}
			found = true
		}
	}
	return best, found
}

func matchDetectedOverlay(group string, slotIndex int, roi image.Image, candidate Candidate, detected catalogmodel.OverlayDetection, overlays []catalogmodel.OverlayImage, hint Hint, cfg Config, wideScale bool) (catalogmodel.MatchResult, bool) {
	overlayImage, ok := findOverlay(overlays, detected.OverlayName)
	if !ok {
		return catalogmodel.MatchResult{}, false
	}
	blended := BlendOverlay(candidate.Icon, overlayImage.Image)

	methodSuffix := "ssim-detected-overlay-scale-"
	matchCfg := cfg
	if !wideScale {
		matchCfg.ScaleMin = detected.Scale
		matchCfg.ScaleMax = detected.Scale
		matchCfg.ScaleSteps = 1
	} else {
		methodSuffix = "ssim-detected-overlay-all-scales-fallback-"
	}

	result, ok := MultiScaleMatch(roi, blended, candidate.Mask, hint, matchCfg, true)
	if !ok {
		return catalogmodel.MatchResult{}, false
	}
	return catalogmodel.MatchResult{
		Group:        group,
		Slot:         slotIndex,
		Name:         candidate.Name,
		Score:        result.Score,
		Scale:        result.Scale,
		OverlayScale: detected.Scale,
		Overlay:      detected.OverlayName,
		Method:       methodSuffix + result.Stepping,
	}, true
}

func findOverlay(overlays []catalogmodel.OverlayImage, name string) (catalogmodel.OverlayImage, bool) {
	for _, o := range overlays {
		if o.Name == name {
			return o, true
		}
	}
	return catalogmodel.OverlayImage{}, false
}
