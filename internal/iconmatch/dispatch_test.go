package iconmatch

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/testutil"
)

// TestDispatchSlotCommonBranchRequireThresholdPolicy exercises both values
// of RequireThresholdOnCommonBranch against a candidate whose best blended
// overlay score falls short of ScoreThreshold: the strict policy rejects
// the slot outright, while the permissive policy still reports its
// best-of-overlays match.
func TestDispatchSlotCommonBranchRequireThresholdPolicy(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	icon := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	overlays := []catalogmodel.OverlayImage{
		{Name: "uncommon", Image: testutil.CreateTestImage(40, 40, color.RGBA{R: 0, G: 0, B: 0, A: 255})},
	}
	candidate := Candidate{Name: "console.png", Icon: icon, Mask: catalogmodel.MaskNoMask}
	detected := catalogmodel.OverlayDetection{OverlayName: "common"}

	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 1.0, 1.0, 1

	cfg.RequireThresholdOnCommonBranch = true
	_, ok := DispatchSlot("Consoles", 0, roi, candidate, detected, overlays, false, Hint{}, cfg, false)
	assert.False(t, ok, "strict policy should reject a sub-threshold best-of-overlays match")

	cfg.RequireThresholdOnCommonBranch = false
	result, ok := DispatchSlot("Consoles", 0, roi, candidate, detected, overlays, false, Hint{}, cfg, false)
	require.True(t, ok, "permissive policy should still report its best-of-overlays match")
	assert.Less(t, result.Score, cfg.ScoreThreshold)
	assert.Equal(t, "uncommon", result.Overlay)
}

// TestDispatchSlotDetectedOverlayWideScaleWidensSweep confirms the
// fallback pass's wideScale flag actually widens the detected-overlay
// branch's scale search instead of staying pinned to the detector's
// single reported scale, and tags the method accordingly.
func TestDispatchSlotDetectedOverlayWideScaleWidensSweep(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	icon := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	overlay := catalogmodel.OverlayImage{Name: "rare", Image: testutil.CreateTestImage(40, 40, color.RGBA{A: 0})}
	candidate := Candidate{Name: "console.png", Icon: icon, Mask: catalogmodel.MaskNoMask}
	detected := catalogmodel.OverlayDetection{OverlayName: "rare", Scale: 0.9}

	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 0.5, 1.0, 5

	pinned, ok := DispatchSlot("Consoles", 0, roi, candidate, detected, []catalogmodel.OverlayImage{overlay}, false, Hint{}, cfg, false)
	require.True(t, ok)
	assert.Equal(t, detected.Scale, pinned.OverlayScale)
	assert.Contains(t, pinned.Method, "ssim-detected-overlay-scale-")

	wide, ok := DispatchSlot("Consoles", 0, roi, candidate, detected, []catalogmodel.OverlayImage{overlay}, false, Hint{}, cfg, true)
	require.True(t, ok)
	assert.Contains(t, wide.Method, "ssim-detected-overlay-all-scales-fallback-")
}
