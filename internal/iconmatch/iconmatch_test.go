package iconmatch

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/testutil"
)

func TestMultiScaleMatchIdenticalTemplate(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	template := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 1.0, 1.0, 1

	result, ok := MultiScaleMatch(roi, template, catalogmodel.MaskNoMask, Hint{}, cfg, true)
	require.True(t, ok)
	assert.Greater(t, result.Score, 0.9)
	assert.Equal(t, "stepping", result.Stepping)
}

func TestMultiScaleMatchHintedOffsetSkipsSweep(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	template := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 1.0, 1.0, 1

	result, ok := MultiScaleMatch(roi, template, catalogmodel.MaskNoMask, Hint{Enabled: true, Dx: 0, Dy: 0}, cfg, true)
	require.True(t, ok)
	assert.Equal(t, "no-stepping", result.Stepping)
}

func TestMultiScaleMatchRejectsBelowThreshold(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	template := testutil.CreateTestImage(40, 40, color.RGBA{R: 250, G: 250, B: 250, A: 255})

	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 1.0, 1.0, 1

	_, ok := MultiScaleMatch(roi, template, catalogmodel.MaskNoMask, Hint{}, cfg, true)
	assert.False(t, ok)
}

func TestDispatchSlotCommonTraitUsesRawIcon(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	icon := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 1.0, 1.0, 1

	candidate := Candidate{Name: "trait.png", Icon: icon, Mask: catalogmodel.MaskNoMask}
	detected := catalogmodel.OverlayDetection{OverlayName: "common"}

	result, ok := DispatchSlot("Personal Traits", 0, roi, candidate, detected, nil, true, Hint{}, cfg, false)
	require.True(t, ok)
	assert.Equal(t, "common", result.Overlay)
	assert.Contains(t, result.Method, "ssim-common-raw")
}

func TestRunTwoPassFallsBackWhenPrimaryMisses(t *testing.T) {
	roi := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	icon := testutil.CreateTestImage(40, 40, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	cfg := DefaultConfig()
	cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps = 1.0, 1.0, 1

	overlays := []catalogmodel.OverlayImage{
		{Name: "rare", Image: testutil.CreateTestImage(40, 40, color.RGBA{A: 0})},
	}

	// The (5, 5) hint pushes the full-size template past the ROI edge, so
	// the hinted pass 1 scores nothing and only the unhinted pass 2 matches.
	slots := []SlotInput{{
		Group:        "Personal Traits",
		SlotIndex:    0,
		ROI:          roi,
		Candidates:   []Candidate{{Name: "trait.png", Icon: icon, Mask: catalogmodel.MaskNoMask}},
		Detected:     catalogmodel.OverlayDetection{OverlayName: "rare", Scale: 1.0, OffsetX: 5, OffsetY: 5},
		IsTraitGroup: true,
	}}

	out := RunTwoPass(slots, overlays, cfg)
	require.Contains(t, out, "Personal Traits")
	require.Contains(t, out["Personal Traits"], 0)
	require.NotEmpty(t, out["Personal Traits"][0])
	assert.Contains(t, out["Personal Traits"][0][0].Method, "ssim-detected-overlay-all-scales-fallback-")
}

func TestRestoreScaleResultDividesBack(t *testing.T) {
	r := ScaleResult{OffsetX: 10, OffsetY: 20, TemplateW: 47, TemplateH: 36}
	got := RestoreScaleResult(r, 0.5)
	assert.Equal(t, 20, got.OffsetX)
	assert.Equal(t, 40, got.OffsetY)
}
