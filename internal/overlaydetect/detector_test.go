package overlaydetect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

func solidStripeOverlay(name string, r, g, b uint8) catalogmodel.OverlayImage {
	img := image.NewRGBA(image.Rect(0, 0, 8, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGBA{R: 240, G: 240, B: 240, A: 255}
			if x < 3 && y >= 10 && y <= 25 {
				c = color.RGBA{R: r, G: g, B: b, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return catalogmodel.OverlayImage{Name: name, Image: img}
}

func TestDetectSlotFallsBackToCommonOnBlankROI(t *testing.T) {
	overlays := []catalogmodel.OverlayImage{
		solidStripeOverlay("rare", 40, 80, 220),
		solidStripeOverlay("epic", 220, 180, 40),
	}
	det := NewDetector(overlays, DefaultConfig())

	roi := image.NewRGBA(image.Rect(0, 0, 47, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 47; x++ {
			roi.SetRGBA(x, y, color.RGBA{R: 245, G: 245, B: 245, A: 255})
		}
	}

	got := det.DetectSlot(roi)
	require.Len(t, got, 1)
	assert.Equal(t, "common", got[0].OverlayName)
	assert.Equal(t, "fallback", got[0].Method)
}

func TestDetectSlotMatchesStripedROI(t *testing.T) {
	overlays := []catalogmodel.OverlayImage{
		solidStripeOverlay("rare", 40, 80, 220),
		solidStripeOverlay("epic", 220, 180, 40),
	}
	det := NewDetector(overlays, DefaultConfig())

	roi := image.NewRGBA(image.Rect(0, 0, 47, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 47; x++ {
			c := color.RGBA{R: 240, G: 240, B: 240, A: 255}
			if x < 3 && y >= 10 && y <= 25 {
				c = color.RGBA{R: 40, G: 80, B: 220, A: 255}
			}
			roi.SetRGBA(x, y, c)
		}
	}

	got := det.DetectSlot(roi)
	require.Len(t, got, 1)
	assert.Equal(t, "rare", got[0].OverlayName)
}

func TestEnumerateSkipsCommonOverlay(t *testing.T) {
	overlays := []catalogmodel.OverlayImage{
		{Name: "common"},
		{Name: "rare"},
	}
	det := NewDetector(overlays, DefaultConfig())
	cands := det.enumerate()
	for _, c := range cands {
		assert.NotEqual(t, "common", c.overlay.Name)
	}
	assert.NotEmpty(t, cands)
}
