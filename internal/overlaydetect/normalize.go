// Package overlaydetect infers a slot's rarity tier by matching the thin
// colored stripe on the slot's left edge against the six reference
// overlay images.
package overlaydetect

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ReferenceWidth and ReferenceHeight are the fixed slot reference
// dimensions both the overlay detector and the icon matcher normalize
// ROIs to.
const (
	ReferenceWidth  = 47
	ReferenceHeight = 36
)

// Normalized holds a ROI resized to the reference dimensions plus the
// scale factor that was applied, so later stages can map coordinates
// back to the original ROI.
type Normalized struct {
	Image image.Image
	Scale float64
}

// NormalizeROI resizes roi to ReferenceWidth x ReferenceHeight if it is
// not already exactly that size. The smaller of the two axis scale
// factors is used so the aspect ratio is preserved; the result is then
// anchored top-left onto a ReferenceWidth x ReferenceHeight canvas
// (center of the stripe-bearing left edge never moves, which is what
// both the overlay detector and the icon matcher rely on).
func NormalizeROI(roi image.Image) Normalized {
	b := roi.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == ReferenceWidth && h == ReferenceHeight {
		return Normalized{Image: roi, Scale: 1.0}
	}
	if w == 0 || h == 0 {
		return Normalized{Image: roi, Scale: 1.0}
	}

	scaleX := float64(ReferenceWidth) / float64(w)
	scaleY := float64(ReferenceHeight) / float64(h)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	newW := maxInt(1, int(float64(w)*scale+0.5))
	newH := maxInt(1, int(float64(h)*scale+0.5))
	resized := imaging.Resize(roi, newW, newH, imaging.Lanczos)

	canvas := imaging.New(ReferenceWidth, ReferenceHeight, color.NRGBA{A: 255})
	canvas = imaging.Paste(canvas, resized, image.Pt(0, 0))

	return Normalized{Image: canvas, Scale: scale}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
