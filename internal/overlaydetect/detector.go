package overlaydetect

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/ssim"
)

// Config controls the overlay search geometry: the scale/offset grid
// swept when matching a rarity stripe against the reference overlays.
type Config struct {
	ScaleMin      float64 // 0.6
	ScaleMax      float64 // 0.7
	ScaleSteps    int     // 11
	OffsetGridMax int     // 5 (a 5x5 neighborhood of 1px steps)
	StripeColumns int     // 3
	RightPad      int     // 7
	SSIMThreshold float64 // 0.75
	Threshold     ssim.BlockThresholdConfig
	Hue           ssim.HueClassifyConfig
	Barcode       ssim.BarcodeConfig
}

// DefaultConfig returns the stripe-matching geometry tuned against the
// reference overlay set.
func DefaultConfig() Config {
	return Config{
		ScaleMin:      0.6,
		ScaleMax:      0.7,
		ScaleSteps:    11,
		OffsetGridMax: 5,
		StripeColumns: 3,
		RightPad:      7,
		SSIMThreshold: 0.75,
		Threshold:     ssim.DefaultBlockThresholdConfig(),
		Hue:           ssim.DefaultHueClassifyConfig(),
		Barcode:       ssim.DefaultBarcodeConfig(),
	}
}

// Detector matches a slot ROI's left-edge barcode stripe against the six
// reference overlay images.
type Detector struct {
	overlays []catalogmodel.OverlayImage
	cfg      Config
}

// NewDetector builds a Detector over the loaded overlay reference images
// (§6 "Overlay images").
func NewDetector(overlays []catalogmodel.OverlayImage, cfg Config) *Detector {
	return &Detector{overlays: overlays, cfg: cfg}
}

// candidate is one (overlay, scale, dx, dy) enumeration point, the
// one point in the (overlay, scale, dx, dy) search grid.
type candidate struct {
	overlay catalogmodel.OverlayImage
	scale   float64
	dx, dy  int
}

func (d *Detector) enumerate() []candidate {
	var out []candidate
	steps := d.cfg.ScaleSteps
	if steps < 1 {
		steps = 1
	}
	span := d.cfg.OffsetGridMax
	if span < 1 {
		span = 1
	}
	half := span / 2

	for _, overlay := range d.overlays {
		if overlay.Name == "common" {
			continue
		}
		for i := 0; i < steps; i++ {
			scale := d.cfg.ScaleMin
			if steps > 1 {
				scale = d.cfg.ScaleMin + (d.cfg.ScaleMax-d.cfg.ScaleMin)*float64(i)/float64(steps-1)
			}
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					out = append(out, candidate{overlay: overlay, scale: scale, dx: dx, dy: dy})
				}
			}
		}
	}
	return out
}

// commonFallback is returned when no overlay candidate clears the
// acceptance threshold: the slot carries no visible rarity stripe.
func commonFallback() []catalogmodel.OverlayDetection {
	return []catalogmodel.OverlayDetection{{
		OverlayName: "common",
		Scale:       0.6,
		Method:      "fallback",
	}}
}

// DetectSlot runs the full barcode-stripe search against one slot ROI
// and returns the single best detection, or the common fallback if none
// clears threshold.
func (d *Detector) DetectSlot(roi image.Image) []catalogmodel.OverlayDetection {
	norm := NormalizeROI(roi)

	var best *catalogmodel.OverlayDetection
	for _, c := range d.enumerate() {
		score, ok := d.scoreCandidate(norm.Image, c)
		if !ok {
			continue
		}
		if score <= d.cfg.SSIMThreshold {
			continue
		}
		if best != nil && score <= best.SSIM {
			continue
		}
		best = &catalogmodel.OverlayDetection{
			OverlayName: c.overlay.Name,
			Scale:       c.scale,
			OffsetX:     c.dx,
			OffsetY:     c.dy,
			SSIM:        score,
			Method:      "barcode-stripe",
		}
	}

	if best == nil {
		slog.Debug("overlay detector found no match, using common fallback")
		return commonFallback()
	}
	return []catalogmodel.OverlayDetection{*best}
}

// scoreCandidate masks, extracts, and scores one (overlay, scale, dx, dy)
// candidate against roi, rejecting early on barcode-pattern or hue
// mismatch before paying for the SSIM comparison.
func (d *Detector) scoreCandidate(roi image.Image, c candidate) (float64, bool) {
	scaledOverlay := resizeOverlay(c.overlay.Image, c.scale)
	maskedOverlay := maskLeftStripe(scaledOverlay, d.cfg.StripeColumns)

	window := cropWindow(roi, maskedOverlay.Bounds().Dx(), maskedOverlay.Bounds().Dy(), c.dx, c.dy)
	if window == nil {
		return 0, false
	}
	maskedROI := maskLeftStripe(window, d.cfg.StripeColumns)

	overlayStrip := extractColumns(maskedOverlay, d.cfg.StripeColumns)
	roiStrip := extractColumns(maskedROI, d.cfg.StripeColumns)

	overlaySegments := ssim.DarkRowSegments(toGray(overlayStrip), d.cfg.Barcode)
	roiSegments := ssim.DarkRowSegments(toGray(roiStrip), d.cfg.Barcode)
	if !ssim.PatternsMatch(overlaySegments, roiSegments) {
		return 0, false
	}

	roiHue := ssim.ClassifyHue(roiStrip, d.cfg.Hue)
	if string(roiHue) != c.overlay.Name {
		return 0, false
	}

	overlayBin := ssim.AdaptiveThreshold(toGray(overlayStrip), d.cfg.Threshold)
	roiBin := ssim.AdaptiveThreshold(toGray(roiStrip), d.cfg.Threshold)

	overlayPadded := rightPad(overlayBin, d.cfg.RightPad)
	roiPadded := rightPad(roiBin, d.cfg.RightPad)

	score := ssim.Compare(overlayPadded, roiPadded, ssim.DefaultConfig())
	return score, true
}

func resizeOverlay(overlay image.Image, scale float64) image.Image {
	b := overlay.Bounds()
	w := maxInt(1, int(float64(b.Dx())*scale+0.5))
	h := maxInt(1, int(float64(b.Dy())*scale+0.5))
	return imaging.Resize(overlay, w, h, imaging.Lanczos)
}

// maskLeftStripe zeroes every pixel except a thin left-column strip half
// the stripe width: the leftmost ceil(stripeColumns/2) columns.
func maskLeftStripe(img image.Image, stripeColumns int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	keep := maxInt(1, stripeColumns/2+stripeColumns%2)
	if keep > w {
		keep = w
	}
	draw.Draw(out, image.Rect(0, 0, keep, h), img, b.Min, draw.Src)
	return out
}

// cropWindow crops a window of size wxh from roi at offset (dx, dy)
// relative to the origin. Returns nil if the window falls outside roi.
func cropWindow(roi image.Image, w, h, dx, dy int) image.Image {
	b := roi.Bounds()
	rect := image.Rect(b.Min.X+dx, b.Min.Y+dy, b.Min.X+dx+w, b.Min.Y+dy+h)
	if rect.Min.X < b.Min.X || rect.Min.Y < b.Min.Y || rect.Max.X > b.Max.X || rect.Max.Y > b.Max.Y {
		return nil
	}
	return imaging.Crop(roi, rect)
}

// extractColumns returns the left StripeColumns columns of img as the
// "barcode strip" used for pattern and hue comparison.
func extractColumns(img image.Image, stripeColumns int) image.Image {
	b := img.Bounds()
	w := stripeColumns
	if w > b.Dx() {
		w = b.Dx()
	}
	return imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+w, b.Max.Y))
}

// rightPad extends img to the right by n columns of black, giving SSIM a
// stable comparison window for SSIM.
func rightPad(img *image.Gray, n int) *image.Gray {
	if n <= 0 {
		return img
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx()+n, b.Dy()))
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
