// Package iconmatch confirms the identity of a slot by multi-scale SSIM
// between a shortlisted catalog icon (blended with its detected overlay)
// and the slot ROI.
package iconmatch

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/imagehash"
	"github.com/phillipod/sister-sto/internal/overlaydetect"
	"github.com/phillipod/sister-sto/internal/ssim"
)

// Config controls the multi-scale search and acceptance threshold.
type Config struct {
	ScaleMin       float64 // 0.6
	ScaleMax       float64 // 0.8
	ScaleSteps     int     // 20
	ScoreThreshold float64 // 0.7
	BlurSigma      float64 // 3x3-equivalent Gaussian blur applied before comparison

	// RequireThresholdOnCommonBranch controls whether the common-overlay,
	// non-trait branch still rejects candidates under ScoreThreshold
	// (true) or always reports its best-scoring overlay regardless of
	// score (false, matching the observed "always report something"
	// fallback behavior).
	RequireThresholdOnCommonBranch bool
}

// DefaultConfig returns the multi-scale SSIM matcher's tuned schedule.
func DefaultConfig() Config {
	return Config{
		ScaleMin:       0.6,
		ScaleMax:       0.8,
		ScaleSteps:     20,
		ScoreThreshold: 0.7,
		BlurSigma:      0.6,
	}
}

// Hint carries the overlay detector's (dx, dy) offset so the first pass
// can evaluate a single targeted offset instead of sweeping the ROI.
type Hint struct {
	Enabled bool
	Dx, Dy  int
}

// ScaleResult is the outcome of one multi-scale SSIM search.
type ScaleResult struct {
	OffsetX, OffsetY int
	TemplateW, TemplateH int
	Score            float64
	Scale            float64
	Stepping         string // "stepping" or "no-stepping"
}

func scaleSchedule(cfg Config) []float64 {
	steps := cfg.ScaleSteps
	if steps < 1 {
		steps = 1
	}
	out := make([]float64, steps)
	for i := 0; i < steps; i++ {
		if steps == 1 {
			out[i] = cfg.ScaleMin
			continue
		}
		out[i] = cfg.ScaleMin + (cfg.ScaleMax-cfg.ScaleMin)*float64(i)/float64(steps-1)
	}
	return out
}

// MultiScaleMatch resizes template across cfg's scale schedule and
// searches each resized template against roi, either at the hinted
// offset only or by sweeping every offset the ROI admits, keeping the
// global-best-scoring (offset, scale) pair. When requireThreshold is
// true, returns false if nothing clears cfg.ScoreThreshold; when false,
// the best-scoring (offset, scale) pair is returned even if it falls
// short of cfg.ScoreThreshold, as long as some (offset, scale) pair was
// scored at all.
func MultiScaleMatch(roi, template image.Image, mask catalogmodel.MaskType, hint Hint, cfg Config, requireThreshold bool) (ScaleResult, bool) {
	roiGray := prepare(roi, mask, cfg)

	var best ScaleResult
	found := false

	for _, scale := range scaleSchedule(cfg) {
		resized := resizeBy(template, scale)
		templGray := prepare(resized, mask, cfg)

		tb := templGray.Bounds()
		rb := roiGray.Bounds()
		if tb.Dx() > rb.Dx() || tb.Dy() > rb.Dy() {
			continue
		}

		if hint.Enabled {
			score, ok := scoreAt(roiGray, templGray, hint.Dx, hint.Dy)
			if ok && (!found || score > best.Score) {
				best = ScaleResult{OffsetX: hint.Dx, OffsetY: hint.Dy, TemplateW: tb.Dx(), TemplateH: tb.Dy(), Score: score, Scale: scale, Stepping: "no-stepping"}
				found = true
			}
			continue
		}

		maxX := rb.Dx() - tb.Dx()
		maxY := rb.Dy() - tb.Dy()
		for dy := 0; dy <= maxY; dy++ {
			for dx := 0; dx <= maxX; dx++ {
				score, ok := scoreAt(roiGray, templGray, dx, dy)
				if !ok {
					continue
				}
				if !found || score > best.Score {
					best = ScaleResult{OffsetX: dx, OffsetY: dy, TemplateW: tb.Dx(), TemplateH: tb.Dy(), Score: score, Scale: scale, Stepping: "stepping"}
					found = true
				}
			}
		}
	}

	if !found {
		return ScaleResult{}, false
	}
	if requireThreshold && best.Score < cfg.ScoreThreshold {
		return ScaleResult{}, false
	}
	return best, true
}

func scoreAt(roiGray, templGray *image.Gray, dx, dy int) (float64, bool) {
	rb := roiGray.Bounds()
	tb := templGray.Bounds()
	rect := image.Rect(rb.Min.X+dx, rb.Min.Y+dy, rb.Min.X+dx+tb.Dx(), rb.Min.Y+dy+tb.Dy())
	if rect.Max.X > rb.Max.X || rect.Max.Y > rb.Max.Y {
		return 0, false
	}
	window := image.NewGray(tb)
	draw.Draw(window, tb, roiGray, rect.Min, draw.Src)
	return ssim.Compare(window, templGray, ssim.DefaultConfig()), true
}

// prepare blurs img and applies mask the way both the ROI and the
// blended template must be prepared before SSIM comparison.
func prepare(img image.Image, mask catalogmodel.MaskType, cfg Config) *image.Gray {
	blurred := imaging.Blur(img, cfg.BlurSigma)
	return imagehash.ApplyMask(blurred, mask)
}

func resizeBy(img image.Image, scale float64) image.Image {
	b := img.Bounds()
	w := maxInt(1, int(float64(b.Dx())*scale+0.5))
	h := maxInt(1, int(float64(b.Dy())*scale+0.5))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// BlendOverlay alpha-composites overlay onto icon using the standard
// Porter-Duff "over" operator.
func BlendOverlay(icon, overlay image.Image) image.Image {
	bounds := icon.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, icon, bounds.Min, draw.Src)
	draw.Draw(out, bounds, overlay, overlay.Bounds().Min, draw.Over)
	return out
}

// NormalizeROI delegates to the overlay detector's resize-to-reference-
// size rule, which the matcher shares verbatim.
func NormalizeROI(roi image.Image) overlaydetect.Normalized {
	return overlaydetect.NormalizeROI(roi)
}
