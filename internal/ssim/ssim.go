// Package ssim provides the numeric kernels shared by the overlay
// detector (§4.4) and the icon matcher (§4.5): windowed structural
// similarity, block adaptive thresholding, and hue classification. Each
// kernel has the same shape: a Config struct, a Default constructor, and
// a pure compute function.
package ssim

import (
	"image"

	"github.com/phillipod/sister-sto/internal/mempool"
)

// Config controls the windowed SSIM computation.
type Config struct {
	Window int // side length of the square comparison window, default 7
	C1, C2 float64
}

// DefaultConfig returns the standard 8-bit SSIM constants (Wang et al.)
// with a 7x7 window, small enough to be meaningful against the 47x36 ROI
// size used throughout §4.4/§4.5.
func DefaultConfig() Config {
	const l = 255.0
	return Config{
		Window: 7,
		C1:     (0.01 * l) * (0.01 * l),
		C2:     (0.03 * l) * (0.03 * l),
	}
}

// Compare computes the mean windowed SSIM between two equally sized
// grayscale images. Returns 0 if the images differ in size or are empty;
// an image smaller than the configured window is compared with the
// window shrunk to the image's smaller side.
func Compare(a, b *image.Gray, cfg Config) float64 {
	ba, bb := a.Bounds(), b.Bounds()
	w, h := ba.Dx(), ba.Dy()
	if w != bb.Dx() || h != bb.Dy() || w == 0 || h == 0 {
		return 0
	}
	win := cfg.Window
	if win <= 0 {
		win = DefaultConfig().Window
	}
	if win > w {
		win = w
	}
	if win > h {
		win = h
	}
	if win < 1 {
		return 0
	}

	af, bf := grayPairToFloat(a, b, w, h)

	stepY := maxInt(1, win/2)
	stepX := maxInt(1, win/2)

	var sum float64
	var count int
	for y := 0; y+win <= h; y += stepY {
		for x := 0; x+win <= w; x += stepX {
			sum += windowSSIM(af, bf, w, x, y, win, cfg)
			count++
		}
	}
	if count == 0 {
		return windowSSIM(af, bf, w, 0, 0, minInt(win, minInt(w, h)), cfg)
	}
	return sum / float64(count)
}

func windowSSIM(a, b []float64, stride, x0, y0, win int, cfg Config) float64 {
	n := float64(win * win)
	var sumA, sumB float64
	for y := 0; y < win; y++ {
		rowOff := (y0+y)*stride + x0
		for x := 0; x < win; x++ {
			sumA += a[rowOff+x]
			sumB += b[rowOff+x]
		}
	}
	meanA := sumA / n
	meanB := sumB / n

	var varA, varB, covar float64
	for y := 0; y < win; y++ {
		rowOff := (y0+y)*stride + x0
		for x := 0; x < win; x++ {
			da := a[rowOff+x] - meanA
			db := b[rowOff+x] - meanB
			varA += da * da
			varB += db * db
			covar += da * db
		}
	}
	varA /= n
	varB /= n
	covar /= n

	numerator := (2*meanA*meanB + cfg.C1) * (2*covar + cfg.C2)
	denominator := (meanA*meanA + meanB*meanB + cfg.C1) * (varA + varB + cfg.C2)
	if denominator == 0 {
		return 1
	}
	return numerator / denominator
}

// grayPairToFloat flattens both equally sized grayscale images into
// []float64 buffers, acquiring their pooled float32 scratch space as one
// GetFloat32Multiple call since Compare always needs both at once.
// mempool only pools float32, so each pixel is staged in the pooled
// buffer and copied into a newly allocated []float64 per image.
func grayPairToFloat(a, b *image.Gray, w, h int) (af, bf []float64) {
	bufs := mempool.GetFloat32Multiple([]int{w * h, w * h})
	defer mempool.PutFloat32Multiple(bufs)
	return flattenInto(a, bufs[0]), flattenInto(b, bufs[1])
}

func flattenInto(img *image.Gray, buf32 []float32) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	i := 0
	for y := 0; y < h; y++ {
		rowStart := (b.Min.Y+y)*img.Stride + b.Min.X
		row := img.Pix[rowStart : rowStart+w]
		for x := 0; x < w; x++ {
			buf32[i] = float32(row[x])
			out[i] = float64(buf32[i])
			i++
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
