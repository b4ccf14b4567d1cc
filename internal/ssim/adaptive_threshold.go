package ssim

import (
	"image"
	"image/color"
)

// BlockThresholdConfig controls the local-mean adaptive binarization used
// to prepare barcode stripes and icon ROIs for SSIM comparison.
type BlockThresholdConfig struct {
	BlockSize int // odd window side length, default 11
	C         float64
}

// DefaultBlockThresholdConfig returns the tuned block/C pair.
func DefaultBlockThresholdConfig() BlockThresholdConfig {
	return BlockThresholdConfig{BlockSize: 11, C: 2}
}

// AdaptiveThreshold binarizes img: each pixel is set to white (255) when
// it exceeds the mean of its BlockSize x BlockSize neighborhood minus C,
// and black (0) otherwise. This mirrors OpenCV's
// ADAPTIVE_THRESH_MEAN_C behavior.
func AdaptiveThreshold(img *image.Gray, cfg BlockThresholdConfig) *image.Gray {
	block := cfg.BlockSize
	if block <= 0 {
		block = DefaultBlockThresholdConfig().BlockSize
	}
	if block%2 == 0 {
		block++
	}
	radius := block / 2

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	integral := buildIntegralImage(img)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := maxInt(0, x-radius)
			y0 := maxInt(0, y-radius)
			x1 := minInt(w-1, x+radius)
			y1 := minInt(h-1, y+radius)
			sum, count := integral.regionSum(x0, y0, x1, y1)
			mean := float64(sum) / float64(count)

			px := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			if px > mean-cfg.C {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

type integralImage struct {
	sums []int64
	w, h int
}

// buildIntegralImage computes the standard 2D prefix-sum table with a
// one-pixel zero border, so regionSum can answer any rectangle query in
// O(1).
func buildIntegralImage(img *image.Gray) *integralImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 1
	sums := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			sums[(y+1)*stride+(x+1)] = v + sums[y*stride+(x+1)] + sums[(y+1)*stride+x] - sums[y*stride+x]
		}
	}
	return &integralImage{sums: sums, w: w, h: h}
}

func (ii *integralImage) regionSum(x0, y0, x1, y1 int) (int64, int) {
	stride := ii.w + 1
	a := ii.sums[y0*stride+x0]
	b := ii.sums[y0*stride+x1+1]
	c := ii.sums[(y1+1)*stride+x0]
	d := ii.sums[(y1+1)*stride+x1+1]
	sum := d - b - c + a
	count := (x1 - x0 + 1) * (y1 - y0 + 1)
	return sum, count
}
