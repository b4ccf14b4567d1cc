package ssim

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestCompareIdenticalIsOne(t *testing.T) {
	img := solidGray(20, 20, 128)
	score := Compare(img, img, DefaultConfig())
	assert.InDelta(t, 1.0, score, 1e-6)
}

func TestCompareDifferentSizeIsZero(t *testing.T) {
	a := solidGray(10, 10, 100)
	b := solidGray(8, 8, 100)
	assert.Equal(t, 0.0, Compare(a, b, DefaultConfig()))
}

func TestCompareDivergesWithContrast(t *testing.T) {
	a := solidGray(20, 20, 50)
	b := solidGray(20, 20, 200)
	score := Compare(a, b, DefaultConfig())
	assert.Less(t, score, 0.9)
}

func TestAdaptiveThresholdBinarizes(t *testing.T) {
	// A vertical step edge: the left half (x < 10) is black and the right
	// half is white. The test asserts the output has the same bounds and
	// is a valid binary (0/255) image.
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(0)
			if x >= 10 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	bin := AdaptiveThreshold(img, DefaultBlockThresholdConfig())
	require.Equal(t, img.Bounds(), bin.Bounds())
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := bin.GrayAt(x, y).Y
			assert.True(t, v == 0 || v == 255)
		}
	}
	// Deep in the dark region (x=2) and deep in the bright region (x=17)
	// each pixel equals its uniform neighborhood's mean, so with positive
	// C both exceed mean-C and binarize to white.
	assert.Equal(t, uint8(255), bin.GrayAt(2, 10).Y)
	assert.Equal(t, uint8(255), bin.GrayAt(17, 10).Y)
}

func TestClassifyHueRanges(t *testing.T) {
	cfg := DefaultHueClassifyConfig()
	tests := []struct {
		name string
		r, g, b uint8
		want HueClass
	}{
		{"rare blue", 40, 124, 220, HueRare},
		{"very rare violet", 70, 40, 220, HueVeryRare},
		{"epic gold", 220, 180, 40, HueEpic},
		{"uncommon green", 88, 200, 60, HueUncommon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, 10, 10))
			for y := 0; y < 10; y++ {
				for x := 0; x < 10; x++ {
					img.SetRGBA(x, y, color.RGBA{R: tt.r, G: tt.g, B: tt.b, A: 255})
				}
			}
			got := ClassifyHue(img, cfg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyHueLowColorfulnessIsCommon(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}
	assert.Equal(t, HueCommon, ClassifyHue(img, DefaultHueClassifyConfig()))
}

func TestPatternsMatchToleranceAndCount(t *testing.T) {
	a := []BarcodeSegment{{Start: 5, End: 10}, {Start: 20, End: 22}}
	b := []BarcodeSegment{{Start: 6, End: 11}, {Start: 21, End: 23}}
	assert.True(t, PatternsMatch(a, b))

	c := []BarcodeSegment{{Start: 5, End: 10}}
	assert.False(t, PatternsMatch(a, c))

	d := []BarcodeSegment{{Start: 10, End: 15}, {Start: 20, End: 22}}
	assert.False(t, PatternsMatch(a, d))
}

func TestDarkRowSegmentsFindsStripe(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 3; x++ {
			v := uint8(255)
			if y >= 15 && y <= 20 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	cfg := DefaultBarcodeConfig()
	segs := DarkRowSegments(img, cfg)
	require.Len(t, segs, 1)
	assert.InDelta(t, 15, segs[0].Start, 2)
	assert.InDelta(t, 20, segs[0].End, 2)
}
