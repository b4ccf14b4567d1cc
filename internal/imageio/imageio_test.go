package imageio

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeToBounds_PreservesAspectAndNeverUpscales(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	out := ResizeToBounds(small, MaxWidth, MaxHeight)
	assert.Equal(t, small.Bounds(), out.Bounds())

	large := image.NewRGBA(image.Rect(0, 0, 3840, 2160))
	out = ResizeToBounds(large, MaxWidth, MaxHeight)
	b := out.Bounds()
	assert.LessOrEqual(t, b.Dx(), MaxWidth)
	assert.LessOrEqual(t, b.Dy(), MaxHeight)
	assert.InDelta(t, 3840.0/2160.0, float64(b.Dx())/float64(b.Dy()), 0.01)
}

func TestAlphaBlend_OverlayTransparentLeavesIconUnchanged(t *testing.T) {
	icon := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			icon.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	overlay := image.NewRGBA(image.Rect(0, 0, 4, 4)) // fully transparent
	blended := AlphaBlend(icon, overlay)
	r, g, b, a := blended.At(1, 1).RGBA()
	assert.Equal(t, uint32(200<<8|200), r)
	assert.Equal(t, uint32(10<<8|10), g)
	assert.Equal(t, uint32(10<<8|10), b)
	assert.Equal(t, uint32(255<<8|255), a)
}

func TestCrop_ClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	out := Crop(img, image.Rect(5, 5, 20, 20))
	assert.Equal(t, 5, out.Bounds().Dx())
	assert.Equal(t, 5, out.Bounds().Dy())
}

func TestLoad_MissingFileReturnsNotFoundError(t *testing.T) {
	_, err := Load("/nonexistent/path/to/icon.png")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
