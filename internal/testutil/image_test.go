package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIconImageConfig(t *testing.T) {
	config := DefaultIconImageConfig()
	assert.Equal(t, IconSize, config.Size)
	assert.NotNil(t, config.Body)
	assert.NotNil(t, config.Ring)
}

func TestGenerateIconImage(t *testing.T) {
	config := DefaultIconImageConfig()
	img := GenerateIconImage(config)

	require.NotNil(t, img)
	assert.Equal(t, IconSize.Width, img.Bounds().Dx())
	assert.Equal(t, IconSize.Height, img.Bounds().Dy())

	// Ring border pixel differs from body center pixel.
	ring := img.At(0, 0)
	body := img.At(IconSize.Width/2, IconSize.Height/2)
	assert.NotEqual(t, ring, body)
}

func TestGenerateOverlayStripeImage(t *testing.T) {
	img := GenerateOverlayStripeImage("rare", StripeSize)

	require.NotNil(t, img)
	assert.Equal(t, StripeSize.Width, img.Bounds().Dx())
	assert.Equal(t, StripeSize.Height, img.Bounds().Dy())

	// Top-left corner stays untouched by the diagonal stripe.
	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, [4]uint32{0, 0, 0, 0}, [4]uint32{r, g, b, a})
}

func TestGenerateOverlayStripeImageUnknownName(t *testing.T) {
	img := GenerateOverlayStripeImage("not-a-rarity", StripeSize)
	require.NotNil(t, img)
}

func TestSaveAndLoadImage(t *testing.T) {
	tempDir := CreateTempDir(t)
	img := CreateTestImage(32, 32, color.RGBA{255, 0, 0, 255})

	path := filepath.Join(tempDir, "test.png")
	SaveImage(t, img, path)

	// Verify file exists
	assert.True(t, FileExists(path))

	loaded := LoadImage(t, path)
	require.NotNil(t, loaded)
	assert.Equal(t, img.Bounds(), loaded.Bounds())
}

func TestCompareImages(t *testing.T) {
	img1 := CreateTestImage(32, 32, color.RGBA{255, 0, 0, 255})
	img2 := CreateTestImage(32, 32, color.RGBA{255, 0, 0, 255})
	img3 := CreateTestImage(32, 32, color.RGBA{0, 0, 255, 255})

	assert.True(t, CompareImages(img1, img2, 0.01))
	assert.False(t, CompareImages(img1, img3, 0.01))
}

func TestCompareImagesDifferentBounds(t *testing.T) {
	img1 := CreateTestImage(32, 32, color.RGBA{255, 0, 0, 255})
	img2 := CreateTestImage(16, 16, color.RGBA{255, 0, 0, 255})

	assert.False(t, CompareImages(img1, img2, 0.01))
}

// TestGenerateCatalogFixtures tests the main image generation function and
// also serves as a way to actually generate the synthetic catalog images.
func TestGenerateCatalogFixtures(t *testing.T) {
	GenerateCatalogFixtures(t)

	iconDir := GetTestImageDir(t, "icons")
	assert.True(t, DirExists(iconDir))
	assert.True(t, FileExists(filepath.Join(iconDir, "phaser_array.png")))
	assert.True(t, FileExists(filepath.Join(iconDir, "disruptor_cannon.png")))

	overlayDir := GetTestImageDir(t, "overlays")
	assert.True(t, DirExists(overlayDir))
	assert.True(t, FileExists(filepath.Join(overlayDir, "rare.png")))
	assert.True(t, FileExists(filepath.Join(overlayDir, "very_rare.png")))
}

func TestLoadImageFile(t *testing.T) {
	tempDir := CreateTempDir(t)
	img := CreateTestImage(16, 16, color.RGBA{0, 255, 0, 255})

	path := filepath.Join(tempDir, "loadable.png")
	SaveImage(t, img, path)

	loaded, err := LoadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), loaded.Bounds())
}
