package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// IconSize is the standard catalog icon thumbnail size used throughout
	// the fixtures below; real STO icons are square.
	IconSize = ImageSize{64, 64}
	// SlotSize is a typical cropped slot ROI size, slightly larger than the
	// icon itself to leave room for the rarity-stripe corner.
	SlotSize = ImageSize{72, 72}
	// StripeSize is the rarity-overlay reference image size.
	StripeSize = ImageSize{64, 64}
)

// IconImageConfig holds configuration for generating a synthetic catalog
// icon: a solid body color with a contrasting ring border, which is enough
// structure for perceptual hashing and SSIM matching to key off of without
// needing a real game asset.
type IconImageConfig struct {
	Size       ImageSize
	Body       color.Color
	Ring       color.Color
	RingWidth  int
}

// DefaultIconImageConfig returns a default configuration for synthetic icon
// images.
func DefaultIconImageConfig() IconImageConfig {
	return IconImageConfig{
		Size:      IconSize,
		Body:      color.RGBA{80, 110, 160, 255},
		Ring:      color.RGBA{20, 20, 30, 255},
		RingWidth: 3,
	}
}

// GenerateIconImage creates a synthetic catalog icon: a bordered square
// distinguishable from other icons by body/ring color, standing in for a
// real game icon.
func GenerateIconImage(config IconImageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Body}, image.Point{}, draw.Src)

	w, h := config.Size.Width, config.Size.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < config.RingWidth || y < config.RingWidth || x >= w-config.RingWidth || y >= h-config.RingWidth {
				img.Set(x, y, config.Ring)
			}
		}
	}
	return img
}

// rarityStripeColors gives each overlay's stripe its own color, just
// distinct enough for SSIM to tell overlays apart; the colors are not
// matched to the hue ranges ssim.ClassifyHue assigns to each tier.
var rarityStripeColors = map[string]color.Color{
	"common":    color.RGBA{200, 200, 200, 255},
	"uncommon":  color.RGBA{80, 200, 80, 255},
	"rare":      color.RGBA{80, 140, 230, 255},
	"very rare": color.RGBA{160, 90, 220, 255},
	"ultra rare": color.RGBA{230, 170, 40, 255},
	"epic":      color.RGBA{220, 60, 60, 255},
}

// GenerateOverlayStripeImage creates a synthetic rarity-overlay reference
// image: a diagonal stripe of the overlay's color across the bottom-right
// corner of an otherwise transparent square. The left-edge columns the
// overlay detector reads stay transparent.
func GenerateOverlayStripeImage(overlayName string, size ImageSize) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	stripeColor, ok := rarityStripeColors[overlayName]
	if !ok {
		stripeColor = color.RGBA{160, 160, 160, 255}
	}

	w, h := size.Width, size.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+y >= w+h-w/3 {
				img.Set(x, y, stripeColor)
			}
		}
	}
	return img
}

// SaveImage saves an image to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	// Ensure directory exists
	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	err = png.Encode(file, img)
	require.NoError(t, err, "Failed to encode PNG image")
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}

// CompareImages compares two images and returns true if they are similar.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	bounds2 := img2.Bounds()

	if bounds1 != bounds2 {
		return false
	}

	var totalDiff float64
	var pixelCount float64

	for y := bounds1.Min.Y; y < bounds1.Max.Y; y++ {
		for x := bounds1.Min.X; x < bounds1.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()

			// Calculate color difference
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)

			diff := math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			totalDiff += diff
			pixelCount++
		}
	}

	avgDiff := totalDiff / pixelCount
	maxDiff := math.Sqrt(4 * 65535 * 65535) // Maximum possible difference

	return (avgDiff / maxDiff) <= tolerance
}

// iconFixtureSpecs are the synthetic catalog icons GenerateCatalogFixtures
// writes, distinguished by body color the way distinct game icons are
// distinguished by their artwork.
var iconFixtureSpecs = []struct {
	Name string
	Body color.Color
}{
	{"phaser_array", color.RGBA{80, 110, 160, 255}},
	{"disruptor_cannon", color.RGBA{160, 70, 70, 255}},
	{"deflector_array", color.RGBA{90, 160, 110, 255}},
	{"impulse_engine", color.RGBA{200, 190, 90, 255}},
}

// GenerateCatalogFixtures creates a small set of synthetic catalog icon and
// rarity-overlay images in the testdata directory, standing in for the
// real game icon catalog.
func GenerateCatalogFixtures(t *testing.T) {
	t.Helper()

	iconDir := GetTestImageDir(t, "icons")
	require.NoError(t, EnsureDir(iconDir))

	for _, spec := range iconFixtureSpecs {
		cfg := DefaultIconImageConfig()
		cfg.Body = spec.Body

		img := GenerateIconImage(cfg)
		SaveImage(t, img, filepath.Join(iconDir, fmt.Sprintf("%s.png", spec.Name)))
	}

	overlayDir := GetTestImageDir(t, "overlays")
	require.NoError(t, EnsureDir(overlayDir))

	for _, name := range []string{"uncommon", "rare", "very rare", "ultra rare", "epic"} {
		img := GenerateOverlayStripeImage(name, StripeSize)
		SaveImage(t, img, filepath.Join(overlayDir, fmt.Sprintf("%s.png", slugifyOverlay(name))))
	}
}

func slugifyOverlay(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		if r == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// CreateTestImage creates a simple test image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening user-provided image file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}
