package collaborators

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/imageio"
)

func TestFileScreenshotSourceLoadsPlainImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "char-sheet.png")
	require.NoError(t, imageio.EncodePNG(path, img))

	src := &FileScreenshotSource{}
	shots, err := src.LoadScreenshots(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, "char-sheet.png", shots[0].Name)
	assert.Equal(t, 4, shots[0].Image.Bounds().Dx())
}

func TestFileScreenshotSourceResizesOversizedImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	path := filepath.Join(t.TempDir(), "oversized.png")
	require.NoError(t, imageio.EncodePNG(path, img))

	src := &FileScreenshotSource{MaxWidth: 1920, MaxHeight: 1080}
	shots, err := src.LoadScreenshots(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.LessOrEqual(t, shots[0].Image.Bounds().Dx(), 1920)
	assert.LessOrEqual(t, shots[0].Image.Bounds().Dy(), 1080)
}

func TestFileScreenshotSourceRejectsMissingFile(t *testing.T) {
	src := &FileScreenshotSource{}
	_, err := src.LoadScreenshots(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("sheet.pdf"))
	assert.False(t, isPDF("sheet.png"))
}
