// Package imageio handles the external image surfaces named in §6:
// decoding screenshots, overlay PNGs, and catalog icons, the optional
// resize-to-1920x1080 applied to incoming screenshots, and the
// Porter-Duff alpha blend used when compositing a rarity overlay onto an
// icon. Grounded on the teacher's image-handling idiom (a typed error per
// operation, imaging.Resize with Lanczos, io/fs style decode-from-bytes).
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Error wraps a failure in one named image-io operation, matching the
// teacher's small per-package error type rather than a shared monolith.
type Error struct {
	Operation string
	Path      string
	Err       error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("imageio %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("imageio %s: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFoundError is returned by Load when the path does not exist, so
// callers can distinguish a missing file from a corrupt one per §7's
// image-not-found taxonomy entry.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("image not found: %s", e.Path) }

var supportedExt = []string{".png", ".jpg", ".jpeg"}

// IsSupported reports whether path has a decodable extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range supportedExt {
		if ext == s {
			return true
		}
	}
	return false
}

// Load decodes an image file from disk.
func Load(path string) (image.Image, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: caller-supplied catalog/screenshot path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &Error{Operation: "read", Path: path, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Operation: "decode", Path: path, Err: err}
	}
	return img, nil
}

// MaxWidth and MaxHeight are the default screenshot resize ceiling: neither
// dimension exceeds 1920x1080, aspect ratio preserved, never upscaled.
const (
	MaxWidth  = 1920
	MaxHeight = 1080
)

// ResizeToBounds scales img down so neither dimension exceeds maxW/maxH,
// preserving aspect ratio. Images already within bounds are returned
// unchanged (never upscaled).
func ResizeToBounds(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}
	scaleX := float64(maxW) / float64(w)
	scaleY := float64(maxH) / float64(h)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// Crop extracts rect from img, clamped to img's own bounds.
func Crop(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Crop(img, rect)
}

// AlphaBlend composites overlay (typically RGBA with transparency) onto
// icon using the standard Porter-Duff "over" operator, per §4.2/§4.4's
// "alpha-blend the overlay onto the icon". golang.org/x/image/draw's Draw
// composites exactly as the standard library's image/draw does; no
// resampling is involved, so overlay and icon are expected to share a size.
func AlphaBlend(icon, overlay image.Image) image.Image {
	bounds := icon.Bounds()
	out := image.NewRGBA(bounds)
	xdraw.Draw(out, bounds, icon, bounds.Min, xdraw.Src)
	if overlay != nil {
		xdraw.Draw(out, bounds, overlay, overlay.Bounds().Min, xdraw.Over)
	}
	return out
}

// Decode decodes raw bytes (already read from disk or a companion
// archive) into an image.
func Decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Operation: "decode", Err: err}
	}
	return img, nil
}

// EncodePNG writes img to path as a PNG, creating parent directories as
// needed.
func EncodePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Error{Operation: "mkdir", Path: path, Err: err}
	}
	f, err := os.Create(path) //nolint:gosec // G304: caller-supplied debug output path
	if err != nil {
		return &Error{Operation: "create", Path: path, Err: err}
	}
	defer f.Close()
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		return &Error{Operation: "encode", Path: path, Err: err}
	}
	return nil
}

// ToRGBA forces img into a concrete *image.RGBA, used before mutating
// operations that require a drawable destination.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}
