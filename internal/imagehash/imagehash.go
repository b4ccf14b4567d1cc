// Package imagehash computes the 64-bit perceptual hashes (pHash, dHash)
// used to index and prefilter the icon catalog.
package imagehash

import (
	"image"
	"image/color"
	"math"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/mempool"
	"github.com/disintegration/imaging"
)

// DefaultMatchSize is the square resolution hashes are computed against.
const DefaultMatchSize = 16

// Config controls the hash pipeline's resize target.
type Config struct {
	MatchSize int // default 16
}

// DefaultConfig returns the spec-mandated 16x16 match size.
func DefaultConfig() Config { return Config{MatchSize: DefaultMatchSize} }

func (c Config) matchSize() int {
	if c.MatchSize > 0 {
		return c.MatchSize
	}
	return DefaultMatchSize
}

// ApplyMask zeroes out the region of img that the given mask type
// suppresses, returning a new grayscale image the same size as img.
//
// MaskDefault suppresses the bottom-right quadrant (x >= W/2 && y >= 3H/4)
// where rarity overlay decorations live. MaskNoMask leaves the image
// untouched. MaskBottomLeft suppresses the bottom-left quadrant instead,
// for kit-module icons whose decoration sits there.
func ApplyMask(img image.Image, mask catalogmodel.MaskType) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := image.NewGray(image.Rect(0, 0, w, h))

	// The suppressed-column test is the same for every row, so it's hoisted
	// out of the inner loop into a pooled buffer rather than re-switched per
	// pixel; this runs once per candidate per scale step in the matcher.
	colSuppressed := mempool.GetBool(w)
	defer mempool.PutBool(colSuppressed)
	for x := 0; x < w; x++ {
		switch mask {
		case catalogmodel.MaskBottomLeft:
			colSuppressed[x] = x < w/2
		case catalogmodel.MaskNoMask:
			colSuppressed[x] = false
		default: // MaskDefault and unrecognized values
			colSuppressed[x] = x >= w/2
		}
	}

	for y := 0; y < h; y++ {
		rowSuppressed := mask != catalogmodel.MaskNoMask && y >= 3*h/4
		for x := 0; x < w; x++ {
			if rowSuppressed && colSuppressed[x] {
				gray.SetGray(x, y, color.Gray{Y: 0})
				continue
			}
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := uint8((299*r + 587*g + 114*b) / 1000 >> 8)
			gray.SetGray(x, y, color.Gray{Y: lum})
		}
	}
	return gray
}

// Hashes bundles the two perceptual hashes computed for one image.
type Hashes struct {
	PHash uint64
	DHash uint64
}

// Compute masks, resizes, and hashes img: a binary mask
// is applied first, then the image is resized to the configured match
// size, then both pHash and dHash are computed against the resized
// result.
func Compute(img image.Image, mask catalogmodel.MaskType, cfg Config) Hashes {
	masked := ApplyMask(img, mask)
	size := cfg.matchSize()
	resized := imaging.Resize(masked, size, size, imaging.Lanczos)
	return Hashes{
		PHash: PHash(resized),
		DHash: DHash(resized),
	}
}

// PHash computes a 64-bit DCT-based perceptual hash. The image is resized
// to a 32x32 working surface, the 2D DCT-II is applied, and the top-left
// 8x8 low-frequency block (excluding the DC term) is thresholded against
// its median to produce 63 bits (bit 63 of the result is always zero).
func PHash(img image.Image) uint64 {
	const work = 32
	const keep = 8

	resized := imaging.Resize(toGrayImage(img), work, work, imaging.Lanczos)
	pixels := make([][]float64, work)
	for y := 0; y < work; y++ {
		pixels[y] = make([]float64, work)
		for x := 0; x < work; x++ {
			g := resized.GrayAt(x, y)
			pixels[y][x] = float64(g.Y)
		}
	}

	dct := dct2D(pixels, work)

	coeffs := make([]float64, 0, keep*keep-1)
	for y := 0; y < keep; y++ {
		for x := 0; x < keep; x++ {
			if x == 0 && y == 0 {
				continue // skip DC term
			}
			coeffs = append(coeffs, dct[y][x])
		}
	}
	median := medianOf(coeffs)

	var hash uint64
	bit := uint(0)
	for y := 0; y < keep; y++ {
		for x := 0; x < keep; x++ {
			if x == 0 && y == 0 {
				continue
			}
			if dct[y][x] > median {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

// DHash computes a 64-bit difference hash: resize to 9x8, then for every
// row set a bit when a pixel is brighter than its right neighbor.
func DHash(img image.Image) uint64 {
	const w, h = 9, 8
	resized := imaging.Resize(toGrayImage(img), w, h, imaging.Lanczos)

	var hash uint64
	bit := uint(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			left := resized.GrayAt(x, y).Y
			right := resized.GrayAt(x+1, y).Y
			if left > right {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

// HammingDistance returns the number of differing bits between two
// 64-bit hashes.
func HammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}

func toGrayImage(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := uint8((299*r + 587*g + 114*b) / 1000 >> 8)
			gray.SetGray(x, y, color.Gray{Y: lum})
		}
	}
	return gray
}

func medianOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	// simple insertion sort; inputs are at most 63 elements
	for i := 1; i < len(sorted); i++ {
		v := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > v {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = v
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// dct2D applies a separable 2D DCT-II to an NxN matrix of pixel values.
func dct2D(pixels [][]float64, n int) [][]float64 {
	// 1D DCT-II basis applied to rows, then to columns.
	rowTransformed := make([][]float64, n)
	for y := 0; y < n; y++ {
		rowTransformed[y] = dct1D(pixels[y], n)
	}
	colInput := make([][]float64, n)
	for x := 0; x < n; x++ {
		col := make([]float64, n)
		for y := 0; y < n; y++ {
			col[y] = rowTransformed[y][x]
		}
		colInput[x] = dct1D(col, n)
	}
	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
	}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			out[y][x] = colInput[x][y]
		}
	}
	return out
}

func dct1D(in []float64, n int) []float64 {
	out := make([]float64, n)
	factor := math.Pi / float64(n)
	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += in[i] * math.Cos((float64(i)+0.5)*float64(k)*factor)
		}
		alpha := 1.0
		if k == 0 {
			alpha = 1.0 / math.Sqrt2
		}
		out[k] = sum * alpha * math.Sqrt(2.0/float64(n))
	}
	return out
}

// HexEncode renders a 64-bit hash as 16 lowercase hex characters, the
// wire format used by the hash-index JSON document (§4.2, §6).
func HexEncode(h uint64) string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexdigits[h&0xf]
		h >>= 4
	}
	return string(buf)
}

// HexDecode parses a 16-character hex string back into a 64-bit hash.
func HexDecode(s string) (uint64, bool) {
	if len(s) != 16 {
		return 0, false
	}
	var h uint64
	for i := 0; i < 16; i++ {
		c := s[i]
		var v uint64
		switch {
		case c >= '0' && c <= '9':
			v = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			v = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = uint64(c-'A') + 10
		default:
			return 0, false
		}
		h = h<<4 | v
	}
	return h, true
}
