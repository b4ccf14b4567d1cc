package ssim

import "image"

// BarcodeSegment is one contiguous run of "dark" rows in a barcode strip,
// using 0-based row indices inclusive of both ends.
type BarcodeSegment struct {
	Start, End int
}

// Length returns the number of rows the segment spans.
func (s BarcodeSegment) Length() int { return s.End - s.Start + 1 }

// BarcodeConfig controls dark-row segment extraction from a barcode
// strip.
type BarcodeConfig struct {
	IgnoreTopFraction float64 // 0.3: skip this fraction of rows from the top
	MinDarkColumns    int     // 3: minimum dark columns per row to count as "dark"
	Threshold         BlockThresholdConfig
}

// DefaultBarcodeConfig returns the tuned dark-row extraction thresholds.
func DefaultBarcodeConfig() BarcodeConfig {
	return BarcodeConfig{
		IgnoreTopFraction: 0.3,
		MinDarkColumns:    3,
		Threshold:         DefaultBlockThresholdConfig(),
	}
}

// DarkRowSegments adaptive-thresholds strip, skips the top
// IgnoreTopFraction of rows, and returns the contiguous runs of rows
// whose dark-pixel count meets MinDarkColumns (clamped to the strip's
// actual width so narrow strips remain usable).
func DarkRowSegments(strip *image.Gray, cfg BarcodeConfig) []BarcodeSegment {
	b := strip.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	bin := AdaptiveThreshold(strip, cfg.Threshold)
	minDark := cfg.MinDarkColumns
	if minDark > w {
		minDark = w
	}
	startRow := int(float64(h) * cfg.IgnoreTopFraction)

	var segments []BarcodeSegment
	inSegment := false
	segStart := 0

	for y := startRow; y < h; y++ {
		dark := 0
		for x := 0; x < w; x++ {
			if bin.GrayAt(x, y).Y == 0 {
				dark++
			}
		}
		isDark := dark >= minDark
		switch {
		case isDark && !inSegment:
			inSegment = true
			segStart = y
		case !isDark && inSegment:
			segments = append(segments, BarcodeSegment{Start: segStart, End: y - 1})
			inSegment = false
		}
	}
	if inSegment {
		segments = append(segments, BarcodeSegment{Start: segStart, End: h - 1})
	}
	return segments
}

// BarcodeTolerance bounds how much two aligned segments may differ and
// still be considered a pattern match: start/end rows within 2, length
// within 2.
const BarcodeTolerance = 2

// PatternsMatch reports whether two segment lists have equal count and
// are pairwise aligned within BarcodeTolerance on start, end, and length.
func PatternsMatch(a, b []BarcodeSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if absInt(a[i].Start-b[i].Start) > BarcodeTolerance {
			return false
		}
		if absInt(a[i].End-b[i].End) > BarcodeTolerance {
			return false
		}
		if absInt(a[i].Length()-b[i].Length()) > BarcodeTolerance {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
