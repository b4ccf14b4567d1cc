package ssim

import (
	"image"
	"math"
)

// HueClass is the rarity tier (or "common"/"unknown") a barcode-stripe
// patch's dominant hue classifies as.
type HueClass string

const (
	HueEpic      HueClass = "epic"
	HueUncommon  HueClass = "uncommon"
	HueRare      HueClass = "rare"
	HueVeryRare  HueClass = "very rare"
	HueUltraRare HueClass = "ultra rare"
	HueCommon    HueClass = "common"
	HueUnknown   HueClass = "unknown"
)

// HueClassifyConfig holds the saturation/value/colorful-fraction gates
// the hue classifier uses to gate which pixels count as colorful.
type HueClassifyConfig struct {
	MinSaturation    float64 // 0.2
	MinValue         float64 // 0.3
	MinColorfulFrac  float64 // 0.3
}

// DefaultHueClassifyConfig returns the tuned saturation/value/colorful-
// fraction gates.
func DefaultHueClassifyConfig() HueClassifyConfig {
	return HueClassifyConfig{MinSaturation: 0.2, MinValue: 0.3, MinColorfulFrac: 0.3}
}

// ClassifyHue computes the circular-mean hue over "colorful" pixels
// (saturation >= MinSaturation, value >= MinValue) in img and classifies
// it into a rarity tier by hue degree range.
// If fewer than MinColorfulFrac of pixels qualify as colorful, HueCommon
// is returned (the barcode stripe carries no rarity signal, consistent
// with the "common" overlay's blank left edge). A hue outside every named
// range, or an empty image, returns HueUnknown.
func ClassifyHue(img image.Image, cfg HueClassifyConfig) HueClass {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return HueUnknown
	}

	var sinSum, cosSum float64
	colorful := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			h, s, v := rgbToHSV(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			if s < cfg.MinSaturation || v < cfg.MinValue {
				continue
			}
			colorful++
			rad := h * math.Pi / 180
			sinSum += math.Sin(rad)
			cosSum += math.Cos(rad)
		}
	}

	if float64(colorful)/float64(total) < cfg.MinColorfulFrac {
		return HueCommon
	}

	meanHue := math.Atan2(sinSum, cosSum) * 180 / math.Pi
	if meanHue < 0 {
		meanHue += 360
	}
	return classifyHueDegrees(meanHue)
}

func classifyHueDegrees(h float64) HueClass {
	switch {
	case h >= 40 && h <= 60:
		return HueEpic
	case h >= 100 && h <= 115:
		return HueUncommon
	case h >= 205 && h <= 220:
		return HueRare
	case h >= 240 && h <= 263:
		return HueVeryRare
	case h > 263 && h <= 290:
		return HueUltraRare
	default:
		return HueUnknown
	}
}

// rgbToHSV converts 8-bit RGB to hue in degrees [0,360), saturation and
// value in [0,1].
func rgbToHSV(r, g, b uint8) (hue, sat, val float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	maxV := math.Max(rf, math.Max(gf, bf))
	minV := math.Min(rf, math.Min(gf, bf))
	delta := maxV - minV

	val = maxV
	if maxV == 0 {
		sat = 0
	} else {
		sat = delta / maxV
	}
	if delta == 0 {
		hue = 0
		return
	}
	switch maxV {
	case rf:
		hue = 60 * math.Mod((gf-bf)/delta, 6)
	case gf:
		hue = 60 * ((bf-rf)/delta + 2)
	default:
		hue = 60 * ((rf-gf)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}
	return
}
