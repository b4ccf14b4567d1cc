package iconmatch

// RestoreScaleResult divides a ScaleResult's offsets and template size
// back by normScale, undoing the resize NormalizeROI applied so offsets
// are reported in the original ROI's coordinate space.
func RestoreScaleResult(result ScaleResult, normScale float64) ScaleResult {
	if normScale == 0 || normScale == 1 {
		return result
	}
	result.OffsetX = int(float64(result.OffsetX) / normScale)
	result.OffsetY = int(float64(result.OffsetY) / normScale)
	result.TemplateW = int(float64(result.TemplateW) / normScale)
	result.TemplateH = int(float64(result.TemplateH) / normScale)
	return result
}
