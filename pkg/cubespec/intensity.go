package cubespec

import "math"

// ExtractIntensities derives the three per-slice intensity estimators
// from a successful fit. The aperture and pixel methods read the fitted
// model, not the raw patch; the raw slice enters only through the
// side-background term of the aperture sum. A peak outside the
// plausibility band is recorded as missing without touching the other
// two methods.
func ExtractIntensities(sl Slice, patch SubImage, p FitParams, params *ExtractorParams) Intensities {
	out := Intensities{
		Peak:     p.Height,
		Aperture: apertureSum(sl, patch, p, params),
		Pixel:    pixelValue(patch, p),
	}

	// Divergent fits on noise-dominated patches run the height away;
	// the band is a tunable guard, not a physical limit.
	if p.Height <= -params.HeightBound || p.Height >= params.HeightBound {
		out.Peak = math.NaN()
	}
	return out
}

// apertureSum sums the fitted model over an ApertureSize window centered
// on the nearest-integer fitted center, clipped to the patch, subtracts
// the raw-data background summed over a fixed window offset to the side
// of the star in field coordinates, and applies the initial scale.
func apertureSum(sl Slice, patch SubImage, p FitParams, params *ExtractorParams) float64 {
	size := patch.Size
	half := (params.ApertureSize - 1) / 2
	cx := int(math.Round(p.X0))
	cy := int(math.Round(p.Y0))

	var modelSum float64
	for r := cy - half; r <= cy+half; r++ {
		if r < 0 || r >= size {
			continue
		}
		for c := cx - half; c <= cx+half; c++ {
			if c < 0 || c >= size {
				continue
			}
			modelSum += gaussianValue(p, float64(c), float64(r))
		}
	}

	// Side-background window: a static offset assumed source-free for
	// this field's catalog, not an adaptive choice.
	width, height := sl.Data.Cols(), sl.Data.Rows()
	data := sl.Data.DataFloat32()
	n := params.ApertureSize
	var bgSum float64
	for r := patch.Y0 - half; r < patch.Y0-half+n; r++ {
		if r < 0 || r >= height {
			continue
		}
		for c := patch.X0 + params.BackgroundOffsetX; c < patch.X0+params.BackgroundOffsetX+n; c++ {
			if c < 0 || c >= width {
				continue
			}
			bgSum += float64(data[r*width+c])
		}
	}

	return (modelSum - bgSum) * params.ApertureScale
}

// pixelValue evaluates the fitted model at the nearest-integer fitted
// center.
func pixelValue(patch SubImage, p FitParams) float64 {
	cx := math.Round(p.X0)
	cy := math.Round(p.Y0)
	return gaussianValue(p, cx, cy)
}
