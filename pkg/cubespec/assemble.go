package cubespec

import "math"

// Assembly holds one star's raw per-method sequences, aligned by
// wavelength index, plus the shared goodness statistics and the loop
// accounting. NaN marks a missing index; an index is either fully present
// or fully missing across Stats, never partial (the peak plausibility
// band may additionally blank the peak entry alone).
type Assembly struct {
	Spectra map[Method][]float64
	Stats   []GoodnessStats
	Tally   Tally
}

// AssembleStar runs the per-wavelength-index loop for one star: excluded
// band handling, patch extraction, noise estimate, Gaussian fit, goodness
// and the three intensity derivations. Every failure is local to its
// index; the loop always completes and every sequence comes out with
// exactly src.NumSlices() entries.
func AssembleStar(src SliceSource, star Star, params *ExtractorParams) Assembly {
	n := src.NumSlices()
	asm := Assembly{
		Spectra: map[Method][]float64{
			MethodPeak:     make([]float64, 0, n),
			MethodAperture: make([]float64, 0, n),
			MethodPixel:    make([]float64, 0, n),
		},
		Stats: make([]GoodnessStats, 0, n),
		Tally: newTally(),
	}

	for index := 0; index < n; index++ {
		if params.Excluded(index) {
			// Known contaminated band: never fit, regardless of data.
			asm.appendMissing()
			asm.Tally.Excluded++
			continue
		}

		sl, err := src.Slice(index)
		if err != nil {
			asm.appendMissing()
			asm.Tally.fail(FailSliceLoad)
			continue
		}

		values, stats, reason := extractIndex(sl, star, params)
		sl.Data.Close()
		sl.Uncert.Close()

		if reason != FailNone {
			asm.appendMissing()
			asm.Tally.fail(reason)
			continue
		}

		if math.IsNaN(values.Peak) {
			// Index fitted, but the peak fell outside the plausibility
			// band; only the peak entry goes missing.
			asm.Tally.fail(FailImplausibleValue)
		}
		asm.Spectra[MethodPeak] = append(asm.Spectra[MethodPeak], values.Peak)
		asm.Spectra[MethodAperture] = append(asm.Spectra[MethodAperture], values.Aperture)
		asm.Spectra[MethodPixel] = append(asm.Spectra[MethodPixel], values.Pixel)
		asm.Stats = append(asm.Stats, stats)
		asm.Tally.Fitted++
	}

	return asm
}

// extractIndex runs the compute chain for a single slice.
func extractIndex(sl Slice, star Star, params *ExtractorParams) (Intensities, GoodnessStats, FailReason) {
	patch, reason := ExtractSubImage(sl, star, params.PatchHalfWidth)
	if reason != FailNone {
		return missingIntensities(), missingGoodness(), reason
	}

	noiseStd := EstimateNoise(patch, params.CornerBlockSize)

	fitted, reason := FitGaussian(patch, noiseStd, params)
	if reason != FailNone {
		return missingIntensities(), missingGoodness(), reason
	}

	stats := Goodness(patch, fitted, noiseStd)
	values := ExtractIntensities(sl, patch, fitted, params)
	return values, stats, FailNone
}

func (a *Assembly) appendMissing() {
	nan := math.NaN()
	for _, m := range Methods {
		a.Spectra[m] = append(a.Spectra[m], nan)
	}
	a.Stats = append(a.Stats, missingGoodness())
}

// PadToLength extends a sequence with missing markers up to n entries.
// Reloaded cache tables may be shorter than the current axis.
func PadToLength(seq []float64, n int) []float64 {
	for len(seq) < n {
		seq = append(seq, math.NaN())
	}
	return seq
}

// PadStats extends a stats sequence with missing entries up to n.
func PadStats(stats []GoodnessStats, n int) []GoodnessStats {
	for len(stats) < n {
		stats = append(stats, missingGoodness())
	}
	return stats
}
