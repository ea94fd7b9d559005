package cubespec

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FilterOutliers blanks values whose z-score magnitude reaches zCut,
// computing the statistic over present values only. Returns the number
// of values removed. A degenerate sample (fewer than two present values
// or near-zero spread) leaves the sequence untouched.
func FilterOutliers(seq []float64, zCut float64) int {
	present := make([]float64, 0, len(seq))
	for _, v := range seq {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return 0
	}

	mean, std := stat.MeanStdDev(present, nil)
	if std <= 1e-12 {
		return 0
	}

	removed := 0
	for i, v := range seq {
		if math.IsNaN(v) {
			continue
		}
		if math.Abs((v-mean)/std) >= zCut {
			seq[i] = math.NaN()
			removed++
		}
	}
	return removed
}

// CalibrationFactor computes the global peak/aperture scale as the median
// of the elementwise ratio over indices where both sequences are present.
// ok is false when no usable overlap exists.
func CalibrationFactor(peak, aperture []float64) (factor float64, ok bool) {
	n := len(peak)
	if len(aperture) < n {
		n = len(aperture)
	}
	ratios := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(peak[i]) || math.IsNaN(aperture[i]) || aperture[i] == 0 {
			continue
		}
		ratios = append(ratios, peak[i]/aperture[i])
	}
	if len(ratios) == 0 {
		return 1, false
	}
	return median(ratios), true
}

// ApplyCalibration rescales every present value of the sequence in place.
func ApplyCalibration(seq []float64, factor float64) {
	for i, v := range seq {
		if !math.IsNaN(v) {
			seq[i] = v * factor
		}
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}
