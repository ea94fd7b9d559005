package cubespec

import (
	"math"

	"github.com/maorshutman/lm"
)

// gaussianValue evaluates the circularly-symmetric Gaussian-plus-offset
// model at patch-local (x, y).
func gaussianValue(p FitParams, x, y float64) float64 {
	dx := x - p.X0
	dy := y - p.Y0
	return p.Offset + p.Height*math.Exp(-(dx*dx+dy*dy)/(2*p.Sigma*p.Sigma))
}

// initialGuess derives the starting parameter vector deterministically
// from the patch: center from the argmax of the column/row marginals,
// height from the pixel there, sigma fixed at 1, offset from the patch
// median. Identical patches always reproduce identical fits.
func initialGuess(patch SubImage) FitParams {
	size := patch.Size
	colSums := make([]float64, size)
	rowSums := make([]float64, size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			v := patch.At(r, c)
			colSums[c] += v
			rowSums[r] += v
		}
	}

	xg := argmax(colSums)
	yg := argmax(rowSums)

	return FitParams{
		X0:     float64(xg),
		Y0:     float64(yg),
		Sigma:  1.0,
		Height: patch.At(yg, xg),
		Offset: median(patch.Data),
	}
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// FitGaussian fits the five-parameter model to the patch by weighted
// nonlinear least squares, with the patch noise estimate as the uniform
// per-pixel weight. Solver failure or a degenerate width reports
// FailFitDivergence.
func FitGaussian(patch SubImage, noiseStd float64, params *ExtractorParams) (FitParams, FailReason) {
	size := patch.Size
	n := size * size

	w := noiseStd
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		// Flat corner blocks give a zero estimate; fall back to unit weights.
		w = 1.0
	}

	residuals := func(dst, guess []float64) {
		p := FitParams{X0: guess[0], Y0: guess[1], Sigma: guess[2], Height: guess[3], Offset: guess[4]}
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				dst[r*size+c] = (patch.At(r, c) - gaussianValue(p, float64(c), float64(r))) / w
			}
		}
	}

	guess := initialGuess(patch)
	jacobian := lm.NumJac{Func: residuals}
	problem := lm.LMProblem{
		Dim:        5,
		Size:       n,
		Func:       residuals,
		Jac:        jacobian.Jac,
		InitParams: []float64{guess.X0, guess.Y0, guess.Sigma, guess.Height, guess.Offset},
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	results, err := lm.LM(problem, &lm.Settings{
		Iterations:   params.MaxIterations,
		ObjectiveTol: params.ObjectiveTol,
	})
	if err != nil {
		return FitParams{}, FailFitDivergence
	}

	fitted := FitParams{
		X0:     results.X[0],
		Y0:     results.X[1],
		Sigma:  math.Abs(results.X[2]),
		Height: results.X[3],
		Offset: results.X[4],
	}

	for _, v := range results.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FitParams{}, FailFitDivergence
		}
	}
	if fitted.Sigma == 0 {
		return FitParams{}, FailFitDivergence
	}

	return fitted, FailNone
}

// freeParamCount is the degrees-of-freedom divisor term of the reduced
// chi-squared, kept from the reference pipeline.
const freeParamCount = 6

// Goodness computes chi-squared, reduced chi-squared and R-squared of the
// fitted model against the patch under the uniform noise estimate.
func Goodness(patch SubImage, p FitParams, noiseStd float64) GoodnessStats {
	size := patch.Size
	n := size * size

	w := noiseStd
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		w = 1.0
	}

	var mean float64
	for _, v := range patch.Data {
		mean += v
	}
	mean /= float64(n)

	var chi2, rss, tss float64
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			res := patch.At(r, c) - gaussianValue(p, float64(c), float64(r))
			chi2 += (res / w) * (res / w)
			rss += res * res
			d := patch.At(r, c) - mean
			tss += d * d
		}
	}

	reduced := math.NaN()
	if n > freeParamCount {
		reduced = chi2 / float64(n-freeParamCount)
	}
	r2 := 0.0
	if tss > 0 {
		r2 = 1.0 - rss/tss
	}

	return GoodnessStats{ChiSquared: chi2, ReducedChiSquared: reduced, RSquared: r2}
}
