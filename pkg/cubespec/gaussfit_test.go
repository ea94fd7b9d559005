package cubespec

import (
	"math"
	"testing"
)

func TestInitialGuess(t *testing.T) {
	patch := synthPatch(15, 4.0, synthStar{x: 9, y: 5, sigma: 1.2, height: 80})
	guess := initialGuess(patch)

	if guess.X0 != 9 || guess.Y0 != 5 {
		t.Errorf("center guess: got (%f, %f), want (9, 5)", guess.X0, guess.Y0)
	}
	if guess.Sigma != 1.0 {
		t.Errorf("sigma guess: got %f, want 1", guess.Sigma)
	}
	if got, want := guess.Height, patch.At(5, 9); got != want {
		t.Errorf("height guess: got %f, want %f", got, want)
	}
	// Far from the source the patch sits at the offset, so the median
	// tracks it closely.
	if math.Abs(guess.Offset-4.0) > 0.5 {
		t.Errorf("offset guess: got %f, want ~4", guess.Offset)
	}
}

func TestFitGaussianRecoversParams(t *testing.T) {
	truth := FitParams{X0: 7.3, Y0: 6.8, Sigma: 1.5, Height: 100, Offset: 5}
	patch := synthPatch(15, truth.Offset, synthStar{x: truth.X0, y: truth.Y0, sigma: truth.Sigma, height: truth.Height})
	params := NewExtractorParams()

	fitted, reason := FitGaussian(patch, EstimateNoise(patch, 3), params)
	if reason != FailNone {
		t.Fatalf("fit failed: %v", reason)
	}

	tol := 1e-2
	if math.Abs(fitted.X0-truth.X0) > tol || math.Abs(fitted.Y0-truth.Y0) > tol {
		t.Errorf("center: got (%f, %f), want (%f, %f)", fitted.X0, fitted.Y0, truth.X0, truth.Y0)
	}
	if math.Abs(fitted.Sigma-truth.Sigma) > tol {
		t.Errorf("sigma: got %f, want %f", fitted.Sigma, truth.Sigma)
	}
	if math.Abs(fitted.Height-truth.Height) > 1 {
		t.Errorf("height: got %f, want %f", fitted.Height, truth.Height)
	}
	if math.Abs(fitted.Offset-truth.Offset) > 0.5 {
		t.Errorf("offset: got %f, want %f", fitted.Offset, truth.Offset)
	}
}

func TestFitGaussianDeterministic(t *testing.T) {
	patch := synthPatch(15, 2.0, synthStar{x: 6.6, y: 8.1, sigma: 1.8, height: 40})
	params := NewExtractorParams()
	noise := EstimateNoise(patch, 3)

	first, reason1 := FitGaussian(patch, noise, params)
	second, reason2 := FitGaussian(patch, noise, params)
	if reason1 != FailNone || reason2 != FailNone {
		t.Fatalf("fit failed: %v / %v", reason1, reason2)
	}
	if first != second {
		t.Errorf("identical inputs produced different fits:\n%+v\n%+v", first, second)
	}
}

func TestGoodnessPerfectFit(t *testing.T) {
	p := FitParams{X0: 7, Y0: 7, Sigma: 1.5, Height: 50, Offset: 3}
	patch := synthPatch(15, p.Offset, synthStar{x: p.X0, y: p.Y0, sigma: p.Sigma, height: p.Height})

	stats := Goodness(patch, p, 1.0)
	// float32 slice storage rounds the synthetic data slightly.
	if stats.ChiSquared > 1e-6 {
		t.Errorf("chi-squared of perfect fit: got %g", stats.ChiSquared)
	}
	if stats.RSquared < 0.999999 {
		t.Errorf("r-squared of perfect fit: got %f", stats.RSquared)
	}
	if want := stats.ChiSquared / float64(15*15-6); stats.ReducedChiSquared != want {
		t.Errorf("reduced chi-squared: got %g, want %g", stats.ReducedChiSquared, want)
	}
}

func TestGoodnessScalesWithNoise(t *testing.T) {
	p := FitParams{X0: 7, Y0: 7, Sigma: 2, Height: 10, Offset: 0}
	patch := synthPatch(15, 1.0, synthStar{x: 7, y: 7, sigma: 2, height: 10})

	loose := Goodness(patch, p, 2.0)
	tight := Goodness(patch, p, 1.0)
	if !(loose.ChiSquared < tight.ChiSquared) {
		t.Errorf("chi-squared should shrink with larger noise: %g vs %g", loose.ChiSquared, tight.ChiSquared)
	}
	// R-squared is weight-free.
	if loose.RSquared != tight.RSquared {
		t.Errorf("r-squared depends on noise: %f vs %f", loose.RSquared, tight.RSquared)
	}
}

func TestGoodnessTinyPatchNoDivideByZero(t *testing.T) {
	patch := synthPatch(2, 1.0)
	stats := Goodness(patch, FitParams{Sigma: 1, Height: 1}, 1.0)
	if !math.IsNaN(stats.ReducedChiSquared) {
		t.Errorf("reduced chi-squared on 4 pixels: got %g, want NaN", stats.ReducedChiSquared)
	}
	if math.IsInf(stats.RSquared, 0) || math.IsNaN(stats.RSquared) {
		t.Errorf("r-squared on flat patch: got %g", stats.RSquared)
	}
}
