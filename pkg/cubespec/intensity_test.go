package cubespec

import (
	"math"
	"testing"
)

func intensityFixture(t *testing.T) (Slice, SubImage, func()) {
	t.Helper()
	src := synthSource(t, 40, 40, 1, 0, synthStar{x: 20, y: 20, sigma: 1.5, height: 100})
	sl, err := src.Slice(0)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	patch, reason := ExtractSubImage(sl, Star{X: 20, Y: 20}, 7)
	if reason != FailNone {
		t.Fatalf("extraction failed: %v", reason)
	}
	return sl, patch, func() {
		sl.Data.Close()
		sl.Uncert.Close()
		src.Close()
	}
}

func TestExtractIntensitiesPeakIsHeight(t *testing.T) {
	sl, patch, done := intensityFixture(t)
	defer done()

	p := FitParams{X0: 7, Y0: 7, Sigma: 1.5, Height: 100, Offset: 0}
	values := ExtractIntensities(sl, patch, p, NewExtractorParams())
	if values.Peak != 100 {
		t.Errorf("peak: got %f, want 100", values.Peak)
	}
}

func TestExtractIntensitiesImplausiblePeak(t *testing.T) {
	sl, patch, done := intensityFixture(t)
	defer done()

	params := NewExtractorParams()
	p := FitParams{X0: 7, Y0: 7, Sigma: 1.5, Height: 15000, Offset: 0}
	values := ExtractIntensities(sl, patch, p, params)

	if !math.IsNaN(values.Peak) {
		t.Errorf("peak at 15000 with bound 10000: got %f, want NaN", values.Peak)
	}
	if math.IsNaN(values.Aperture) || math.IsNaN(values.Pixel) {
		t.Errorf("aperture/pixel must survive an implausible peak: %+v", values)
	}

	// The band is symmetric and exclusive.
	for _, h := range []float64{10000, -10000, 10001, -10001} {
		p.Height = h
		if v := ExtractIntensities(sl, patch, p, params); !math.IsNaN(v.Peak) {
			t.Errorf("height %f: got %f, want NaN", h, v.Peak)
		}
	}
	p.Height = 9999.9
	if v := ExtractIntensities(sl, patch, p, params); math.IsNaN(v.Peak) {
		t.Errorf("height just inside the band rejected")
	}
}

func TestApertureUsesModelNotData(t *testing.T) {
	sl, patch, done := intensityFixture(t)
	defer done()

	params := NewExtractorParams()
	p := FitParams{X0: 7, Y0: 7, Sigma: 1.5, Height: 100, Offset: 0}

	// Expected: model summed over the 5x5 around (7,7), minus the raw
	// side-background window, times the initial scale.
	var modelSum float64
	for r := 5; r <= 9; r++ {
		for c := 5; c <= 9; c++ {
			modelSum += gaussianValue(p, float64(c), float64(r))
		}
	}
	data := sl.Data.DataFloat32()
	var bgSum float64
	for r := 18; r <= 22; r++ {
		for c := 27; c <= 31; c++ {
			bgSum += float64(data[r*40+c])
		}
	}
	want := (modelSum - bgSum) * params.ApertureScale

	values := ExtractIntensities(sl, patch, p, params)
	if math.Abs(values.Aperture-want) > 1e-9 {
		t.Errorf("aperture: got %f, want %f", values.Aperture, want)
	}
}

func TestApertureWindowFollowsFittedCenter(t *testing.T) {
	sl, patch, done := intensityFixture(t)
	defer done()

	params := NewExtractorParams()
	centered := ExtractIntensities(sl, patch, FitParams{X0: 7, Y0: 7, Sigma: 1.5, Height: 100}, params)
	shifted := ExtractIntensities(sl, patch, FitParams{X0: 2.4, Y0: 7, Sigma: 1.5, Height: 100}, params)
	if centered.Aperture == shifted.Aperture {
		t.Errorf("aperture window ignored the fitted center")
	}
}

func TestPixelIsModelAtRoundedCenter(t *testing.T) {
	sl, patch, done := intensityFixture(t)
	defer done()

	p := FitParams{X0: 7.4, Y0: 6.6, Sigma: 1.5, Height: 100, Offset: 2}
	values := ExtractIntensities(sl, patch, p, NewExtractorParams())
	want := gaussianValue(p, 7, 7)
	if values.Pixel != want {
		t.Errorf("pixel: got %f, want %f", values.Pixel, want)
	}
}
