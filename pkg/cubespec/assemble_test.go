package cubespec

import (
	"math"
	"testing"
)

func TestAssembleStarLengthsAlwaysEqual(t *testing.T) {
	src := synthSource(t, 40, 40, 8, 1.0, synthStar{x: 20, y: 20, sigma: 1.5, height: 60})
	defer src.Close()

	asm := AssembleStar(src, Star{X: 20, Y: 20}, NewExtractorParams())
	for _, m := range Methods {
		if len(asm.Spectra[m]) != 8 {
			t.Errorf("%s: got %d entries, want 8", m, len(asm.Spectra[m]))
		}
	}
	if len(asm.Stats) != 8 {
		t.Errorf("stats: got %d entries, want 8", len(asm.Stats))
	}
	if asm.Tally.Fitted != 8 {
		t.Errorf("fitted: got %d, want 8", asm.Tally.Fitted)
	}
}

func TestAssembleStarExcludedBand(t *testing.T) {
	src := synthSource(t, 40, 40, 10, 1.0, synthStar{x: 20, y: 20, sigma: 1.5, height: 60})
	defer src.Close()

	params := NewExtractorParams()
	params.ExcludedLo = 3
	params.ExcludedHi = 5
	asm := AssembleStar(src, Star{X: 20, Y: 20}, params)

	for i := 0; i < 10; i++ {
		excluded := i >= 3 && i <= 5
		for _, m := range Methods {
			if got := math.IsNaN(asm.Spectra[m][i]); got != excluded {
				t.Errorf("index %d %s: missing=%v, want %v", i, m, got, excluded)
			}
		}
		if got := asm.Stats[i].Missing(); got != excluded {
			t.Errorf("index %d stats: missing=%v, want %v", i, got, excluded)
		}
	}
	if asm.Tally.Excluded != 3 {
		t.Errorf("excluded tally: got %d, want 3", asm.Tally.Excluded)
	}
	if asm.Tally.Fitted != 7 {
		t.Errorf("fitted tally: got %d, want 7", asm.Tally.Fitted)
	}
}

func TestAssembleStarEdgeStarAllMissing(t *testing.T) {
	src := synthSource(t, 40, 40, 6, 1.0, synthStar{x: 3, y: 3, sigma: 1.5, height: 60})
	defer src.Close()

	asm := AssembleStar(src, Star{X: 3, Y: 3}, NewExtractorParams())
	for _, m := range Methods {
		if n := countPresent(asm.Spectra[m]); n != 0 {
			t.Errorf("%s: %d present values for an edge star, want 0", m, n)
		}
	}
	if got := asm.Tally.Failures[FailOutOfBounds]; got != 6 {
		t.Errorf("out-of-bounds tally: got %d, want 6", got)
	}
	if asm.Tally.Fitted != 0 {
		t.Errorf("fitted tally: got %d, want 0", asm.Tally.Fitted)
	}
}

func TestAssembleStarImplausiblePeakBlanksPeakOnly(t *testing.T) {
	src := synthSource(t, 40, 40, 4, 1.0, synthStar{x: 20, y: 20, sigma: 1.5, height: 100})
	defer src.Close()

	params := NewExtractorParams()
	params.HeightBound = 50 // the synthetic source fits at ~100
	asm := AssembleStar(src, Star{X: 20, Y: 20}, params)

	if n := countPresent(asm.Spectra[MethodPeak]); n != 0 {
		t.Errorf("peak: %d present, want 0 with bound 50", n)
	}
	if n := countPresent(asm.Spectra[MethodAperture]); n != 4 {
		t.Errorf("aperture: %d present, want 4", n)
	}
	if n := countPresent(asm.Spectra[MethodPixel]); n != 4 {
		t.Errorf("pixel: %d present, want 4", n)
	}
	for i := range asm.Stats {
		if asm.Stats[i].Missing() {
			t.Errorf("stats %d missing despite a successful fit", i)
		}
	}
	if got := asm.Tally.Failures[FailImplausibleValue]; got != 4 {
		t.Errorf("implausible tally: got %d, want 4", got)
	}
}

func TestAssembleStarDeterministic(t *testing.T) {
	src := synthSource(t, 40, 40, 5, 2.0, synthStar{x: 19.6, y: 20.3, sigma: 1.7, height: 75})
	defer src.Close()

	star := Star{X: 20, Y: 20}
	params := NewExtractorParams()
	first := AssembleStar(src, star, params)
	second := AssembleStar(src, star, params)

	for _, m := range Methods {
		for i := range first.Spectra[m] {
			a, b := first.Spectra[m][i], second.Spectra[m][i]
			if a != b && !(math.IsNaN(a) && math.IsNaN(b)) {
				t.Errorf("%s[%d]: %g vs %g", m, i, a, b)
			}
		}
	}
	for i := range first.Stats {
		if first.Stats[i] != second.Stats[i] && !first.Stats[i].Missing() {
			t.Errorf("stats[%d] differ: %+v vs %+v", i, first.Stats[i], second.Stats[i])
		}
	}
}

func TestPadToLength(t *testing.T) {
	seq := PadToLength([]float64{1, 2}, 5)
	if len(seq) != 5 {
		t.Fatalf("got %d entries, want 5", len(seq))
	}
	if seq[0] != 1 || seq[1] != 2 {
		t.Errorf("padding clobbered existing values: %v", seq)
	}
	for _, v := range seq[2:] {
		if !math.IsNaN(v) {
			t.Errorf("pad value not NaN: %v", seq)
		}
	}

	if got := PadToLength([]float64{1, 2, 3}, 2); len(got) != 3 {
		t.Errorf("padding must never truncate: %v", got)
	}
}
