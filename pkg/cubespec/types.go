package cubespec

import (
	"fmt"
	"math"
)

// Method identifies one of the three per-slice intensity estimators.
type Method int

const (
	MethodPeak Method = iota
	MethodAperture
	MethodPixel
)

func (m Method) String() string {
	switch m {
	case MethodPeak:
		return "peak"
	case MethodAperture:
		return "aperture"
	case MethodPixel:
		return "pixel"
	default:
		return "unknown"
	}
}

// Methods lists the estimators in their canonical order.
var Methods = []Method{MethodPeak, MethodAperture, MethodPixel}

// FailReason tags why a single wavelength index produced no value.
// All reasons are local to one index; none aborts a star's pipeline.
type FailReason int

const (
	FailNone FailReason = iota
	FailOutOfBounds
	FailShapeMismatch
	FailFitDivergence
	FailImplausibleValue
	FailSliceLoad
)

func (r FailReason) String() string {
	switch r {
	case FailNone:
		return "none"
	case FailOutOfBounds:
		return "out-of-bounds"
	case FailShapeMismatch:
		return "shape-mismatch"
	case FailFitDivergence:
		return "fit-divergence"
	case FailImplausibleValue:
		return "implausible-value"
	case FailSliceLoad:
		return "slice-load"
	default:
		return "unknown"
	}
}

// Star is one catalog entry: a fixed integer pixel position in the field.
type Star struct {
	ID string
	X  int
	Y  int
}

// Ident returns the cache key for the star. Falls back to the pixel
// position when the catalog carries no explicit identifier.
func (s Star) Ident() string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("%d_%d", s.X, s.Y)
}

func (s Star) String() string {
	return fmt.Sprintf("%s(%d,%d)", s.Ident(), s.X, s.Y)
}

// FitParams holds the five fitted Gaussian parameters. X0/Y0 are
// patch-local fractional pixel coordinates.
type FitParams struct {
	X0     float64
	Y0     float64
	Sigma  float64
	Height float64
	Offset float64
}

// GoodnessStats summarizes fit quality for one wavelength index. A missing
// fit carries NaN in every field.
type GoodnessStats struct {
	ChiSquared        float64
	ReducedChiSquared float64
	RSquared          float64
}

func missingGoodness() GoodnessStats {
	nan := math.NaN()
	return GoodnessStats{ChiSquared: nan, ReducedChiSquared: nan, RSquared: nan}
}

// Missing reports whether the stats belong to a failed index.
func (g GoodnessStats) Missing() bool {
	return math.IsNaN(g.ChiSquared)
}

// Intensities holds the three estimator values for one index. NaN marks a
// missing value; the three fields are independent, so a peak rejected by
// the plausibility band leaves aperture and pixel intact.
type Intensities struct {
	Peak     float64
	Aperture float64
	Pixel    float64
}

func missingIntensities() Intensities {
	nan := math.NaN()
	return Intensities{Peak: nan, Aperture: nan, Pixel: nan}
}

// Value returns the intensity for the given method.
func (v Intensities) Value(m Method) float64 {
	switch m {
	case MethodPeak:
		return v.Peak
	case MethodAperture:
		return v.Aperture
	default:
		return v.Pixel
	}
}

// ExtractorParams contains all tunables of the extraction pipeline.
type ExtractorParams struct {
	PatchHalfWidth    int     // patch spans 2*half+1 pixels per axis
	CornerBlockSize   int     // corner block edge for the noise sample
	ApertureSize      int     // model aperture window edge
	BackgroundOffsetX int     // side-background column offset from the star
	ApertureScale     float64 // fixed initial scale on the net aperture sum
	HeightBound       float64 // accepted peak heights lie strictly inside (-b, +b)
	ZScoreCut         float64 // outlier rejection threshold
	ExcludedLo        int     // excluded wavelength band, inclusive; disabled when Hi < Lo
	ExcludedHi        int
	MaxIterations     int     // solver iteration cap
	ObjectiveTol      float64 // solver objective tolerance
}

// NewExtractorParams creates ExtractorParams with default values.
func NewExtractorParams() *ExtractorParams {
	return &ExtractorParams{
		PatchHalfWidth:    7,
		CornerBlockSize:   3,
		ApertureSize:      5,
		BackgroundOffsetX: 7,
		ApertureScale:     0.2,
		HeightBound:       10000,
		ZScoreCut:         3.0,
		ExcludedLo:        -1,
		ExcludedHi:        -1,
		MaxIterations:     200,
		ObjectiveTol:      1e-16,
	}
}

// PatchSize returns the patch edge length in pixels.
func (p *ExtractorParams) PatchSize() int {
	return 2*p.PatchHalfWidth + 1
}

// Excluded reports whether the index falls in the contaminated band.
func (p *ExtractorParams) Excluded(index int) bool {
	return p.ExcludedLo <= p.ExcludedHi && index >= p.ExcludedLo && index <= p.ExcludedHi
}

// Tally tracks per-star index accounting across the assembly loop.
type Tally struct {
	Fitted   int
	Excluded int
	Failures map[FailReason]int
}

func newTally() Tally {
	return Tally{Failures: make(map[FailReason]int)}
}

func (t *Tally) fail(r FailReason) {
	t.Failures[r]++
}

// Failed returns the total number of failed indices.
func (t Tally) Failed() int {
	n := 0
	for _, c := range t.Failures {
		n += c
	}
	return n
}
