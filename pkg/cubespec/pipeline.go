package cubespec

import (
	"fmt"
	"math"
	"sync"
)

// StarResult is one star's finished spectrum set.
type StarResult struct {
	Star        Star
	Wavelengths []float64
	Spectra     map[Method][]float64
	Stats       []GoodnessStats
	Cached      bool    // loaded from cache instead of computed
	Factor      float64 // applied peak/aperture calibration (1 on reload)
	Outliers    int     // values blanked by the z-score filter
	Tally       Tally   // zero-valued on the reload path
}

// Present counts the non-missing entries of one method sequence.
func (r *StarResult) Present(m Method) int {
	n := 0
	for _, v := range r.Spectra[m] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Pipeline drives spectrum extraction for catalog stars against one
// slice source and one cache directory.
type Pipeline struct {
	Source SliceSource
	Cache  *FitResultCache
	Params *ExtractorParams
	Axis   WavelengthAxis
}

// RunStar processes one star: cache-hit stars load, pad and re-filter;
// uncached stars run the full per-index loop, then filter, calibrate and
// persist. The calibration factor is computed and applied only on the
// fresh-compute path; reloaded aperture sequences are assumed already
// calibrated by the run that persisted them.
func (p *Pipeline) RunStar(star Star) (*StarResult, error) {
	n := p.Source.NumSlices()
	res := &StarResult{
		Star:        star,
		Wavelengths: p.Axis.Values(n),
		Factor:      1,
	}

	if p.Cache != nil && p.Cache.Complete(star.Ident()) {
		spectra, stats, err := p.Cache.Load(star.Ident())
		if err != nil {
			return nil, fmt.Errorf("star %s: loading cache: %w", star, err)
		}
		for _, m := range Methods {
			spectra[m] = PadToLength(spectra[m], n)
			res.Outliers += FilterOutliers(spectra[m], p.Params.ZScoreCut)
		}
		res.Spectra = spectra
		res.Stats = PadStats(stats, n)
		res.Cached = true
		return res, nil
	}

	asm := AssembleStar(p.Source, star, p.Params)
	for _, m := range Methods {
		asm.Spectra[m] = PadToLength(asm.Spectra[m], n)
		res.Outliers += FilterOutliers(asm.Spectra[m], p.Params.ZScoreCut)
	}

	if factor, ok := CalibrationFactor(asm.Spectra[MethodPeak], asm.Spectra[MethodAperture]); ok {
		ApplyCalibration(asm.Spectra[MethodAperture], factor)
		res.Factor = factor
	}

	if p.Cache != nil {
		if err := p.Cache.Store(star.Ident(), asm.Spectra, asm.Stats); err != nil {
			return nil, fmt.Errorf("star %s: persisting: %w", star, err)
		}
	}

	res.Spectra = asm.Spectra
	res.Stats = PadStats(asm.Stats, n)
	res.Tally = asm.Tally
	return res, nil
}

// Run processes the catalog. Stars share no mutable state, so they may
// fan out across goroutines; wavelength indices within a star stay
// strictly ordered.
func (p *Pipeline) Run(stars []Star, parallel bool) ([]*StarResult, error) {
	results := make([]*StarResult, len(stars))
	errs := make([]error, len(stars))

	if !parallel {
		for i, star := range stars {
			results[i], errs[i] = p.RunStar(star)
		}
	} else {
		var wg sync.WaitGroup
		for i, star := range stars {
			wg.Add(1)
			go func(i int, s Star) {
				defer wg.Done()
				results[i], errs[i] = p.RunStar(s)
			}(i, star)
		}
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
