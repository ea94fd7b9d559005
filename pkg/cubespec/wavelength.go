package cubespec

// WavelengthAxis maps slice indices to wavelengths with the linear
// convention used by cube headers (CRVAL3/CRPIX3/CDELT3).
type WavelengthAxis struct {
	Ref      float64 // wavelength at the reference pixel
	RefPixel float64 // reference pixel, in index units
	Step     float64 // wavelength increment per index
}

// Value returns the wavelength at the given slice index:
// ref + (i - refPixel) * step.
func (a WavelengthAxis) Value(index int) float64 {
	return a.Ref + (float64(index)-a.RefPixel)*a.Step
}

// Values materializes the axis for n slices.
func (a WavelengthAxis) Values(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = a.Value(i)
	}
	return out
}
