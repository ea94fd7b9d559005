package cubespec

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// SubImage is a square patch around a star for one wavelength slice,
// promoted to float64 for fitting precision. Data and Uncert are row-major
// Size x Size buffers; X0/Y0 are the star's field coordinates.
type SubImage struct {
	Data   []float64
	Uncert []float64
	Size   int
	X0     int
	Y0     int
}

// At returns the patch value at patch-local (row, col).
func (p SubImage) At(row, col int) float64 {
	return p.Data[row*p.Size+col]
}

// ExtractSubImage crops a (2*half+1) square patch centered on the star
// from the slice and its uncertainty plane. The bounds are checked before
// slicing; a patch that would cross any field edge fails with
// FailOutOfBounds, and a post-crop size mismatch with FailShapeMismatch.
func ExtractSubImage(sl Slice, star Star, half int) (SubImage, FailReason) {
	size := 2*half + 1
	width, height := sl.Data.Cols(), sl.Data.Rows()

	if star.X-half < 0 || star.Y-half < 0 || star.X+half >= width || star.Y+half >= height {
		return SubImage{}, FailOutOfBounds
	}

	rect := image.Rect(star.X-half, star.Y-half, star.X+half+1, star.Y+half+1)
	data := cropToFloat64(sl.Data, rect)
	uncert := cropToFloat64(sl.Uncert, rect)
	if len(data) != size*size || len(uncert) != size*size {
		return SubImage{}, FailShapeMismatch
	}

	return SubImage{Data: data, Uncert: uncert, Size: size, X0: star.X, Y0: star.Y}, FailNone
}

func cropToFloat64(m Mat, rect image.Rectangle) []float64 {
	region := m.Region(rect)
	patch := region.Clone()
	defer patch.Close()
	defer region.Close()

	src := patch.DataFloat32()
	n := patch.Rows() * patch.Cols()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(src[i])
	}
	return out
}

// EstimateNoise pools the four corner blocks of the patch, assumed
// star-free, and returns the standard deviation of the pooled sample.
// This local empirical estimate is the uniform residual weight for the
// fit; the cube's propagated per-pixel uncertainty is deliberately not
// mixed in.
func EstimateNoise(patch SubImage, block int) float64 {
	sample := make([]float64, 0, 4*block*block)
	lo := 0
	hi := patch.Size - block
	for _, corner := range [][2]int{{lo, lo}, {lo, hi}, {hi, lo}, {hi, hi}} {
		for r := corner[0]; r < corner[0]+block; r++ {
			for c := corner[1]; c < corner[1]+block; c++ {
				sample = append(sample, patch.At(r, c))
			}
		}
	}
	return stat.StdDev(sample, nil)
}
