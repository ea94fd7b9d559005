package cubespec

import (
	"math"
	"testing"
)

type synthStar struct {
	x, y   float64
	sigma  float64
	height float64
}

// synthPlane renders Gaussian sources plus a flat offset on a
// width x height field.
func synthPlane(width, height int, offset float64, stars ...synthStar) []float32 {
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := offset
			for _, s := range stars {
				dx := float64(x) - s.x
				dy := float64(y) - s.y
				v += s.height * math.Exp(-(dx*dx+dy*dy)/(2*s.sigma*s.sigma))
			}
			data[y*width+x] = float32(v)
		}
	}
	return data
}

// synthSource builds an in-memory cube of n identical planes.
func synthSource(t *testing.T, width, height, n int, offset float64, stars ...synthStar) *MemSource {
	t.Helper()
	src := NewMemSource(width, height)
	plane := synthPlane(width, height, offset, stars...)
	for i := 0; i < n; i++ {
		if err := src.AddSlice(plane, nil); err != nil {
			t.Fatalf("AddSlice: %v", err)
		}
	}
	return src
}

// synthPatch builds a SubImage directly, bypassing extraction.
func synthPatch(size int, offset float64, stars ...synthStar) SubImage {
	data := synthPlane(size, size, offset, stars...)
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return SubImage{
		Data:   out,
		Uncert: make([]float64, len(data)),
		Size:   size,
		X0:     size / 2,
		Y0:     size / 2,
	}
}

func countPresent(seq []float64) int {
	n := 0
	for _, v := range seq {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
