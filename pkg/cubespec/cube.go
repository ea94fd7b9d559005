package cubespec

import (
	"errors"
	"fmt"
)

// ErrSliceNotFound reports a wavelength index outside the cube.
var ErrSliceNotFound = errors.New("slice index out of range")

// Slice is one wavelength plane of the cube: co-registered intensity and
// uncertainty over the full spatial field. Slices are transient: the
// caller owns the returned Mats and closes them after use.
type Slice struct {
	Data   Mat
	Uncert Mat
}

// newZeroMat allocates an explicitly zeroed plane. The native backend
// does not guarantee fresh Mats start at zero.
func newZeroMat(rows, cols int) Mat {
	m := NewMatWithSize(rows, cols)
	m.SetToZero()
	return m
}

// SliceSource provides wavelength planes of a datacube.
type SliceSource interface {
	// NumSlices returns the wavelength axis length.
	NumSlices() int
	// Bounds returns the spatial field size.
	Bounds() (width, height int)
	// Slice returns the plane at the given index, or ErrSliceNotFound.
	Slice(index int) (Slice, error)
}

// MemSource is an in-memory SliceSource backed by pre-built Mats. Used by
// tests and synthetic runs.
type MemSource struct {
	width  int
	height int
	data   []Mat
	uncert []Mat
}

// NewMemSource creates an empty in-memory source for the given field size.
func NewMemSource(width, height int) *MemSource {
	return &MemSource{width: width, height: height}
}

// AddSlice appends one plane. The uncertainty buffer may be nil, in which
// case a zero plane is used.
func (s *MemSource) AddSlice(data, uncert []float32) error {
	n := s.width * s.height
	if len(data) != n {
		return fmt.Errorf("slice %d: got %d pixels, want %d", len(s.data), len(data), n)
	}
	s.data = append(s.data, MatFromFloat32(data, s.height, s.width))
	if uncert == nil {
		s.uncert = append(s.uncert, newZeroMat(s.height, s.width))
	} else {
		if len(uncert) != n {
			return fmt.Errorf("uncertainty %d: got %d pixels, want %d", len(s.uncert), len(uncert), n)
		}
		s.uncert = append(s.uncert, MatFromFloat32(uncert, s.height, s.width))
	}
	return nil
}

func (s *MemSource) NumSlices() int { return len(s.data) }

func (s *MemSource) Bounds() (int, int) { return s.width, s.height }

func (s *MemSource) Slice(index int) (Slice, error) {
	if index < 0 || index >= len(s.data) {
		return Slice{}, fmt.Errorf("%w: %d of %d", ErrSliceNotFound, index, len(s.data))
	}
	return Slice{Data: s.data[index].Clone(), Uncert: s.uncert[index].Clone()}, nil
}

// Close releases all planes.
func (s *MemSource) Close() {
	for i := range s.data {
		s.data[i].Close()
		s.uncert[i].Close()
	}
	s.data = nil
	s.uncert = nil
}
