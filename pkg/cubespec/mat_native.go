//go:build !purego && !js

package cubespec

import (
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps gocv.Mat for the native OpenCV backend.
type Mat struct {
	m gocv.Mat
}

func NewMatWithSize(rows, cols int) Mat {
	return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)}
}
func (mat Mat) Rows() int                    { return mat.m.Rows() }
func (mat Mat) Cols() int                    { return mat.m.Cols() }
func (mat Mat) Empty() bool                  { return mat.m.Empty() }
func (mat Mat) Clone() Mat                   { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()                      { mat.m.Close() }
func (mat Mat) Region(r image.Rectangle) Mat { return Mat{m: mat.m.Region(r)} }

// MatFromFloat32 copies a row-major float32 buffer into a new Mat.
func MatFromFloat32(data []float32, rows, cols int) Mat {
	m := NewMatWithSize(rows, cols)
	dst, _ := m.m.DataPtrFloat32()
	copy(dst, data[:rows*cols])
	return m
}

func (mat Mat) DataFloat32() []float32 {
	data, _ := mat.m.DataPtrFloat32()
	return data
}

func (mat *Mat) SetToZero() {
	mat.m.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

func matMeanStdDev(src Mat) (float64, float64) {
	meanMat := gocv.NewMat()
	defer meanMat.Close()
	stdMat := gocv.NewMat()
	defer stdMat.Close()
	gocv.MeanStdDev(src.m, &meanMat, &stdMat)
	return meanMat.GetDoubleAt(0, 0), stdMat.GetDoubleAt(0, 0)
}
