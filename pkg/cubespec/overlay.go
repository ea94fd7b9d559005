package cubespec

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderFieldOverlay writes a PNG preview of one slice with the catalog
// positions marked, for eyeballing whether the catalog and the side
// background windows land where they should.
func RenderFieldOverlay(sl Slice, stars []Star, params *ExtractorParams, outputPath string) error {
	if sl.Data.Empty() {
		return fmt.Errorf("overlay: empty slice")
	}
	img := renderFieldImage(sl, stars, params)

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return png.Encode(f, img)
}

func renderFieldImage(sl Slice, stars []Star, params *ExtractorParams) *image.RGBA {
	width, height := sl.Data.Cols(), sl.Data.Rows()
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Mean +/- 3 sigma grayscale stretch, so a few hot pixels don't
	// flatten the rest of the field.
	data := sl.Data.DataFloat32()
	mean, std := matMeanStdDev(sl.Data)
	lo := mean - 3*std
	hi := mean + 3*std
	scale := 0.0
	if hi > lo {
		scale = 255.0 / (hi - lo)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := uint8(math.Min(255, math.Max(0, (float64(data[y*width+x])-lo)*scale)))
			img.Set(x, y, color.RGBA{g, g, g, 255})
		}
	}

	face := basicfont.Face7x13
	markColor := color.RGBA{80, 220, 80, 255}
	bgColor := color.RGBA{220, 120, 60, 255}
	for _, s := range stars {
		drawCircle(img, s.X, s.Y, params.PatchHalfWidth, markColor)
		drawText(img, face, s.Ident(), s.X+params.PatchHalfWidth+2, s.Y-params.PatchHalfWidth, markColor)

		// Outline the side-background window too.
		half := (params.ApertureSize - 1) / 2
		x0 := s.X + params.BackgroundOffsetX
		y0 := s.Y - half
		drawRect(img, x0, y0, x0+params.ApertureSize-1, y0+params.ApertureSize-1, bgColor)
	}

	return img
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline using the midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

func drawRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y0, c)
		img.Set(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.Set(x0, y, c)
		img.Set(x1, y, c)
	}
}
