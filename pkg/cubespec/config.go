package cubespec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

/* Example config file ...

cubepath: ngc330_cube.fits
uncertaintypath: ngc330_uncert.fits
cachedir: cache
outputdir: out
parallel: true

axis:
  refwavelength: 4750.0
  refpixel: 0
  step: 1.25

excluded:
  lo: 612
  hi: 648

heightbound: 10000
aperturescale: 0.2
zscorecut: 3.0
patchhalfwidth: 7

catalog:
  - id: star_a
    x: 118
    y: 204
  - x: 61
    y: 87

*/

// CatalogEntry is one star position in the config file.
type CatalogEntry struct {
	ID string
	X  int
	Y  int
}

// AxisConfig carries the three wavelength-axis constants.
type AxisConfig struct {
	RefWavelength float64
	RefPixel      float64
	Step          float64
}

// BandConfig is an inclusive excluded index range.
type BandConfig struct {
	Lo int
	Hi int
}

// Configuration is one extraction run, loaded from YAML.
type Configuration struct {
	CubePath        string
	UncertaintyPath string
	CacheDir        string
	OutputDir       string
	Parallel        bool

	Axis     AxisConfig
	Excluded BandConfig

	HeightBound    float64
	ApertureScale  float64
	ZScoreCut      float64
	PatchHalfWidth int

	Catalog []CatalogEntry
}

func NewConfiguration() Configuration {
	return Configuration{
		CacheDir:  "cache",
		OutputDir: ".",
		Excluded:  BandConfig{Lo: -1, Hi: -1},
	}
}

func LoadConfiguration(filename string) (Configuration, error) {
	c := NewConfiguration()

	contents, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, c.Finalize()
}

// Finalize applies defaults and sanity checks.
func (c *Configuration) Finalize() error {
	defaults := NewExtractorParams()
	if c.HeightBound == 0 {
		c.HeightBound = defaults.HeightBound
	}
	if c.ApertureScale == 0 {
		c.ApertureScale = defaults.ApertureScale
	}
	if c.ZScoreCut == 0 {
		c.ZScoreCut = defaults.ZScoreCut
	}
	if c.PatchHalfWidth == 0 {
		c.PatchHalfWidth = defaults.PatchHalfWidth
	}

	if c.PatchHalfWidth < 3 {
		return fmt.Errorf("patchhalfwidth %d too small for corner noise blocks", c.PatchHalfWidth)
	}
	if c.HeightBound <= 0 {
		return fmt.Errorf("heightbound must be positive, got %f", c.HeightBound)
	}
	if c.Axis.Step == 0 && c.Axis.RefWavelength != 0 {
		return fmt.Errorf("axis step must be non-zero")
	}
	if c.Excluded.Lo >= 0 && c.Excluded.Hi < c.Excluded.Lo {
		return fmt.Errorf("excluded band [%d, %d] is not ordered", c.Excluded.Lo, c.Excluded.Hi)
	}
	if len(c.Catalog) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	return nil
}

// ExtractorParams builds the pipeline tunables from the config.
func (c *Configuration) ExtractorParams() *ExtractorParams {
	p := NewExtractorParams()
	p.PatchHalfWidth = c.PatchHalfWidth
	p.HeightBound = c.HeightBound
	p.ApertureScale = c.ApertureScale
	p.ZScoreCut = c.ZScoreCut
	p.ExcludedLo = c.Excluded.Lo
	p.ExcludedHi = c.Excluded.Hi
	return p
}

// WavelengthAxis builds the axis from the config constants. A zero step
// falls back to the identity axis.
func (c *Configuration) WavelengthAxis() WavelengthAxis {
	if c.Axis.Step == 0 {
		return WavelengthAxis{Step: 1}
	}
	return WavelengthAxis{Ref: c.Axis.RefWavelength, RefPixel: c.Axis.RefPixel, Step: c.Axis.Step}
}

// Stars converts the catalog entries.
func (c *Configuration) Stars() []Star {
	stars := make([]Star, len(c.Catalog))
	for i, e := range c.Catalog {
		stars[i] = Star{ID: e.ID, X: e.X, Y: e.Y}
	}
	return stars
}
