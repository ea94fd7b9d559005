package cubespec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CubeHeader holds the parsed FITS header keys of a datacube.
type CubeHeader struct {
	Headers map[string]string
}

func newCubeHeader() *CubeHeader {
	return &CubeHeader{Headers: make(map[string]string)}
}

func (h *CubeHeader) GetString(key string) string {
	if v, ok := h.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (h *CubeHeader) GetDouble(key string) (float64, bool) {
	v, ok := h.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Axis derives the linear wavelength axis from the spectral WCS keys.
// Missing keys fall back to an identity axis (wavelength == index).
func (h *CubeHeader) Axis() WavelengthAxis {
	ref, okV := h.GetDouble("CRVAL3")
	refPix, okP := h.GetDouble("CRPIX3")
	step, okD := h.GetDouble("CDELT3")
	if !okV || !okD {
		return WavelengthAxis{Ref: 0, RefPixel: 0, Step: 1}
	}
	if !okP {
		refPix = 1
	}
	// FITS CRPIX is 1-based; slice indices are 0-based.
	return WavelengthAxis{Ref: ref, RefPixel: refPix - 1, Step: step}
}

// CubeSource is a SliceSource backed by a FITS datacube loaded into
// memory, with an optional co-registered uncertainty cube.
type CubeSource struct {
	width  int
	height int
	depth  int
	data   []float32
	uncert []float32 // nil when no uncertainty cube was given
	header *CubeHeader
}

// OpenCube reads a NAXIS=3 FITS datacube. uncertPath may be empty; when
// given, the uncertainty cube must match the data cube's dimensions.
func OpenCube(dataPath, uncertPath string) (*CubeSource, error) {
	c, err := readCubeFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("reading cube %s: %w", dataPath, err)
	}
	if uncertPath != "" {
		u, err := readCubeFile(uncertPath)
		if err != nil {
			return nil, fmt.Errorf("reading uncertainty cube %s: %w", uncertPath, err)
		}
		if u.width != c.width || u.height != c.height || u.depth != c.depth {
			return nil, fmt.Errorf("uncertainty cube %dx%dx%d does not match data cube %dx%dx%d",
				u.width, u.height, u.depth, c.width, c.height, c.depth)
		}
		c.uncert = u.data
	}
	return c, nil
}

func (c *CubeSource) NumSlices() int { return c.depth }

func (c *CubeSource) Bounds() (int, int) { return c.width, c.height }

// Header exposes the parsed FITS header of the data cube.
func (c *CubeSource) Header() *CubeHeader { return c.header }

func (c *CubeSource) Slice(index int) (Slice, error) {
	if index < 0 || index >= c.depth {
		return Slice{}, fmt.Errorf("%w: %d of %d", ErrSliceNotFound, index, c.depth)
	}
	plane := c.width * c.height
	data := MatFromFloat32(c.data[index*plane:(index+1)*plane], c.height, c.width)
	var uncert Mat
	if c.uncert != nil {
		uncert = MatFromFloat32(c.uncert[index*plane:(index+1)*plane], c.height, c.width)
	} else {
		uncert = newZeroMat(c.height, c.width)
	}
	return Slice{Data: data, Uncert: uncert}, nil
}

func readCubeFile(path string) (*CubeSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readCubeFromReader(f)
}

// ReadCubeFromBytes parses a FITS datacube from a byte slice.
func ReadCubeFromBytes(data []byte) (*CubeSource, error) {
	return readCubeFromReader(bytes.NewReader(data))
}

func readCubeFromReader(r io.Reader) (*CubeSource, error) {

	var bitpix, naxis, width, height, depth int
	bzero := 0.0
	bscale := 1.0
	headerDone := false
	header := newCubeHeader()

	recordBuf := make([]byte, 80)

	for !headerDone {
		for i := 0; i < 36; i++ {
			_, err := io.ReadFull(r, recordBuf)
			if err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				remaining := 35 - i
				if remaining > 0 {
					skipBuf := make([]byte, remaining*80)
					io.ReadFull(r, skipBuf)
				}
				break
			}

			if len(record) > 10 && record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				parsedValue := parseHeaderValue(rawValue)

				if keyword != "" && parsedValue != "" {
					header.Headers[strings.ToUpper(keyword)] = parsedValue
				}

				switch keyword {
				case "BITPIX":
					bitpix, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS":
					naxis, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS1":
					width, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS2":
					height, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "NAXIS3":
					depth, _ = strconv.Atoi(strings.TrimSpace(rawValue))
				case "BZERO":
					bzero, _ = strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
				case "BSCALE":
					bscale, _ = strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
				}
			}
		}
	}

	if naxis < 3 || width == 0 || height == 0 || depth == 0 {
		return nil, fmt.Errorf("not a datacube: NAXIS=%d, NAXIS1=%d, NAXIS2=%d, NAXIS3=%d",
			naxis, width, height, depth)
	}

	numPixels := width * height * depth
	pixels := make([]float32, numPixels)

	// Physical values are kept as signed floats; spectral fitting needs
	// negative residual pixels, so there is no display clamp here.
	switch bitpix {
	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -32 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intBits := binary.BigEndian.Uint32(rawBytes[i*4:])
			floatVal := math.Float32frombits(intBits)
			pixels[i] = float32(float64(floatVal)*bscale + bzero)
		}

	case -64:
		rawBytes := make([]byte, numPixels*8)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -64 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intBits := binary.BigEndian.Uint64(rawBytes[i*8:])
			floatVal := math.Float64frombits(intBits)
			pixels[i] = float32(floatVal*bscale + bzero)
		}

	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			signedVal := int16(binary.BigEndian.Uint16(rawBytes[i*2:]))
			pixels[i] = float32(float64(signedVal)*bscale + bzero)
		}

	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intVal := int32(binary.BigEndian.Uint32(rawBytes[i*4:]))
			pixels[i] = float32(float64(intVal)*bscale + bzero)
		}

	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	return &CubeSource{
		width:  width,
		height: height,
		depth:  depth,
		data:   pixels,
		header: header,
	}, nil
}

func parseHeaderValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}
