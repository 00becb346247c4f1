package pdf

import (
	"fmt"
	"image"
	"math"
)

// raster describes uncompressed image samples as stored in a PDF stream.
// Decode holds the image's /Decode ranges, one pair per component; nil
// means the default mapping.
type raster struct {
	Width  int
	Height int
	BPC    int
	Space  colorSpace
	Decode []float64
}

func (r raster) rowBytes() int {
	return (r.Width*r.Space.Components()*r.BPC + 7) / 8
}

// maxSample is the largest value sampleAt can return for the raster depth.
func (r raster) maxSample() int {
	if r.BPC >= 8 {
		return 255
	}
	return 1<<r.BPC - 1
}

// decodeSamples turns packed PDF image samples into an image. Rows start on
// byte boundaries; 16 bit samples keep their high byte. Samples are mapped
// through the /Decode ranges before they become pixels.
func decodeSamples(data []byte, r raster) (image.Image, error) {
	switch r.BPC {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("%w: %d bits per component", ErrUnsupportedImage, r.BPC)
	}
	if err := checkImageBounds(r.Width, r.Height); err != nil {
		return nil, err
	}

	n := r.Space.Components()
	if r.Decode != nil && len(r.Decode) != 2*n {
		return nil, fmt.Errorf("%w: /Decode has %d entries, want %d", ErrImageDecode, len(r.Decode), 2*n)
	}

	stride := r.rowBytes()
	if need := stride * r.Height; len(data) < need {
		return nil, fmt.Errorf("%w: have %d bytes of samples, need %d", ErrImageDecode, len(data), need)
	}

	rect := image.Rect(0, 0, r.Width, r.Height)

	switch r.Space.Model {
	case modelGray:
		lut := sampleTables(r)
		img := image.NewGray(rect)
		for y := 0; y < r.Height; y++ {
			row := data[y*stride : (y+1)*stride]
			for x := 0; x < r.Width; x++ {
				img.Pix[y*img.Stride+x] = lut[0][sampleAt(row, x, r.BPC)]
			}
		}
		return img, nil

	case modelRGB:
		lut := sampleTables(r)
		img := image.NewRGBA(rect)
		for y := 0; y < r.Height; y++ {
			row := data[y*stride : (y+1)*stride]
			for x := 0; x < r.Width; x++ {
				o := y*img.Stride + x*4
				for c := 0; c < 3; c++ {
					img.Pix[o+c] = lut[c][sampleAt(row, x*n+c, r.BPC)]
				}
				img.Pix[o+3] = 0xff
			}
		}
		return img, nil

	case modelCMYK:
		lut := sampleTables(r)
		img := image.NewCMYK(rect)
		for y := 0; y < r.Height; y++ {
			row := data[y*stride : (y+1)*stride]
			for x := 0; x < r.Width; x++ {
				o := y*img.Stride + x*4
				for c := 0; c < 4; c++ {
					img.Pix[o+c] = lut[c][sampleAt(row, x*n+c, r.BPC)]
				}
			}
		}
		return img, nil

	case modelIndexed:
		if len(r.Space.Palette) == 0 {
			return nil, fmt.Errorf("%w: empty palette", ErrImageDecode)
		}
		if r.BPC == 16 {
			return nil, fmt.Errorf("%w: 16 bit indexed samples", ErrImageDecode)
		}
		index := indexTable(r, len(r.Space.Palette)-1)
		img := image.NewRGBA(rect)
		for y := 0; y < r.Height; y++ {
			row := data[y*stride : (y+1)*stride]
			for x := 0; x < r.Width; x++ {
				img.SetRGBA(x, y, r.Space.Palette[index[sampleAt(row, x, r.BPC)]])
			}
		}
		return img, nil
	}

	return nil, fmt.Errorf("%w: color model %d", ErrUnsupportedImage, r.Space.Model)
}

// sampleTables maps every possible sample of each component to 0..255,
// applying the component's /Decode range (default [0 1]).
func sampleTables(r raster) [][]uint8 {
	maxVal := r.maxSample()
	tables := make([][]uint8, r.Space.Components())
	for c := range tables {
		dmin, dmax := 0.0, 1.0
		if r.Decode != nil {
			dmin, dmax = r.Decode[2*c], r.Decode[2*c+1]
		}
		t := make([]uint8, maxVal+1)
		for v := range t {
			x := dmin + float64(v)*(dmax-dmin)/float64(maxVal)
			t[v] = uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
		}
		tables[c] = t
	}
	return tables
}

// indexTable maps samples to palette indices through the /Decode range
// (default [0 2^bpc-1]), clamped to the palette.
func indexTable(r raster, last int) []int {
	maxVal := r.maxSample()
	dmin, dmax := 0.0, float64(maxVal)
	if r.Decode != nil {
		dmin, dmax = r.Decode[0], r.Decode[1]
	}
	t := make([]int, maxVal+1)
	for v := range t {
		idx := int(math.Round(dmin + float64(v)*(dmax-dmin)/float64(maxVal)))
		t[v] = min(max(idx, 0), last)
	}
	return t
}

// sampleAt returns the i-th sample of a row. For 16 bit samples only the
// high byte is returned.
func sampleAt(row []byte, i, bpc int) uint8 {
	switch bpc {
	case 8:
		return row[i]
	case 16:
		return row[i*2]
	}
	bit := i * bpc
	shift := 8 - bpc - bit%8
	mask := byte(1<<bpc - 1)
	return (row[bit/8] >> shift) & mask
}
