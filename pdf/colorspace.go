package pdf

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

type colorModel int

const (
	modelGray colorModel = iota
	modelRGB
	modelCMYK
	modelIndexed
)

// colorSpace is the subset of PDF color spaces image samples can be decoded from.
type colorSpace struct {
	Model   colorModel
	Palette []color.RGBA // Indexed only
}

// Components returns the number of samples per pixel.
func (cs colorSpace) Components() int {
	switch cs.Model {
	case modelRGB:
		return 3
	case modelCMYK:
		return 4
	default:
		return 1
	}
}

func deviceSpace(components int) (colorSpace, error) {
	switch components {
	case 1:
		return colorSpace{Model: modelGray}, nil
	case 3:
		return colorSpace{Model: modelRGB}, nil
	case 4:
		return colorSpace{Model: modelCMYK}, nil
	}
	return colorSpace{}, fmt.Errorf("%w: %d color components", ErrUnsupportedImage, components)
}

func (d *Document) resolveColorSpace(obj types.Object) (colorSpace, error) {
	if obj == nil {
		return colorSpace{}, fmt.Errorf("%w: missing color space", ErrImageDecode)
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return colorSpace{}, fmt.Errorf("%w: color space: %v", ErrImageDecode, err)
	}

	switch v := obj.(type) {
	case types.Name:
		return namedSpace(string(v))
	case types.Array:
		if len(v) == 0 {
			return colorSpace{}, fmt.Errorf("%w: empty color space array", ErrImageDecode)
		}
		family, ok := v[0].(types.Name)
		if !ok {
			return colorSpace{}, fmt.Errorf("%w: malformed color space", ErrImageDecode)
		}
		switch string(family) {
		case csCalGray, csCalRGB, csDeviceGray, csDeviceRGB, csDeviceCMYK:
			return namedSpace(string(family))
		case csICCBased:
			return d.iccSpace(v)
		case csIndexed:
			return d.indexedSpace(v)
		}
		return colorSpace{}, fmt.Errorf("%w: color space %s", ErrUnsupportedImage, family)
	}

	return colorSpace{}, fmt.Errorf("%w: color space %T", ErrUnsupportedImage, obj)
}

func namedSpace(name string) (colorSpace, error) {
	switch name {
	case csDeviceGray, csCalGray:
		return colorSpace{Model: modelGray}, nil
	case csDeviceRGB, csCalRGB:
		return colorSpace{Model: modelRGB}, nil
	case csDeviceCMYK:
		return colorSpace{Model: modelCMYK}, nil
	}
	return colorSpace{}, fmt.Errorf("%w: color space %s", ErrUnsupportedImage, name)
}

// iccSpace maps [/ICCBased stream] onto the device space with the same
// number of components. The profile itself is ignored.
func (d *Document) iccSpace(arr types.Array) (colorSpace, error) {
	if len(arr) < 2 {
		return colorSpace{}, fmt.Errorf("%w: ICCBased without profile", ErrImageDecode)
	}
	obj, err := d.ctx.Dereference(arr[1])
	if err != nil {
		return colorSpace{}, fmt.Errorf("%w: ICC profile: %v", ErrImageDecode, err)
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return colorSpace{}, fmt.Errorf("%w: ICC profile is not a stream", ErrImageDecode)
	}
	if n := d.intEntry(sd.Dict, "N"); n > 0 {
		return deviceSpace(n)
	}
	if alt, found := sd.Dict.Find("Alternate"); found {
		return d.resolveColorSpace(alt)
	}
	return colorSpace{}, fmt.Errorf("%w: ICC profile without N", ErrImageDecode)
}

// indexedSpace resolves [/Indexed base hival lookup] into an RGB palette.
func (d *Document) indexedSpace(arr types.Array) (colorSpace, error) {
	if len(arr) < 4 {
		return colorSpace{}, fmt.Errorf("%w: malformed Indexed color space", ErrImageDecode)
	}
	base, err := d.resolveColorSpace(arr[1])
	if err != nil {
		return colorSpace{}, err
	}
	if base.Model == modelIndexed {
		return colorSpace{}, fmt.Errorf("%w: nested Indexed color space", ErrImageDecode)
	}

	hival := 0
	if obj, err := d.ctx.Dereference(arr[2]); err == nil {
		if i, ok := obj.(types.Integer); ok {
			hival = int(i)
		}
	}

	lookup, err := d.lookupBytes(arr[3])
	if err != nil {
		return colorSpace{}, err
	}

	palette, err := buildPalette(base, hival, lookup)
	if err != nil {
		return colorSpace{}, err
	}
	return colorSpace{Model: modelIndexed, Palette: palette}, nil
}

func (d *Document) lookupBytes(obj types.Object) ([]byte, error) {
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: palette: %v", ErrImageDecode, err)
	}
	switch v := obj.(type) {
	case types.StringLiteral:
		return unescapeLiteral(string(v)), nil
	case types.HexLiteral:
		b, err := hex.DecodeString(evenHex(string(v)))
		if err != nil {
			return nil, fmt.Errorf("%w: palette: %v", ErrImageDecode, err)
		}
		return b, nil
	case types.StreamDict:
		data, codec, err := decodeFilters(v.Raw, v.FilterPipeline)
		if err != nil {
			return nil, err
		}
		if codec != "" {
			return nil, fmt.Errorf("%w: palette encoded with %s", ErrUnsupportedImage, codec)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: palette of type %T", ErrImageDecode, obj)
}

func buildPalette(base colorSpace, hival int, lookup []byte) ([]color.RGBA, error) {
	if hival < 0 || hival > 255 {
		return nil, fmt.Errorf("%w: palette hival %d out of range", ErrImageDecode, hival)
	}
	n := base.Components()
	palette := make([]color.RGBA, hival+1)
	for i := range palette {
		off := i * n
		if off+n > len(lookup) {
			// Short tables are padded with black.
			palette[i] = color.RGBA{A: 0xff}
			continue
		}
		palette[i] = toRGBA(base.Model, lookup[off:off+n])
	}
	return palette, nil
}

func toRGBA(model colorModel, c []byte) color.RGBA {
	switch model {
	case modelRGB:
		return color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff}
	case modelCMYK:
		r, g, b := color.CMYKToRGB(c[0], c[1], c[2], c[3])
		return color.RGBA{R: r, G: g, B: b, A: 0xff}
	default:
		return color.RGBA{R: c[0], G: c[0], B: c[0], A: 0xff}
	}
}

// unescapeLiteral resolves the escape sequences of a PDF literal string.
func unescapeLiteral(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(e - '0')
			for k := 0; k < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; k++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			out = append(out, byte(v))
		default:
			out = append(out, e)
		}
	}
	return out
}

func evenHex(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '\f':
			return -1
		}
		return r
	}, s)
	if len(s)%2 == 1 {
		s += "0"
	}
	return s
}
