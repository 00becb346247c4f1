package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hhrutter/tiff"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// Keep pdfcpu from creating a config dir under the user's home.
	model.ConfigPath = "disable"
}

// Image describes an image XObject referenced by name from a page's resources.
type Image struct {
	Page             int    `json:"page"`
	Name             string `json:"name"`
	ObjNr            int    `json:"obj_nr"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ColorSpace       string `json:"color_space"`
	BitsPerComponent int    `json:"bits_per_component"`
	Filter           string `json:"filter"`
	Size             int64  `json:"size"` // stored (encoded) stream length
	ImageMask        bool   `json:"image_mask"`
	SoftMask         bool   `json:"soft_mask"`
}

// EncodedImage is a replacement image stream: DCT encoded, 8 bit RGB.
type EncodedImage struct {
	Width  int
	Height int
	Data   []byte
}

// Document is an in-memory PDF opened from a file. It owns its pages and
// their image resources until Close is called.
type Document struct {
	path string
	ctx  *model.Context
}

// OpenDocument reads and validates the PDF at path.
func OpenDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, unreadable(path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, unreadable(path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, unreadable(path, err)
	}

	return &Document{path: path, ctx: ctx}, nil
}

// Close releases the in-memory document. It is safe to call more than once.
func (d *Document) Close() {
	d.ctx = nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Images lists the image XObjects named in the resources of page pageNr,
// ordered by resource name.
func (d *Document) Images(pageNr int) ([]Image, error) {
	pageDict, _, inherited, err := d.ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNr, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d not found", pageNr)
	}

	resources, err := d.pageResources(pageDict, inherited)
	if err != nil || resources == nil {
		return nil, err
	}

	obj, found := resources.Find("XObject")
	if !found {
		return nil, nil
	}
	xobjects, err := d.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("page %d: XObject resources: %w", pageNr, err)
	}

	names := make([]string, 0, len(xobjects))
	for name := range xobjects {
		names = append(names, name)
	}
	sort.Strings(names)

	var images []Image
	for _, name := range names {
		ir, ok := xobjects[name].(types.IndirectRef)
		if !ok {
			continue
		}
		objNr := int(ir.ObjectNumber)
		sd, ok := d.streamDict(objNr)
		if !ok || !isImageXObject(sd) {
			continue
		}
		images = append(images, d.describe(pageNr, name, objNr, sd))
	}

	return images, nil
}

func (d *Document) pageResources(pageDict types.Dict, inherited *model.InheritedPageAttrs) (types.Dict, error) {
	if obj, found := pageDict.Find("Resources"); found {
		res, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("page resources: %w", err)
		}
		if res != nil {
			return res, nil
		}
	}
	if inherited != nil {
		return inherited.Resources, nil
	}
	return nil, nil
}

func (d *Document) streamDict(objNr int) (types.StreamDict, bool) {
	entry, found := d.ctx.Table[objNr]
	if !found || entry == nil || entry.Free || entry.Object == nil {
		return types.StreamDict{}, false
	}
	sd, ok := entry.Object.(types.StreamDict)
	return sd, ok
}

func isImageXObject(sd types.StreamDict) bool {
	subtype := sd.Dict.NameEntry("Subtype")
	return subtype != nil && *subtype == "Image"
}

func (d *Document) describe(pageNr int, name string, objNr int, sd types.StreamDict) Image {
	img := Image{
		Page:             pageNr,
		Name:             name,
		ObjNr:            objNr,
		Width:            d.intEntry(sd.Dict, "Width"),
		Height:           d.intEntry(sd.Dict, "Height"),
		BitsPerComponent: d.intEntry(sd.Dict, "BitsPerComponent"),
		ColorSpace:       d.colorSpaceName(sd.Dict),
		Size:             int64(len(sd.Raw)),
	}

	filters := make([]string, 0, len(sd.FilterPipeline))
	for _, f := range sd.FilterPipeline {
		filters = append(filters, f.Name)
	}
	img.Filter = strings.Join(filters, ",")

	if b, ok := sd.Dict["ImageMask"].(types.Boolean); ok {
		img.ImageMask = bool(b)
	}
	_, img.SoftMask = sd.Dict.Find("SMask")

	return img
}

func (d *Document) intEntry(dict types.Dict, key string) int {
	obj, found := dict.Find(key)
	if !found {
		return 0
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return 0
	}
	switch v := obj.(type) {
	case types.Integer:
		return int(v)
	case types.Float:
		return int(v)
	}
	return 0
}

func (d *Document) colorSpaceName(dict types.Dict) string {
	obj, found := dict.Find("ColorSpace")
	if !found {
		return ""
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return ""
	}
	switch v := obj.(type) {
	case types.Name:
		return string(v)
	case types.Array:
		if len(v) > 0 {
			if n, ok := v[0].(types.Name); ok {
				return string(n)
			}
		}
	}
	return ""
}

// DecodeImage decodes the pixel data of img.
func (d *Document) DecodeImage(img Image) (image.Image, error) {
	sd, ok := d.streamDict(img.ObjNr)
	if !ok {
		return nil, fmt.Errorf("%w: object %d is not a stream", ErrImageDecode, img.ObjNr)
	}
	if img.ImageMask {
		return nil, fmt.Errorf("%w: stencil mask", ErrUnsupportedImage)
	}

	data, imageFilter, err := decodeFilters(sd.Raw, sd.FilterPipeline)
	if err != nil {
		return nil, err
	}

	decode, err := d.decodeArray(sd.Dict)
	if err != nil {
		return nil, err
	}

	switch imageFilter {
	case filterDCT:
		if decode != nil {
			return nil, fmt.Errorf("%w: /Decode on a DCT image", ErrUnsupportedImage)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
		}
		if err := checkImageBounds(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		m, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
		}
		return m, nil
	case "":
		if err := checkImageBounds(img.Width, img.Height); err != nil {
			return nil, err
		}
		cs, err := d.resolveColorSpace(sd.Dict["ColorSpace"])
		if err != nil {
			return nil, err
		}
		r := raster{
			Width:  img.Width,
			Height: img.Height,
			BPC:    img.BitsPerComponent,
			Space:  cs,
			Decode: decode,
		}
		if m, ok := d.render(sd, data, img, r); ok {
			return m, nil
		}
		return decodeSamples(data, r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, imageFilter)
	}
}

// render decodes device gray, RGB and CMYK samples through pdfcpu. It
// reports false for rasters pdfcpu does not map faithfully: /Decode arrays,
// non 8 bit color, indexed and ICC based spaces. Those go through
// decodeSamples.
func (d *Document) render(sd types.StreamDict, data []byte, img Image, r raster) (image.Image, bool) {
	if r.Decode != nil || len(data) < r.rowBytes()*r.Height {
		return nil, false
	}
	name, ok := sd.Dict["ColorSpace"].(types.Name)
	if !ok {
		return nil, false
	}
	switch {
	case string(name) == csDeviceGray && (r.BPC == 1 || r.BPC == 2 || r.BPC == 4 || r.BPC == 8):
	case (string(name) == csDeviceRGB || string(name) == csDeviceCMYK) && r.BPC == 8:
	default:
		return nil, false
	}
	if sd.Dict.IntEntry("BitsPerComponent") == nil {
		return nil, false
	}

	// Soft masks are kept as separate objects, so render the opaque samples.
	dict := types.NewDict()
	for key, value := range sd.Dict {
		if key != "SMask" && key != "Mask" {
			dict[key] = value
		}
	}
	samples := types.StreamDict{Dict: dict, Content: data}

	out, format, err := pdfcpu.RenderImage(d.ctx.XRefTable, &samples, false, img.Name, img.ObjNr)
	if err != nil || out == nil {
		return nil, false
	}
	m, err := decodeRendered(out, format)
	if err != nil {
		return nil, false
	}
	return m, true
}

func decodeRendered(r io.Reader, format string) (image.Image, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "png":
		return png.Decode(r)
	case "tif", "tiff":
		return tiff.Decode(r)
	case "jpg", "jpeg":
		return jpeg.Decode(r)
	}
	m, _, err := image.Decode(r)
	return m, err
}

// decodeArray returns the /Decode ranges of an image, or nil when absent.
func (d *Document) decodeArray(dict types.Dict) ([]float64, error) {
	obj, found := dict.Find("Decode")
	if !found {
		return nil, nil
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: /Decode: %v", ErrImageDecode, err)
	}
	arr, ok := obj.(types.Array)
	if !ok || len(arr) == 0 || len(arr)%2 != 0 {
		return nil, fmt.Errorf("%w: malformed /Decode", ErrImageDecode)
	}
	ranges := make([]float64, len(arr))
	for i, v := range arr {
		v, err := d.ctx.Dereference(v)
		if err != nil {
			return nil, fmt.Errorf("%w: /Decode: %v", ErrImageDecode, err)
		}
		switch n := v.(type) {
		case types.Integer:
			ranges[i] = float64(n)
		case types.Float:
			ranges[i] = float64(n)
		default:
			return nil, fmt.Errorf("%w: /Decode entry %v", ErrImageDecode, v)
		}
	}
	return ranges, nil
}

// ReplaceImage swaps the stream behind img for enc. The old stream object is
// replaced as a whole so filter, geometry and data always agree. Every page
// referencing the same object sees the new image.
func (d *Document) ReplaceImage(img Image, enc EncodedImage) error {
	entry, found := d.ctx.Table[img.ObjNr]
	if !found || entry == nil {
		return fmt.Errorf("replace image %s: object %d not found", img.Name, img.ObjNr)
	}
	old, ok := entry.Object.(types.StreamDict)
	if !ok {
		return fmt.Errorf("replace image %s: object %d is not a stream", img.Name, img.ObjNr)
	}

	dict := types.NewDict()
	for key, value := range old.Dict {
		if keepOnTranscode(key, value) {
			dict[key] = value
		}
	}
	dict["Type"] = types.Name("XObject")
	dict["Subtype"] = types.Name("Image")
	dict["Width"] = types.Integer(enc.Width)
	dict["Height"] = types.Integer(enc.Height)
	dict["ColorSpace"] = types.Name(csDeviceRGB)
	dict["BitsPerComponent"] = types.Integer(8)
	dict["Filter"] = types.Name(filterDCT)
	dict["Length"] = types.Integer(len(enc.Data))

	length := int64(len(enc.Data))
	entry.Object = types.StreamDict{
		Dict:           dict,
		StreamLength:   &length,
		FilterPipeline: []types.PDFFilter{{Name: filterDCT}},
		Raw:            enc.Data,
	}

	return nil
}

// keepOnTranscode reports whether an image dictionary entry stays valid once
// the samples are re-encoded as 8 bit RGB JPEG.
func keepOnTranscode(key string, value types.Object) bool {
	switch key {
	case "Filter", "DecodeParms", "Length", "ColorSpace", "BitsPerComponent",
		"Decode", "SMaskInData", "ImageMask", "Width", "Height":
		return false
	case "Mask":
		// A color key mask is expressed in the old color space.
		_, isArray := value.(types.Array)
		return !isArray
	}
	return true
}

// Save recompresses the container and writes it to path, returning the
// size of the written file.
func (d *Document) Save(path string) (int64, error) {
	if err := d.compressStreams(); err != nil {
		return 0, writeFailure(path, err)
	}
	if err := api.OptimizeContext(d.ctx); err != nil {
		return 0, writeFailure(path, err)
	}

	d.ctx.Configuration.WriteObjectStream = true
	d.ctx.Configuration.WriteXRefStream = true

	f, err := os.Create(path)
	if err != nil {
		return 0, writeFailure(path, err)
	}
	if err := api.WriteContext(d.ctx, f); err != nil {
		f.Close()
		return 0, writeFailure(path, err)
	}
	if err := f.Close(); err != nil {
		return 0, writeFailure(path, err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return 0, writeFailure(path, err)
	}
	return fi.Size(), nil
}

// compressStreams flate encodes every stream that carries no filter yet.
func (d *Document) compressStreams() error {
	for objNr, entry := range d.ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || len(sd.FilterPipeline) > 0 {
			continue
		}
		if _, found := sd.Dict.Find("Filter"); found {
			continue
		}
		// XMP metadata stays readable to tools that do not inflate.
		if t := sd.Dict.NameEntry("Type"); t != nil && *t == "Metadata" {
			continue
		}

		raw, err := encodeFlate(sd.Raw)
		if err != nil {
			return fmt.Errorf("compress object %d: %w", objNr, err)
		}
		if len(raw) >= len(sd.Raw) {
			continue
		}

		length := int64(len(raw))
		sd.Dict["Filter"] = types.Name(filterFlate)
		sd.Dict["Length"] = types.Integer(length)
		delete(sd.Dict, "DecodeParms")
		sd.StreamLength = &length
		sd.FilterPipeline = []types.PDFFilter{{Name: filterFlate}}
		sd.Raw = raw
		entry.Object = sd
	}
	return nil
}

func encodeFlate(b []byte) ([]byte, error) {
	f, err := filter.NewFilter(filterFlate, nil)
	if err != nil {
		return nil, err
	}
	r, err := f.Encode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// decodeFilters runs the generic filters of a stream. When the pipeline ends
// in an image codec, decoding stops there and the codec name is returned
// along with the still encoded payload.
func decodeFilters(raw []byte, pipeline []types.PDFFilter) ([]byte, string, error) {
	data := raw
	for i, pf := range pipeline {
		switch pf.Name {
		case filterDCT, filterJPX, filterJBIG2, filterCCITTFax:
			if i != len(pipeline)-1 {
				return nil, "", fmt.Errorf("%w: %s is not the last filter", ErrUnsupportedImage, pf.Name)
			}
			return data, pf.Name, nil
		case filterFlate, filterLZW, filterASCII85, filterASCIIHex, filterRunLength:
		default:
			return nil, "", fmt.Errorf("%w: filter %s", ErrUnsupportedImage, pf.Name)
		}

		f, err := filter.NewFilter(pf.Name, filterParms(pf.DecodeParms))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		r, err := f.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrImageDecode, pf.Name, err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, "", fmt.Errorf("%w: %s: %v", ErrImageDecode, pf.Name, err)
		}
	}
	return data, "", nil
}

func filterParms(d types.Dict) map[string]int {
	if len(d) == 0 {
		return nil
	}
	parms := make(map[string]int, len(d))
	for key, value := range d {
		switch v := value.(type) {
		case types.Integer:
			parms[key] = int(v)
		case types.Boolean:
			if v {
				parms[key] = 1
			} else {
				parms[key] = 0
			}
		}
	}
	return parms
}

func checkImageBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: image bounds invalid (%d x %d)", ErrImageDecode, width, height)
	}
	if width > MaxImageDimension || height > MaxImageDimension {
		return fmt.Errorf("%w: image dimension exceeds limit (%d x %d)", ErrImageDecode, width, height)
	}
	if pixels := int64(width) * int64(height); pixels > MaxImagePixels {
		return fmt.Errorf("%w: image pixel count %d exceeds limit %d", ErrImageDecode, pixels, MaxImagePixels)
	}
	return nil
}

// isDecodeError reports whether err stems from a single image rather than the document.
func isDecodeError(err error) bool {
	return errors.Is(err, ErrImageDecode)
}
