// Package pdftest builds small, well-formed PDF files with real image
// XObjects for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ImageSpec describes one image XObject.
type ImageSpec struct {
	Name       string
	Width      int
	Height     int
	ColorSpace string // DeviceRGB or DeviceGray; empty means DeviceRGB
	Pixels     []byte // packed samples; nil means random noise
	BPC        int    // bits per component; 0 means 8
	Decode     string // /Decode array, e.g. "[1 0]"
	Flate      bool
	Seed       uint64
	ImageMask  bool
	Corrupt    bool // declare FlateDecode over bytes that do not inflate
}

// PageSpec lists the images (by name) drawn on a page and optional text.
type PageSpec struct {
	Images []string
	Text   string
}

// Spec describes a whole document. Images are shared objects; several pages
// may draw the same one.
type Spec struct {
	Images []ImageSpec
	Pages  []PageSpec
}

// NoiseImage returns an incompressible RGB image spec.
func NoiseImage(name string, width, height int, seed uint64) ImageSpec {
	return ImageSpec{Name: name, Width: width, Height: height, ColorSpace: "DeviceRGB", Seed: seed}
}

// SinglePhoto is a one page document with one noisy RGB image.
func SinglePhoto(width, height int) Spec {
	return Spec{
		Images: []ImageSpec{NoiseImage("Im0", width, height, 1)},
		Pages:  []PageSpec{{Images: []string{"Im0"}, Text: "photo"}},
	}
}

// TextOnly is a document without images.
func TextOnly(pages int) Spec {
	s := Spec{}
	for i := 0; i < pages; i++ {
		s.Pages = append(s.Pages, PageSpec{Text: fmt.Sprintf("page %d", i+1)})
	}
	return s
}

// Write builds spec into dir/name and returns the path.
func Write(tb testing.TB, dir, name string, spec Spec) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(spec), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

type builder struct {
	buf     bytes.Buffer
	offsets []int
}

func (b *builder) begin(objNr int) {
	for len(b.offsets) <= objNr {
		b.offsets = append(b.offsets, 0)
	}
	b.offsets[objNr] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n", objNr)
}

func (b *builder) object(objNr int, body string) {
	b.begin(objNr)
	b.buf.WriteString(body)
	b.buf.WriteString("\nendobj\n")
}

func (b *builder) stream(objNr int, dict string, data []byte) {
	b.begin(objNr)
	fmt.Fprintf(&b.buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
}

// Build renders spec as PDF bytes with a classic xref table.
func Build(spec Spec) []byte {
	b := &builder{}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	const (
		catalogNr = 1
		pagesNr   = 2
		fontNr    = 3
	)
	next := 4

	imageNr := make(map[string]int, len(spec.Images))
	imageSpec := make(map[string]ImageSpec, len(spec.Images))
	for _, img := range spec.Images {
		imageNr[img.Name] = next
		imageSpec[img.Name] = img
		next++
	}

	pageNrs := make([]int, len(spec.Pages))
	contentNrs := make([]int, len(spec.Pages))
	for i := range spec.Pages {
		pageNrs[i] = next
		contentNrs[i] = next + 1
		next += 2
	}

	b.object(catalogNr, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesNr))

	kids := make([]string, len(pageNrs))
	for i, nr := range pageNrs {
		kids[i] = fmt.Sprintf("%d 0 R", nr)
	}
	b.object(pagesNr, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageNrs)))
	b.object(fontNr, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for _, img := range spec.Images {
		data, dict := imageStream(img)
		b.stream(imageNr[img.Name], dict, data)
	}

	for i, page := range spec.Pages {
		var xobjs, content strings.Builder
		for j, name := range page.Images {
			img := imageSpec[name]
			fmt.Fprintf(&xobjs, "/%s %d 0 R ", name, imageNr[name])
			fmt.Fprintf(&content, "q %d 0 0 %d %d %d cm /%s Do Q\n", min(img.Width, 500), min(img.Height, 500), 36, 36+j*10, name)
		}
		if page.Text != "" {
			fmt.Fprintf(&content, "BT /F1 12 Tf 72 740 Td (%s) Tj ET\n", page.Text)
		}

		resources := fmt.Sprintf("/Font << /F1 %d 0 R >>", fontNr)
		if xobjs.Len() > 0 {
			resources += fmt.Sprintf(" /XObject << %s>>", xobjs.String())
		}
		b.object(pageNrs[i], fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << %s >> /Contents %d 0 R >>",
			pagesNr, resources, contentNrs[i]))
		b.stream(contentNrs[i], "", []byte(content.String()))
	}

	xrefOffset := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", next)
	b.buf.WriteString("0000000000 65535 f \n")
	for nr := 1; nr < next; nr++ {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[nr])
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", next, catalogNr, xrefOffset)

	return b.buf.Bytes()
}

func imageStream(img ImageSpec) ([]byte, string) {
	if img.ImageMask {
		stride := (img.Width + 7) / 8
		data := bytes.Repeat([]byte{0xaa}, stride*img.Height)
		return data, fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ImageMask true /BitsPerComponent 1", img.Width, img.Height)
	}

	cs := img.ColorSpace
	if cs == "" {
		cs = "DeviceRGB"
	}
	components := 3
	if cs == "DeviceGray" {
		components = 1
	}

	bpc := img.BPC
	if bpc == 0 {
		bpc = 8
	}

	data := img.Pixels
	if data == nil {
		rng := rand.New(rand.NewPCG(img.Seed, img.Seed^0x9e3779b97f4a7c15))
		data = make([]byte, (img.Width*components*bpc+7)/8*img.Height)
		for i := range data {
			data[i] = byte(rng.UintN(256))
		}
	}

	dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /%s /BitsPerComponent %d", img.Width, img.Height, cs, bpc)
	if img.Decode != "" {
		dict += " /Decode " + img.Decode
	}
	if img.Corrupt {
		return bytes.Repeat([]byte("not a zlib stream "), 16), dict + " /Filter /FlateDecode"
	}
	if img.Flate {
		var z bytes.Buffer
		w := zlib.NewWriter(&z)
		w.Write(data)
		w.Close()
		data = z.Bytes()
		dict += " /Filter /FlateDecode"
	}
	return data, dict
}
