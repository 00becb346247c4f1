package pdf

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf_minimizer/pdf/pdftest"
)

func TestExtractImagePreview(t *testing.T) {
	dir := t.TempDir()
	in := pdftest.Write(t, dir, "photo.pdf", pdftest.SinglePhoto(64, 48))
	outDir := filepath.Join(dir, "previews")

	path, err := ExtractImagePreview(in, outDir, 1, "Im0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "preview_p1_Im0.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestExtractImagePreview_Errors(t *testing.T) {
	dir := t.TempDir()
	spec := pdftest.Spec{
		Images: []pdftest.ImageSpec{
			{Name: "Mask", Width: 16, Height: 16, ImageMask: true},
			pdftest.NoiseImage("Photo", 16, 16, 5),
		},
		Pages: []pdftest.PageSpec{{Images: []string{"Mask", "Photo"}}},
	}
	in := pdftest.Write(t, dir, "doc.pdf", spec)

	_, err := ExtractImagePreview(in, dir, 1, "Nope")
	assert.ErrorIs(t, err, ErrImageNotFound)

	_, err = ExtractImagePreview(in, dir, 2, "Photo")
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = ExtractImagePreview(in, dir, 1, "Mask")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = ExtractImagePreview(filepath.Join(dir, "missing.pdf"), dir, 1, "Photo")
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "Im0", sanitizeID("Im0"))
	assert.Equal(t, "a_b_c", sanitizeID("a/b:c"))
	assert.Equal(t, "image", sanitizeID(""))
	assert.Len(t, sanitizeID(string(make([]byte, 80))), 50)
}
