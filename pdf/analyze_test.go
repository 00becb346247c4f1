package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf_minimizer/pdf/pdftest"
)

func TestAnalyzeImages(t *testing.T) {
	spec := pdftest.Spec{
		Images: []pdftest.ImageSpec{
			pdftest.NoiseImage("Logo", 50, 50, 1),
			pdftest.NoiseImage("Photo", 200, 100, 2),
		},
		Pages: []pdftest.PageSpec{
			{Images: []string{"Logo", "Photo"}},
			{Images: []string{"Logo"}},
		},
	}
	in := pdftest.Write(t, t.TempDir(), "doc.pdf", spec)

	a, err := AnalyzeImages(in)
	require.NoError(t, err)

	assert.Equal(t, 2, a.TotalPages)
	require.Len(t, a.Images, 3)
	assert.Equal(t, int64(50*50*3+200*100*3), a.ImageBytes)
	require.Len(t, a.SharedImages, 1)
	assert.Equal(t, []int{1, 2}, a.SharedImages[0].Pages)
	assert.Greater(t, a.ImageShare(), ImageDominanceThreshold)
	assert.NotEmpty(t, a.Recommendations)
}

func TestAnalyzeImages_NoImages(t *testing.T) {
	in := pdftest.Write(t, t.TempDir(), "text.pdf", pdftest.TextOnly(1))

	a, err := AnalyzeImages(in)
	require.NoError(t, err)
	assert.Empty(t, a.Images)
	assert.Zero(t, a.ImageBytes)
	assert.Contains(t, a.Recommendations[0], "No embedded images")
}

func TestAnalyzeImages_Missing(t *testing.T) {
	_, err := AnalyzeImages("/does/not/exist.pdf")
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}
