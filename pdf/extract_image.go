package pdf

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// ExtractImagePreview decodes the image resource name drawn on pageNr of
// pdfFile and writes it to outputDir as PNG. It returns the PNG's path.
func ExtractImagePreview(pdfFile, outputDir string, pageNr int, name string) (string, error) {
	doc, err := OpenDocument(pdfFile)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	if err := ValidatePageNumbers([]int{pageNr}, doc.PageCount()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	images, err := doc.Images(pageNr)
	if err != nil {
		return "", unreadable(pdfFile, err)
	}

	var found *Image
	for i := range images {
		if images[i].Name == name {
			found = &images[i]
			break
		}
	}
	if found == nil {
		return "", fmt.Errorf("%w: page %d has no image %q", ErrImageNotFound, pageNr, name)
	}
	if found.ImageMask {
		return "", &ImageError{Page: pageNr, Name: name, ObjNr: found.ObjNr, Err: fmt.Errorf("%w: stencil mask", ErrUnsupportedImage)}
	}

	img, err := doc.DecodeImage(*found)
	if err != nil {
		return "", &ImageError{Page: pageNr, Name: name, ObjNr: found.ObjNr, Err: err}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", writeFailure(outputDir, err)
	}

	outputFile := filepath.Join(outputDir, fmt.Sprintf("preview_p%d_%s.png", pageNr, sanitizeID(name)))
	f, err := os.Create(outputFile)
	if err != nil {
		return "", writeFailure(outputFile, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(outputFile)
		return "", writeFailure(outputFile, err)
	}
	if err := f.Close(); err != nil {
		return "", writeFailure(outputFile, err)
	}

	return outputFile, nil
}

// sanitizeID sanitizes a resource name for use in filenames
func sanitizeID(id string) string {
	sanitized := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "..", "_").Replace(id)
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	if sanitized == "" {
		sanitized = "image"
	}
	return sanitized
}
