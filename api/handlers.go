package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pdf_minimizer/logger"
	pdfPkg "pdf_minimizer/pdf"
)

// HandleMinimize runs the reduction passes on the uploaded PDF and returns
// the artifact. Optional form fields: target_size (bytes) and pages.
func HandleMinimize(c *gin.Context, config *Config) {
	opts := config.Reduce
	opts.Logger = logger.FromContext(c.Request.Context())

	if v := strings.TrimSpace(c.PostForm("target_size")); v != "" {
		target, err := strconv.ParseInt(v, 10, 64)
		if err != nil || target <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid target_size %q", v)})
			return
		}
		opts.TargetSize = target
	}

	if v := strings.TrimSpace(c.PostForm("pages")); v != "" {
		pages, err := pdfPkg.ParsePageSpecifier(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Pages = pages
	}

	handlePDFFile(c, config, func(inFile string) (string, error) {
		res, err := pdfPkg.Reduce(inFile, opts)
		if err != nil {
			return "", err
		}
		c.Header(HeaderOriginalSize, strconv.FormatInt(res.OriginalSize, 10))
		c.Header(HeaderMinimizedSize, strconv.FormatInt(res.FinalSize, 10))
		c.Header(HeaderTargetMet, strconv.FormatBool(res.TargetMet))
		c.Header(HeaderPasses, strconv.Itoa(len(res.Passes)))
		return res.OutputPath, nil
	})
}

// HandleResave rewrites the upload with structural compression only.
func HandleResave(c *gin.Context, config *Config) {
	handlePDFFile(c, config, func(inFile string) (string, error) {
		outFile := pdfPkg.OutputPath(inFile, "resaved_")
		size, err := pdfPkg.ResavePDF(inFile, outFile)
		if err != nil {
			return "", err
		}
		c.Header(HeaderMinimizedSize, strconv.FormatInt(size, 10))
		return outFile, nil
	})
}

// HandleAnalyze reports the images of the uploaded PDF as JSON.
func HandleAnalyze(c *gin.Context, config *Config) {
	inFile, header, cleanup, ok := receivePDF(c, config)
	if !ok {
		return
	}
	defer cleanup()

	analysis, err := pdfPkg.AnalyzeImages(inFile)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename":        header.Filename,
		"total_pages":     analysis.TotalPages,
		"file_size":       analysis.FileSize,
		"image_bytes":     analysis.ImageBytes,
		"images":          analysis.Images,
		"shared_images":   analysis.SharedImages,
		"recommendations": analysis.Recommendations,
	})
}

// HandlePreviewImage decodes one embedded image of the upload and returns it
// as PNG. Form fields: page and name.
func HandlePreviewImage(c *gin.Context, config *Config) {
	name := strings.TrimSpace(c.PostForm("name"))
	page, err := strconv.Atoi(c.DefaultPostForm("page", "1"))
	if name == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and name are required"})
		return
	}

	inFile, _, cleanup, ok := receivePDF(c, config)
	if !ok {
		return
	}
	defer cleanup()

	previewPath, err := pdfPkg.ExtractImagePreview(inFile, filepath.Join(filepath.Dir(inFile), "previews"), page, name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "image/png")
	c.File(previewPath)
}

// handlePDFFile stores the upload, runs operation on it and sends back the
// file operation produced. Everything is removed once the response is written.
func handlePDFFile(c *gin.Context, config *Config, operation func(inFile string) (string, error)) {
	inFile, _, cleanup, ok := receivePDF(c, config)
	if !ok {
		return
	}
	defer cleanup()

	outFile, err := operation(inFile)
	if err != nil {
		respondError(c, err)
		return
	}

	// Verify output file exists before sending
	if _, err := os.Stat(outFile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PDF operation did not produce output file"})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(outFile)))
	c.File(outFile)
}

// receivePDF validates the "pdf" form file and saves it under its sanitized
// name in a fresh directory below config.TempDir. On failure it has already
// written the error response.
func receivePDF(c *gin.Context, config *Config) (string, *multipart.FileHeader, func(), bool) {
	file, header, err := c.Request.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No PDF file provided"})
		return "", nil, nil, false
	}
	defer file.Close()

	if err := validatePDFFile(file, header, config.MaxFileSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", nil, nil, false
	}

	workDir := filepath.Join(config.TempDir, generateUniqueID())
	if err := ensureTempDir(workDir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create temp directory"})
		return "", nil, nil, false
	}
	cleanup := func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.FromContext(c.Request.Context()).Warn("temp cleanup failed", slog.String("dir", workDir), slog.Any("error", err))
		}
	}

	inFile := filepath.Join(workDir, sanitizeFilename(header.Filename))
	out, err := os.Create(inFile)
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create temp file"})
		return "", nil, nil, false
	}

	_, err = out.ReadFrom(file)
	out.Close()
	if err != nil {
		cleanup()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save input file"})
		return "", nil, nil, false
	}

	return inFile, header, cleanup, true
}

// respondError maps pipeline errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pdfPkg.ErrUnreadableDocument), errors.Is(err, pdfPkg.ErrInvalidOptions):
		status = http.StatusBadRequest
	case errors.Is(err, pdfPkg.ErrImageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pdfPkg.ErrImageDecode):
		status = http.StatusUnprocessableEntity
	}

	logger.FromContext(c.Request.Context()).Error("PDF operation failed", slog.Int("status", status), slog.Any("error", err))

	errorMsg := err.Error()
	if len(errorMsg) > MaxErrorMessageLength {
		errorMsg = errorMsg[:MaxErrorMessageLength] + "..."
	}
	c.JSON(status, gin.H{"error": errorMsg})
}

// ensureTempDir creates the temp directory if it doesn't exist
func ensureTempDir(tempDir string) error {
	return os.MkdirAll(tempDir, DefaultFilePermissions)
}

// sanitizeFilename removes path traversal attempts and dangerous characters
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.TrimSpace(filepath.Base(filename))

	if filename == "" || filename == "." || filename == "_" {
		return "document.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}
	return filename
}

// generateUniqueID generates a unique identifier for temp directories
func generateUniqueID() string {
	return uuid.NewString()
}

// validatePDFFile checks the size limit and the %PDF header
func validatePDFFile(file multipart.File, header *multipart.FileHeader, maxSize int64) error {
	if header.Size > maxSize {
		return fmt.Errorf("file size %d exceeds maximum allowed %d bytes", header.Size, maxSize)
	}

	buffer := make([]byte, 4)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("failed to read file header: %v", err)
	}

	if n < 4 || string(buffer) != "%PDF" {
		return fmt.Errorf("invalid PDF file: header does not match")
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file position: %v", err)
	}

	return nil
}
