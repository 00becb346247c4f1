package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdfPkg "pdf_minimizer/pdf"
	"pdf_minimizer/pdf/pdftest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		MaxFileSize: 10 * 1024 * 1024,
		TempDir:     t.TempDir(),
		Reduce:      pdfPkg.DefaultOptions(),
	}
}

func uploadRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if data != nil {
		part, err := w.CreateFormFile("pdf", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(config *Config, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(config).ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestHealth(t *testing.T) {
	rec := serve(testConfig(t), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestIndexServesUploadForm(t *testing.T) {
	rec := serve(testConfig(t), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/api/pdf/minimize"`)
	assert.Contains(t, rec.Body.String(), "PDF Minimizer")
}

func TestMinimize_ReturnsArtifact(t *testing.T) {
	config := testConfig(t)
	data := pdftest.Build(pdftest.SinglePhoto(400, 300))
	req := uploadRequest(t, "/api/pdf/minimize", "holiday.pdf", data, map[string]string{"target_size": "150000"})

	rec := serve(config, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="minimized_holiday.pdf"`)
	assert.Equal(t, "true", rec.Header().Get(HeaderTargetMet))
	assert.Equal(t, "2", rec.Header().Get(HeaderPasses))
	assert.Equal(t, strconv.Itoa(len(data)), rec.Header().Get(HeaderOriginalSize))

	size, err := strconv.Atoi(rec.Header().Get(HeaderMinimizedSize))
	require.NoError(t, err)
	assert.Equal(t, size, rec.Body.Len())
	assert.LessOrEqual(t, size, 150000)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	entries, err := os.ReadDir(config.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files left behind")
}

func TestMinimize_MissingFile(t *testing.T) {
	rec := serve(testConfig(t), uploadRequest(t, "/api/pdf/minimize", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No PDF file provided", errorOf(t, rec))
}

func TestMinimize_RejectsNonPDF(t *testing.T) {
	req := uploadRequest(t, "/api/pdf/minimize", "notes.txt", []byte("hello world"), nil)
	rec := serve(testConfig(t), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "invalid PDF file")
}

func TestMinimize_UnparsablePDF(t *testing.T) {
	req := uploadRequest(t, "/api/pdf/minimize", "broken.pdf", []byte("%PDF-1.7\ngarbage"), nil)
	rec := serve(testConfig(t), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "unreadable document")
}

func TestMinimize_TooLarge(t *testing.T) {
	config := testConfig(t)
	config.MaxFileSize = 100
	req := uploadRequest(t, "/api/pdf/minimize", "a.pdf", pdftest.Build(pdftest.TextOnly(1)), nil)

	rec := serve(config, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "exceeds maximum")
}

func TestMinimize_InvalidFormFields(t *testing.T) {
	data := pdftest.Build(pdftest.TextOnly(1))
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"target not a number", map[string]string{"target_size": "big"}},
		{"target zero", map[string]string{"target_size": "0"}},
		{"bad pages", map[string]string{"pages": "3-1"}},
		{"page out of range", map[string]string{"pages": "4"}},
		{"huge page range", map[string]string{"pages": "1-2000000000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(testConfig(t), uploadRequest(t, "/api/pdf/minimize", "a.pdf", data, tt.fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestResave(t *testing.T) {
	req := uploadRequest(t, "/api/pdf/resave", "doc.pdf", pdftest.Build(pdftest.TextOnly(2)), nil)
	rec := serve(testConfig(t), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="resaved_doc.pdf"`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestAnalyze(t *testing.T) {
	spec := pdftest.Spec{
		Images: []pdftest.ImageSpec{pdftest.NoiseImage("Logo", 40, 40, 9)},
		Pages: []pdftest.PageSpec{
			{Images: []string{"Logo"}},
			{Images: []string{"Logo"}},
		},
	}
	req := uploadRequest(t, "/api/pdf/analyze", "shared.pdf", pdftest.Build(spec), nil)
	rec := serve(testConfig(t), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Filename     string               `json:"filename"`
		TotalPages   int                  `json:"total_pages"`
		Images       []pdfPkg.Image       `json:"images"`
		SharedImages []pdfPkg.SharedImage `json:"shared_images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "shared.pdf", body.Filename)
	assert.Equal(t, 2, body.TotalPages)
	assert.Len(t, body.Images, 2)
	require.Len(t, body.SharedImages, 1)
	assert.Equal(t, []int{1, 2}, body.SharedImages[0].Pages)
}

func TestPreviewImage(t *testing.T) {
	data := pdftest.Build(pdftest.SinglePhoto(32, 24))

	rec := serve(testConfig(t), uploadRequest(t, "/api/pdf/preview", "p.pdf", data, map[string]string{"page": "1", "name": "Im0"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(testConfig(t), uploadRequest(t, "/api/pdf/preview", "p.pdf", data, map[string]string{"page": "1", "name": "Other"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(testConfig(t), uploadRequest(t, "/api/pdf/preview", "p.pdf", data, map[string]string{"page": "1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestLoggerTagsErrors(t *testing.T) {
	var logs bytes.Buffer
	config := testConfig(t)
	config.Logger = slog.New(slog.NewJSONHandler(&logs, nil))

	req := uploadRequest(t, "/api/pdf/minimize", "broken.pdf", []byte("%PDF-1.7\ngarbage"), nil)
	rec := serve(config, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	id := rec.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e))
		if e["msg"] == "PDF operation failed" {
			entry = e
		}
	}
	require.NotNil(t, entry, logs.String())
	assert.Equal(t, id, entry["request_id"])
	assert.Equal(t, "/api/pdf/minimize", entry["path"])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "__etc_passwd.pdf"},
		{`..\secret.PDF`, "_secret.PDF"},
		{"  spaced.pdf ", "spaced.pdf"},
		{"", "document.pdf"},
		{"scan", "scan.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
