package api

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf_minimizer/logger"
	"pdf_minimizer/pdf"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Config holds what the handlers need
type Config struct {
	MaxFileSize int64
	TempDir     string
	Reduce      pdf.Options
	Logger      *slog.Logger
}

func (c *Config) baseLogger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// NewRouter builds the gin engine serving the upload form and the API.
func NewRouter(config *Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestLogger(config.baseLogger()))
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	SetupRoutes(r, config)
	return r
}

// requestLogger tags each request with an id and stores a logger carrying
// it in the request context.
func requestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := generateUniqueID()
		c.Header(HeaderRequestID, id)

		l := base.With(slog.String("request_id", id), slog.String("path", c.Request.URL.Path))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))
		c.Next()
	}
}

func SetupRoutes(r *gin.Engine, config *Config) {
	apiGroup := r.Group("/api/pdf")
	{
		apiGroup.POST("/minimize", func(c *gin.Context) { HandleMinimize(c, config) })
		apiGroup.POST("/resave", func(c *gin.Context) { HandleResave(c, config) })
		apiGroup.POST("/analyze", func(c *gin.Context) { HandleAnalyze(c, config) })
		apiGroup.POST("/preview", func(c *gin.Context) { HandlePreviewImage(c, config) })
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "pdf_minimizer",
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"title":      "PDF Minimizer",
			"targetSize": config.Reduce.TargetSize,
		})
	})
}
