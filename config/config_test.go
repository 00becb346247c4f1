package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf_minimizer/pdf"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pdfminimize.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_FILE_SIZE", "TEMP_DIR"} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	opts := cfg.Reduce.Options()
	assert.Equal(t, int64(pdf.DefaultTargetSize), opts.TargetSize)
	assert.Equal(t, pdf.DefaultPasses(), opts.Passes)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[server]
port = "9090"
temp_dir = "/tmp/uploads"

[reduce]
target_size = 500000
output_prefix = "small_"
fail_fast = true

[[reduce.passes]]
scale = 1
quality = 0

[[reduce.passes]]
scale = 3
quality = 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/uploads", cfg.Server.TempDir)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Server.MaxFileSize)

	opts := cfg.Reduce.Options()
	assert.Equal(t, int64(500000), opts.TargetSize)
	assert.Equal(t, "small_", opts.OutputPrefix)
	assert.True(t, opts.FailFast)
	assert.Equal(t, []pdf.Pass{{Scale: 1, Quality: 0}, {Scale: 3, Quality: 20}}, opts.Passes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("MAX_FILE_SIZE", "1234")
	t.Setenv("TEMP_DIR", "/var/tmp/pdf")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, int64(1234), cfg.Server.MaxFileSize)
	assert.Equal(t, "/var/tmp/pdf", cfg.Server.TempDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", `[reduce`},
		{"negative target", "[reduce]\ntarget_size = -5\n"},
		{"bad pass", "[[reduce.passes]]\nscale = 0\nquality = 10\n"},
		{"bad quality", "[[reduce.passes]]\nscale = 2\nquality = 500\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestServerTimeouts(t *testing.T) {
	s := Default().Server
	assert.Equal(t, "1m0s", s.ReadTimeout().String())
	assert.Equal(t, "5m0s", s.WriteTimeout().String())
	assert.Equal(t, "10s", s.ShutdownTimeout().String())
}

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("..", "pdfminimize.example.toml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Log, cfg.Log)
	assert.Equal(t, pdf.DefaultPasses(), cfg.Reduce.Options().Passes)
	assert.Equal(t, def.Reduce.Options().TargetSize, cfg.Reduce.Options().TargetSize)
}
