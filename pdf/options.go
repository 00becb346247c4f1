package pdf

import (
	"fmt"
	"log/slog"
)

// Pass describes one reduction attempt. Scale divides both image dimensions,
// Quality is the JPEG quality used when re-encoding images. A zero Quality
// means the pass only recompresses the container and leaves images alone.
type Pass struct {
	Scale   int `toml:"scale" json:"scale"`
	Quality int `toml:"quality" json:"quality"`
}

// Lossy reports whether the pass transcodes images.
func (p Pass) Lossy() bool {
	return p.Quality > 0
}

func (p Pass) String() string {
	if !p.Lossy() {
		return "structural"
	}
	return fmt.Sprintf("1/%d q%d", p.Scale, p.Quality)
}

// DefaultPasses returns the escalation used when Options.Passes is empty:
// structural only, then half size at q15, then quarter size at q10.
func DefaultPasses() []Pass {
	return []Pass{
		{Scale: 1, Quality: 0},
		{Scale: 2, Quality: 15},
		{Scale: 4, Quality: 10},
	}
}

// Options controls a reduction run.
type Options struct {
	// TargetSize is the byte budget. Zero means DefaultTargetSize.
	TargetSize int64

	// Passes are tried in order until one meets TargetSize.
	Passes []Pass

	// OutputPrefix names the artifact, written next to the input.
	OutputPrefix string

	// Pages restricts image transcoding to these 1-based page numbers.
	// Nil means every page.
	Pages []int

	// FailFast aborts the pass on the first image that cannot be decoded
	// instead of leaving that image untouched.
	FailFast bool

	Logger *slog.Logger
}

// DefaultOptions returns options matching the stock behaviour.
func DefaultOptions() Options {
	return Options{
		TargetSize:   DefaultTargetSize,
		Passes:       DefaultPasses(),
		OutputPrefix: DefaultOutputPrefix,
	}
}

// withDefaults fills zero fields.
func (o Options) withDefaults() Options {
	if o.TargetSize == 0 {
		o.TargetSize = DefaultTargetSize
	}
	if len(o.Passes) == 0 {
		o.Passes = DefaultPasses()
	}
	if o.OutputPrefix == "" {
		o.OutputPrefix = DefaultOutputPrefix
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Validate checks the option values after defaults have been applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.TargetSize < 0 {
		return fmt.Errorf("%w: target size must be positive, got %d", ErrInvalidOptions, o.TargetSize)
	}
	for i, p := range o.Passes {
		if p.Scale < 1 {
			return fmt.Errorf("%w: pass %d: scale divisor must be >= 1, got %d", ErrInvalidOptions, i, p.Scale)
		}
		if p.Quality < 0 || p.Quality > MaxJPEGQuality {
			return fmt.Errorf("%w: pass %d: quality must be within 0..%d, got %d", ErrInvalidOptions, i, MaxJPEGQuality, p.Quality)
		}
	}
	for _, page := range o.Pages {
		if page < 1 {
			return fmt.Errorf("%w: page numbers must be positive, got %d", ErrInvalidOptions, page)
		}
	}
	return nil
}
