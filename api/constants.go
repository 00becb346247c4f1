package api

const (
	// DefaultFilePermissions for temp directory creation
	DefaultFilePermissions = 0755

	// MaxErrorMessageLength truncates error messages returned to clients
	MaxErrorMessageLength = 200

	// Response headers describing the outcome of a reduction
	HeaderOriginalSize  = "X-Original-Size"
	HeaderMinimizedSize = "X-Minimized-Size"
	HeaderTargetMet     = "X-Target-Met"
	HeaderPasses        = "X-Passes"
	HeaderRequestID     = "X-Request-ID"
)
