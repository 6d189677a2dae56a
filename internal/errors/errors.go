package errors

import "errors"

// Common error types for the gateway
var (
	// Session errors
	ErrMissingSecret = errors.New("session secret is not configured")

	// Token errors. ErrNoRefreshToken's text is client-visible in refresh
	// results, hence the sentence casing.
	ErrNoRefreshToken       = errors.New("No refresh token or session available")
	ErrNoAccessToken        = errors.New("failed to get new access token")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Proxy errors
	ErrMissingTarget   = errors.New("target URL is required")
	ErrInvalidTarget   = errors.New("invalid target URL format")
	ErrUpstreamTimeout = errors.New("upstream request timed out")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
