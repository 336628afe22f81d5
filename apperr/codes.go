package apperr

// Code is a machine-readable error code.
type Code string

// Error codes used throughout the gate. Startup codes abort process
// initialization; request codes map to a terminal HTTP response.
const (
	// Startup-fatal codes.
	CodeConfigInvalid Code = "config_invalid"
	CodeStoreIO       Code = "store_io"

	// Request-time codes, always recovered locally.
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeTokenExpired       Code = "token_expired"
	CodeTokenMalformed     Code = "token_malformed"
	CodeRateLimited        Code = "rate_limited"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal"
)

// IsFatal reports whether the code may only occur during startup and must
// abort process initialization.
func IsFatal(code Code) bool {
	return code == CodeConfigInvalid || code == CodeStoreIO
}
