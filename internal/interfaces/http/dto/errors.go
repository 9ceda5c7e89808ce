package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidDateRange is used when a start date is after its end date
	ErrCodeInvalidDateRange = "ERR_INVALID_DATE_RANGE"
	// ErrCodeMissingParameter is used when a required query parameter is absent
	ErrCodeMissingParameter = "ERR_MISSING_PARAMETER"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// ERP connection error codes
const (
	// ErrCodeAuthentication is used when provider credentials are rejected
	ErrCodeAuthentication = "ERR_AUTHENTICATION"
	// ErrCodeEndpointUnavailable is used when every provider endpoint candidate failed
	ErrCodeEndpointUnavailable = "ERR_ENDPOINT_UNAVAILABLE"
	// ErrCodeDecryption is used when stored credentials cannot be decrypted
	ErrCodeDecryption = "ERR_DECRYPTION"
	// ErrCodeUnsupportedProvider is used for provider types outside the registry
	ErrCodeUnsupportedProvider = "ERR_UNSUPPORTED_PROVIDER"
	// ErrCodeConnectionState is used when an operation is invalid for the current lifecycle state
	ErrCodeConnectionState = "ERR_CONNECTION_STATE"
	// ErrCodeDuplicateConnection is used when a customer already has a connection for the provider
	ErrCodeDuplicateConnection = "ERR_DUPLICATE_CONNECTION"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeInvalidDateRange: http.StatusBadRequest,
	ErrCodeMissingParameter: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors. Everything that is neither the caller's fault nor a
	// missing resource maps to 500, including stale-version conflicts.
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusInternalServerError,

	// ERP connection errors. Provider-side authentication and validation
	// failures are the caller's fault (bad credentials in the request), so
	// they map to 400 rather than 401/502. Provider outages and invalid
	// connection-state transitions are server-side failures and map to 500.
	ErrCodeAuthentication:      http.StatusBadRequest,
	ErrCodeUnsupportedProvider: http.StatusBadRequest,
	ErrCodeDuplicateConnection: http.StatusBadRequest,
	ErrCodeEndpointUnavailable: http.StatusInternalServerError,
	ErrCodeDecryption:          http.StatusInternalServerError,
	ErrCodeConnectionState:     http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
