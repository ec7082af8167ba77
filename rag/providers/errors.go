package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for non-2xx provider responses. It keeps the HTTP
// status so the service boundary can classify authentication and
// rate-limit failures without sniffing message strings.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API request failed with status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Service, e.StatusCode, e.Message)
}

// IsAuth reports whether err is a provider authentication failure.
func IsAuth(err error) bool {
	var e *APIError
	return errors.As(err, &e) && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// IsRateLimit reports whether err is a provider rate-limit rejection.
func IsRateLimit(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests
}
