package notion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"watchlog/internal/services"
)

const (
	codeValidation     = "validation_error"
	codeObjectNotFound = "object_not_found"
	codeRateLimited    = "rate_limited"
)

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error returns the upstream message verbatim, or "<status> <status text>"
// when the response carried none.
func (e *APIError) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps the response onto the shared error markers so callers can use
// errors.Is(err, services.ErrSchemaMismatch) and friends.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests || e.Code == codeRateLimited:
		return services.ErrRateLimited
	case e.Code == codeValidation && mentionsMissingProperty(e.Message):
		return services.ErrSchemaMismatch
	case e.Code == codeValidation:
		return services.ErrValidation
	case e.StatusCode == http.StatusNotFound || e.Code == codeObjectNotFound:
		return services.ErrNotFound
	default:
		return services.ErrUpstream
	}
}

// MissingProperty returns the column named by a "<name> is not a property
// that exists." rejection of a page write.
func MissingProperty(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != codeValidation {
		return "", false
	}
	msg := strings.TrimSpace(apiErr.Message)
	idx := strings.Index(msg, missingPropertySuffix)
	if idx <= 0 {
		return "", false
	}
	name := strings.TrimSpace(msg[:idx])
	return name, name != ""
}

const missingPropertySuffix = " is not a property that exists"

func mentionsMissingProperty(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "could not find property") ||
		strings.Contains(lower, "is not a property that exists")
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr = &APIError{}
	}
	apiErr.StatusCode = status
	return apiErr
}
