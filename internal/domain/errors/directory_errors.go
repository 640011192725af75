package errors

import "fmt"

const (
	DirectoryErrorTypeRequest     = "REQUEST_FAILED"
	DirectoryErrorTypeStatus      = "UNEXPECTED_STATUS"
	DirectoryErrorTypeDecode      = "DECODE_FAILED"
	DirectoryErrorTypeUnavailable = "NOT_CONFIGURED"
	DirectoryErrorTypeTruncated   = "LISTING_TRUNCATED"
)

// DirectoryError represents a failure talking to the identity provider
type DirectoryError struct {
	Type       string
	Message    string
	StatusCode int
	Cause      error
}

func (e *DirectoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s - %v", e.Type, e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

// NewDirectoryError creates a DirectoryError
func NewDirectoryError(errorType, message string, statusCode int, cause error) *DirectoryError {
	return &DirectoryError{
		Type:       errorType,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
