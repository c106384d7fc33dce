package errors

import "fmt"

// ErrorType represents the different classes of failure a scan can hit
type ErrorType string

const (
	ErrorTypePage       ErrorType = "page"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeMessaging  ErrorType = "messaging"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a scan error with type information
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error wrapping err
func New(errorType ErrorType, op, message string, err error) *Error {
	return &Error{Type: errorType, Op: op, Message: message, Err: err}
}

// Page wraps a failure talking to the page driver
func Page(op string, err error) *Error {
	return New(ErrorTypePage, op, "page operation failed", err)
}

// Extraction wraps a failure reading profile cards
func Extraction(op string, err error) *Error {
	return New(ErrorTypeExtraction, op, "card extraction failed", err)
}

// Messaging wraps a failed delivery on the reporting channel
func Messaging(op string, err error) *Error {
	return New(ErrorTypeMessaging, op, "message delivery failed", err)
}

// Storage wraps a failed round trip to the persisted store
func Storage(op string, err error) *Error {
	return New(ErrorTypeStorage, op, "store round trip failed", err)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeMessaging, ErrorTypePage, ErrorTypeStorage:
		return true
	case ErrorTypeExtraction, ErrorTypeConfig:
		return false
	default:
		return false
	}
}
