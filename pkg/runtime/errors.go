package runtime

import (
	"errors"
	"fmt"
)

const (
	ErrorTransportLost    = "transport_lost"
	ErrorMalformedPayload = "malformed_payload"
	ErrorListenerFailed   = "listener_failed"
	ErrorSendFailed       = "send_failed"
	ErrorNotConnected     = "not_connected"
)

// Error represents a stable, categorized runtime failure.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewError creates a categorized runtime error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return ErrorListenerFailed
}
