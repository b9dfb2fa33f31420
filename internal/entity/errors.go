package entity

import (
	"errors"
	"fmt"
)

// Expected, user-facing failures. Request handlers map these to 4xx responses;
// everything else is treated as a storage failure and surfaced generically.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyJoined     = errors.New("user has already joined this signal")
	ErrSignalClosed      = errors.New("signal is closed for joining")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAutoModeLocked    = errors.New("auto mode cannot be disabled yet")
)

// ValidationError reports bad input parameters, rejected before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
