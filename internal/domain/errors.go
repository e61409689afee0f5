package domain

import "errors"

// Error taxonomy shared by the exchange client, fiat service and API layer.
var (
	// ErrNetwork covers transport failures, upstream 5xx and undecodable responses.
	ErrNetwork = errors.New("network failure")
	// ErrValidation is returned by synchronous input checks before any request is sent.
	ErrValidation = errors.New("validation failed")
	// ErrBusinessRule is an upstream rejection such as insufficient balance or missing KYC.
	ErrBusinessRule = errors.New("rejected by exchange")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
