package domain

import "errors"

// Error kinds shared by every contract module. Module errors wrap exactly one
// of these so callers can classify failures with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrValidation        = errors.New("validation failed")
)

var kinds = []error{
	ErrUnauthorized,
	ErrNotFound,
	ErrAlreadyExists,
	ErrInvalidState,
	ErrInsufficientFunds,
	ErrValidation,
}

// Kind returns the error kind err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
