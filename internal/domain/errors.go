package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrNotFound           = errors.New("user not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFederatedOnly      = errors.New("google login only")
	ErrInvalidOrExpired   = errors.New("invalid or expired token")

	ErrInvalidDifficulty error = &ValidationError{Msg: "Invalid difficulty"}
)

// ValidationError carries a caller-facing message and matches ErrValidation.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(msg string) error { return &ValidationError{Msg: msg} }
