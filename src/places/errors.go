package places

import (
	"errors"
	"fmt"

	"wheelofmeals/src/types"
)

// Sentinels for errors.Is checks against a *Error of the matching kind.
var (
	ErrConfig       = errors.New("places: configuration error")
	ErrNetwork      = errors.New("places: network error")
	ErrProvider     = errors.New("places: provider error")
	ErrInvalidInput = errors.New("places: invalid input")
)

// Error is returned by Client.Search for every failure. Kind classifies it.
type Error struct {
	Kind types.ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("places %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("places %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfig:
		return e.Kind == types.ConfigError
	case ErrNetwork:
		return e.Kind == types.NetworkError
	case ErrProvider:
		return e.Kind == types.ProviderError
	case ErrInvalidInput:
		return e.Kind == types.InvalidInput
	}
	return false
}

func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// KindOf extracts the ErrorKind of err. Errors that did not come from this package
// are reported as provider errors.
func KindOf(err error) types.ErrorKind {
	if err == nil {
		return types.KindNone
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return types.ProviderError
}

func newError(kind types.ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
