package service

import (
	"errors"
	"fmt"
)

// Errors returned by the session and booking services. Store failures of
// any kind are reported as ErrStoreUnavailable, wrapped with the step that
// failed; callers may retry them.
var (
	ErrMissingInput     = errors.New("missing input")
	ErrInvalidCode      = errors.New("invalid client code")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyReserved  = errors.New("user has already reserved a stand")
	ErrStandNotFound    = errors.New("stand not found")
	ErrStandTaken       = errors.New("stand is already reserved")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrMissingInput):
		return KindValidation
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrStandNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyReserved), errors.Is(err, ErrStandTaken):
		return KindConflict
	case errors.Is(err, ErrInvalidCode):
		return KindAuth
	}
	return KindInternal
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// settled reports whether err is already one of this package's errors.
func settled(err error) bool {
	return KindOf(err) != KindInternal || errors.Is(err, ErrStoreUnavailable)
}
