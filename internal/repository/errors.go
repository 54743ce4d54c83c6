// Package repository defines the store contract used by the services and
// its MySQL implementation. The sentinel errors below let higher layers
// tell "no such row" and "state changed under us" apart from genuine
// store failures.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional update finds the row
// already in the target state, e.g. a stand that is already reserved.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate")

// ErrDuplicateClient and ErrDuplicateStand name the reservations index an
// insert violated. Both match ErrDuplicate.
var (
	ErrDuplicateClient = fmt.Errorf("%w: client already holds a reservation", ErrDuplicate)
	ErrDuplicateStand  = fmt.Errorf("%w: stand already reserved", ErrDuplicate)
)
