package repository

import (
	"context"

	"github.com/achrefelouafi/evently-booking/internal/model"
)

// Store is the persistence contract of the booking backend. Lookups that
// feed a reservation decision only exist on Tx so that they always run
// under the same transaction as the writes they guard.
type Store interface {
	FindUserByCode(ctx context.Context, code string) (model.User, error)
	ListStands(ctx context.Context) ([]model.Stand, error)
	// InTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view handed to Store.InTx callbacks. Find
// methods lock the returned row until the transaction ends.
type Tx interface {
	FindUserByName(ctx context.Context, name string) (model.User, error)
	FindStandByName(ctx context.Context, name string) (model.Stand, error)
	SetStandReserved(ctx context.Context, standID uint64) error
	SetUserReserved(ctx context.Context, userID uint64) error
	InsertReservation(ctx context.Context, clientName, standName string, standID uint64) error
}
