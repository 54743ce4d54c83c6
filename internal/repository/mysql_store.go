package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/achrefelouafi/evently-booking/internal/database"
	"github.com/achrefelouafi/evently-booking/internal/model"
)

// MySQLStore implements Store on top of the lazily connected pool. Every
// call runs under its own deadline of Timeout.
type MySQLStore struct {
	db           *database.Lazy
	timeout      time.Duration
	users        *UserRepo
	stands       *StandRepo
	reservations *ReservationRepo
}

// NewMySQLStore wires the repositories over db. A zero timeout disables
// the per-call deadline.
func NewMySQLStore(db *database.Lazy, timeout time.Duration) *MySQLStore {
	return &MySQLStore{
		db:           db,
		timeout:      timeout,
		users:        NewUserRepo(db),
		stands:       NewStandRepo(db),
		reservations: NewReservationRepo(db),
	}
}

func (s *MySQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MySQLStore) FindUserByCode(ctx context.Context, code string) (model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.GetByCode(ctx, code)
}

func (s *MySQLStore) ListStands(ctx context.Context) ([]model.Stand, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.stands.List(ctx)
}

// InTx begins a transaction, hands fn a Tx bound to it and commits when
// fn succeeds. Any error, including a failed commit, rolls back. The
// store timeout bounds the connection and, separately, the whole
// transaction from BEGIN to COMMIT.
func (s *MySQLStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	connCtx, cancel := s.withTimeout(ctx)
	db, err := s.db.Get(connCtx)
	cancel()
	if err != nil {
		return err
	}

	txCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	tx, err := db.BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(txCtx, &mysqlTx{store: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mysqlTx applies the store timeout to each statement of the transaction.
type mysqlTx struct {
	store *MySQLStore
	tx    *sqlx.Tx
}

func (t *mysqlTx) FindUserByName(ctx context.Context, name string) (model.User, error) {
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()
	return t.store.users.GetByNameForUpdateTx(ctx, t.tx, name)
}

func (t *mysqlTx) FindStandByName(ctx context.Context, name string) (model.Stand, error) {
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()
	return t.store.stands.GetByNameForUpdateTx(ctx, t.tx, name)
}

func (t *mysqlTx) SetStandReserved(ctx context.Context, standID uint64) error {
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()
	return t.store.stands.MarkReservedTx(ctx, t.tx, standID)
}

func (t *mysqlTx) SetUserReserved(ctx context.Context, userID uint64) error {
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()
	return t.store.users.MarkReservedTx(ctx, t.tx, userID)
}

func (t *mysqlTx) InsertReservation(ctx context.Context, clientName, standName string, standID uint64) error {
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()
	return t.store.reservations.CreateTx(ctx, t.tx, &model.Reservation{
		ClientName: clientName,
		StandName:  standName,
		StandID:    standID,
	})
}
