package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/achrefelouafi/evently-booking/internal/database"
	"github.com/achrefelouafi/evently-booking/internal/model"
)

const standColumns = "id, name, is_reserved"

// StandRepo provides data access to the exhibitions table.
type StandRepo struct{ db *database.Lazy }

func NewStandRepo(db *database.Lazy) *StandRepo { return &StandRepo{db: db} }

// List returns every stand ordered by id. An empty table yields an
// empty, non-nil slice so that it encodes as [].
func (r *StandRepo) List(ctx context.Context) ([]model.Stand, error) {
	db, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	stands := []model.Stand{}
	if err := db.SelectContext(ctx, &stands,
		"SELECT "+standColumns+" FROM exhibitions ORDER BY id"); err != nil {
		return nil, err
	}
	return stands, nil
}

// GetByNameForUpdateTx fetches a stand by name and locks the row.
func (r *StandRepo) GetByNameForUpdateTx(ctx context.Context, tx *sqlx.Tx, name string) (model.Stand, error) {
	var s model.Stand
	err := tx.GetContext(ctx, &s,
		"SELECT "+standColumns+" FROM exhibitions WHERE name = ? LIMIT 1 FOR UPDATE", name)
	return s, notFound(err)
}

// MarkReservedTx flips is_reserved on a free stand. It returns
// ErrConflict when the stand was already reserved.
func (r *StandRepo) MarkReservedTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE exhibitions SET is_reserved = TRUE WHERE id = ? AND is_reserved = FALSE", id)
	return oneRow(res, err)
}
