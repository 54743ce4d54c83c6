package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/achrefelouafi/evently-booking/internal/database"
	"github.com/achrefelouafi/evently-booking/internal/model"
)

const userColumns = "id, client_code, client_name, has_reserved"

// UserRepo provides data access to the users table.
type UserRepo struct{ db *database.Lazy }

func NewUserRepo(db *database.Lazy) *UserRepo { return &UserRepo{db: db} }

// GetByCode fetches a user by client code.
func (r *UserRepo) GetByCode(ctx context.Context, code string) (model.User, error) {
	db, err := r.db.Get(ctx)
	if err != nil {
		return model.User{}, err
	}
	var u model.User
	err = db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE client_code = ? LIMIT 1", code)
	return u, notFound(err)
}

// GetByNameForUpdateTx fetches a user by client name and locks the row
// for the rest of the transaction.
func (r *UserRepo) GetByNameForUpdateTx(ctx context.Context, tx *sqlx.Tx, name string) (model.User, error) {
	var u model.User
	err := tx.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE client_name = ? LIMIT 1 FOR UPDATE", name)
	return u, notFound(err)
}

// MarkReservedTx sets has_reserved on a user that has not reserved yet.
// It returns ErrConflict when the flag was already set.
func (r *UserRepo) MarkReservedTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET has_reserved = TRUE WHERE id = ? AND has_reserved = FALSE", id)
	return oneRow(res, err)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func oneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}
