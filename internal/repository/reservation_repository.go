package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/achrefelouafi/evently-booking/internal/database"
	"github.com/achrefelouafi/evently-booking/internal/model"
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

// Unique keys on reservations, as named in migrations/001_init.sql.
const (
	keyReservationClient = "uq_reservations_client"
	keyReservationStand  = "uq_reservations_stand"
)

// ReservationRepo writes rows into the reservations table. Reservations
// are append-only: there is no update or delete.
type ReservationRepo struct{ db *database.Lazy }

func NewReservationRepo(db *database.Lazy) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts res and populates its generated ID. A unique index
// violation maps to ErrDuplicateClient or ErrDuplicateStand by key name,
// and to plain ErrDuplicate when the key cannot be told.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (client_name, stand_name, stand_id) VALUES (?, ?, ?)",
		res.ClientName, res.StandName, res.StandID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return duplicateKey(me.Message)
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// duplicateKey reads the violated key from a 1062 message such as
// "Duplicate entry 'Alice' for key 'reservations.uq_reservations_client'".
func duplicateKey(msg string) error {
	switch {
	case strings.Contains(msg, keyReservationClient):
		return ErrDuplicateClient
	case strings.Contains(msg, keyReservationStand):
		return ErrDuplicateStand
	}
	return ErrDuplicate
}
