package model

import "time"

// Reservation pairs one user with one stand. Rows are written once
// by the booking engine and never updated or deleted.
//
// Fields:
//
//	ID        : primary key identifier.
//	ClientName: user who made the reservation.
//	StandName : name of the reserved stand at booking time.
//	StandID   : reference to exhibitions.id.
//	CreatedAt : creation timestamp.
type Reservation struct {
	ID         uint64    `db:"id"`          // reservations.id
	ClientName string    `db:"client_name"` // reservations.client_name
	StandName  string    `db:"stand_name"`  // reservations.stand_name
	StandID    uint64    `db:"stand_id"`    // reservations.stand_id
	CreatedAt  time.Time `db:"created_at"`  // reservations.created_at
}
