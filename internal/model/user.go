package model

// User represents a client record as stored in the `users` table.
// Users are provisioned out-of-band; the booking engine only ever
// flips HasReserved from false to true.
//
// Fields:
//
//	ID         : primary key identifier of the user.
//	ClientCode : secret access code used to log in (unique).
//	ClientName : display name, unique, referenced by reservations.
//	HasReserved: whether the user already holds a reservation.
type User struct {
	ID          uint64 `db:"id"`           // users.id
	ClientCode  string `db:"client_code"`  // users.client_code
	ClientName  string `db:"client_name"`  // users.client_name
	HasReserved bool   `db:"has_reserved"` // users.has_reserved
}
