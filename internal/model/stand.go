package model

// Stand is a bookable exhibition slot stored in the `exhibitions`
// table. The JSON shape is what the front-end lists.
//
// Fields:
//
//	ID        : primary key identifier.
//	Name      : unique stand name used by booking requests.
//	IsReserved: true once a reservation references this stand.
type Stand struct {
	ID         uint64 `db:"id" json:"_id"`                 // exhibitions.id
	Name       string `db:"name" json:"name"`              // exhibitions.name
	IsReserved bool   `db:"is_reserved" json:"isReserved"` // exhibitions.is_reserved
}
