package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SeedUser is a user to provision.
type SeedUser struct {
	ClientCode string `json:"clientCode"`
	ClientName string `json:"clientName"`
}

// SeedStand is a stand to provision.
type SeedStand struct {
	Name string `json:"name"`
}

// SeedData is the seed file layout.
type SeedData struct {
	Users  []SeedUser  `json:"users"`
	Stands []SeedStand `json:"stands"`
}

// SeedResult counts rows actually inserted. Rows that already existed are
// skipped.
type SeedResult struct {
	Users  int64
	Stands int64
}

// Seed inserts data in one transaction. It is idempotent: existing codes,
// names and stands are left untouched.
func Seed(ctx context.Context, db *sqlx.DB, data SeedData) (SeedResult, error) {
	var res SeedResult
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range data.Users {
		if u.ClientCode == "" || u.ClientName == "" {
			return res, fmt.Errorf("seed user %q: clientCode and clientName are required", u.ClientName)
		}
		r, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO users (client_code, client_name, has_reserved) VALUES (?, ?, FALSE)`,
			u.ClientCode, u.ClientName)
		if err != nil {
			return res, fmt.Errorf("seed user %q: %w", u.ClientName, err)
		}
		n, _ := r.RowsAffected()
		res.Users += n
	}
	for _, s := range data.Stands {
		if s.Name == "" {
			return res, fmt.Errorf("seed stand: name is required")
		}
		r, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO exhibitions (name, is_reserved) VALUES (?, FALSE)`, s.Name)
		if err != nil {
			return res, fmt.Errorf("seed stand %q: %w", s.Name, err)
		}
		n, _ := r.RowsAffected()
		res.Stands += n
	}
	if err := tx.Commit(); err != nil {
		return SeedResult{}, err
	}
	return res, nil
}
