package models

import "time"

// Company represents a school unit served by the portal. Import runs are
// always scoped to a single company.
type Company struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Active           bool      `db:"active" json:"active"`
	ImportAPIKeyHash string    `db:"import_api_key_hash" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
