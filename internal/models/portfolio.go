package models

import (
	"time"

	"github.com/google/uuid"
)

// Portfolio represents a saved portfolio definition
type Portfolio struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	Allocations []Allocation `json:"allocations"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Allocation represents a target weight for one asset within a portfolio.
// Percentage is expressed in the (0, 100] range; a portfolio's allocations
// are expected to sum to 100 within a 0.01 tolerance.
type Allocation struct {
	AssetID    string  `db:"asset_id" json:"asset_id"`
	Percentage float64 `db:"percentage" json:"percentage"`
}
