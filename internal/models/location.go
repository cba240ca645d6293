package models

import "time"

// Block groups locations under a physical wing or building.
type Block struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location is a serviceable area inside a block.
type Location struct {
	ID           string    `db:"id" json:"id"`
	BlockID      string    `db:"block_id" json:"block_id"`
	Name         string    `db:"name" json:"name"`
	Floor        *int      `db:"floor" json:"floor,omitempty"`
	AreaType     *string   `db:"area_type" json:"area_type,omitempty"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LocationDetail joins block and department names for listings.
type LocationDetail struct {
	Location
	BlockName      *string `db:"block_name" json:"block_name,omitempty"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
}

// LocationFilter narrows location listings.
type LocationFilter struct {
	BlockID *string
	Search  string
	Active  *bool
}
