package models

import "time"

// Service is a catalogue entry describing a bookable facility service
// together with its SLA targets.
type Service struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Category         string    `db:"category" json:"category"`
	Description      *string   `db:"description" json:"description,omitempty"`
	EstimatedMinutes *int      `db:"estimated_minutes" json:"estimated_minutes,omitempty"`
	SLAMinutes       *int      `db:"sla_minutes" json:"sla_minutes,omitempty"`
	DepartmentID     *string   `db:"department_id" json:"department_id,omitempty"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ServiceFilter narrows catalogue listings.
type ServiceFilter struct {
	Category     string
	DepartmentID *string
	Active       *bool
	Search       string
}
