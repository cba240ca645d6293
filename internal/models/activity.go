package models

import "time"

// Activity action labels. On a status change the action carries the new
// status value, mirroring how the ledger has always been written.
const (
	ActivityActionCreated    = "Created"
	ActivityActionUpdated    = "Updated"
	ActivityActionReassigned = "Reassigned"
)

// Activity is an immutable ledger entry recording a state-changing or
// assignment event on a request. Entries are ordered by CreatedAt and are
// never updated or removed individually; deleting a request cascades its
// ledger rows.
type Activity struct {
	ID          string         `db:"id" json:"id"`
	RequestID   string         `db:"request_id" json:"request_id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Action      string         `db:"action" json:"action"`
	Description *string        `db:"description" json:"description,omitempty"`
	FromStatus  *RequestStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus    *RequestStatus `db:"to_status" json:"to_status,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ActivityDetail joins the acting user's display name for feeds.
type ActivityDetail struct {
	Activity
	UserName     *string `db:"user_name" json:"user_name,omitempty"`
	RequestRef   *string `db:"request_ref" json:"request_ref,omitempty"`
	RequestTitle *string `db:"request_title" json:"request_title,omitempty"`
	ServiceType  *string `db:"service_type" json:"service_type,omitempty"`
}
