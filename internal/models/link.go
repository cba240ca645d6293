package models

import "time"

// RequestLink is a single-use, time-boxed token bound to a placeholder
// request, allowing an external party to submit ticket details without
// authentication. Once used or expired, the link is permanently inert.
type RequestLink struct {
	ID          string     `db:"id" json:"id"`
	RequestID   string     `db:"request_id" json:"request_id"`
	Token       string     `db:"token" json:"token"`
	LinkType    string     `db:"link_type" json:"link_type"`
	LocationID  *string    `db:"location_id" json:"location_id,omitempty"`
	PhoneNumber *string    `db:"phone_number" json:"phone_number,omitempty"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsUsed      bool       `db:"is_used" json:"is_used"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Usable reports whether the link may still accept a submission.
func (l *RequestLink) Usable(now time.Time) bool {
	if l.IsUsed {
		return false
	}
	if l.ExpiresAt != nil && now.After(*l.ExpiresAt) {
		return false
	}
	return true
}
