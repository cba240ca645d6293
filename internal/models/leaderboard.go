package models

import "time"

// UserScore is one leaderboard row: a user's aggregated points for a
// month window, ranked by points descending. Achievements counts one per
// completed request; Badges are decorative labels for the portal view.
type UserScore struct {
	Rank              int      `json:"rank"`
	UserID            string   `json:"user_id"`
	Name              string   `json:"name"`
	Department        *string  `json:"department,omitempty"`
	Points            int      `json:"points"`
	CompletedRequests int      `json:"completed_requests"`
	Achievements      int      `json:"achievements"`
	Badges            []string `json:"badges"`
}

// LeaderboardPeriod identifies the month window a leaderboard covers.
type LeaderboardPeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Start returns the inclusive start of the period in the given location.
func (p LeaderboardPeriod) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
}

// End returns the exclusive end of the period, one calendar month after Start.
func (p LeaderboardPeriod) End(loc *time.Location) time.Time {
	return p.Start(loc).AddDate(0, 1, 0)
}
