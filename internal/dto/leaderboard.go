package dto

import "github.com/careops/facilitydesk/internal/models"

// LeaderboardQuery selects the month window for GET /leaderboard, optionally
// narrowed to one department.
type LeaderboardQuery struct {
	Year         int    `form:"year"`
	Month        int    `form:"month"`
	DepartmentID string `form:"departmentId"`
}

// LeaderboardResponse carries the ranked entries for one month.
type LeaderboardResponse struct {
	Period   models.LeaderboardPeriod `json:"period"`
	Entries  []models.UserScore       `json:"entries"`
	CacheHit bool                     `json:"-"`
}
