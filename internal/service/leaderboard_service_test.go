package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
)

type completedListerStub struct {
	rows       []models.CompletedRequest
	err        error
	department *string
}

func (s *completedListerStub) CompletedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.CompletedRequest, error) {
	s.department = departmentID
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func completedReq(assignee, creator string, priority models.Priority, elapsed time.Duration) models.CompletedRequest {
	created := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	done := created.Add(elapsed)
	req := models.CompletedRequest{
		Priority:    priority,
		CreatedAt:   created,
		CompletedAt: &done,
	}
	if assignee != "" {
		name := assignee + " name"
		req.AssignedToID = &assignee
		req.AssignedToName = &name
	}
	if creator != "" {
		name := creator + " name"
		req.CreatedByID = &creator
		req.CreatedByName = &name
	}
	return req
}

func TestLeaderboardScoringBonuses(t *testing.T) {
	stub := &completedListerStub{rows: []models.CompletedRequest{
		// 10 base + 20 fast + 15 critical = 45
		completedReq("u1", "", models.PriorityCritical, 20*time.Minute),
		// 10 base + 10 quick + 10 high = 30
		completedReq("u2", "", models.PriorityHigh, 45*time.Minute),
		// 10 base only
		completedReq("u3", "", models.PriorityLow, 2*time.Hour),
	}}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	entries, err := svc.Scores(context.Background(), models.LeaderboardPeriod{Year: 2026, Month: 8}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "u1", entries[0].UserID)
	assert.Equal(t, 45, entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1, entries[0].Achievements)
	assert.Contains(t, entries[0].Badges, "TOP_PERFORMER")

	assert.Equal(t, "u2", entries[1].UserID)
	assert.Equal(t, 30, entries[1].Points)

	assert.Equal(t, "u3", entries[2].UserID)
	assert.Equal(t, 10, entries[2].Points)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboardAttributionFallsBackToCreator(t *testing.T) {
	stub := &completedListerStub{rows: []models.CompletedRequest{
		completedReq("", "creator-1", models.PriorityMedium, 2*time.Hour),
		completedReq("", "", models.PriorityMedium, 2*time.Hour),
	}}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	entries, err := svc.Scores(context.Background(), models.LeaderboardPeriod{Year: 2026, Month: 8}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "creator-1", entries[0].UserID)
	assert.Equal(t, 1, entries[0].CompletedRequests)
}

func TestLeaderboardTieBreakPreservesArrivalOrder(t *testing.T) {
	stub := &completedListerStub{rows: []models.CompletedRequest{
		completedReq("first", "", models.PriorityMedium, 2*time.Hour),
		completedReq("second", "", models.PriorityMedium, 2*time.Hour),
	}}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	entries, err := svc.Scores(context.Background(), models.LeaderboardPeriod{Year: 2026, Month: 8}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].UserID)
	assert.Equal(t, "second", entries[1].UserID)
}

func TestLeaderboardAchievementBadges(t *testing.T) {
	var rows []models.CompletedRequest
	for i := 0; i < 10; i++ {
		rows = append(rows, completedReq("busy", "", models.PriorityMedium, 10*time.Minute))
	}
	stub := &completedListerStub{rows: rows}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	entries, err := svc.Scores(context.Background(), models.LeaderboardPeriod{Year: 2026, Month: 8}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.ElementsMatch(t, []string{"TOP_PERFORMER", "WORKHORSE", "QUICK_SOLVER"}, entries[0].Badges)
	assert.Equal(t, 10, entries[0].CompletedRequests)
	assert.Equal(t, entries[0].CompletedRequests, entries[0].Achievements)
}

func TestLeaderboardMonthlyDegradesToEmptyBoard(t *testing.T) {
	stub := &completedListerStub{err: errors.New("connection refused")}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	resp, err := svc.Monthly(context.Background(), dto.LeaderboardQuery{Year: 2026, Month: 8})
	require.NoError(t, err)
	assert.Equal(t, 2026, resp.Period.Year)
	assert.Empty(t, resp.Entries)
}

func TestLeaderboardMonthlyDefaultsToCurrentMonth(t *testing.T) {
	stub := &completedListerStub{}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }

	resp, err := svc.Monthly(context.Background(), dto.LeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2026, resp.Period.Year)
	assert.Equal(t, 3, resp.Period.Month)
}

func TestLeaderboardExportCSV(t *testing.T) {
	stub := &completedListerStub{rows: []models.CompletedRequest{
		completedReq("u1", "", models.PriorityCritical, 20*time.Minute),
		completedReq("u2", "", models.PriorityLow, 2*time.Hour),
	}}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	filename, body, err := svc.ExportCSV(context.Background(), dto.LeaderboardQuery{Year: 2026, Month: 8})
	require.NoError(t, err)
	assert.Equal(t, "leaderboard-2026-08.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rank,Name,Department,Points,Completed,Achievements,Badges", lines[0])
	assert.Contains(t, lines[1], "u1 name")
	assert.Contains(t, lines[1], "45")
}

func TestLeaderboardExportCSVPropagatesError(t *testing.T) {
	stub := &completedListerStub{err: errors.New("connection refused")}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	_, _, err := svc.ExportCSV(context.Background(), dto.LeaderboardQuery{Year: 2026, Month: 8})
	require.Error(t, err)
}

func TestLeaderboardMonthlyDepartmentFilter(t *testing.T) {
	stub := &completedListerStub{}
	svc := NewLeaderboardService(stub, nil, zap.NewNop(), LeaderboardServiceConfig{})

	_, err := svc.Monthly(context.Background(), dto.LeaderboardQuery{Year: 2026, Month: 8, DepartmentID: "dept-9"})
	require.NoError(t, err)
	require.NotNil(t, stub.department)
	assert.Equal(t, "dept-9", *stub.department)
}
