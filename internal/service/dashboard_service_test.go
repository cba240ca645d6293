package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
)

type dashboardStoreStub struct {
	created      int
	completed    int
	byStatus     map[string]int
	byStatusErr  error
	avgMinutes   float64
	daily        []models.DailyRequestCount
	byType       map[string]int
	createdErr   error
	completedErr error
}

func (s *dashboardStoreStub) CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error) {
	return s.created, s.createdErr
}

func (s *dashboardStoreStub) CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error) {
	return s.completed, s.completedErr
}

func (s *dashboardStoreStub) CountByStatus(ctx context.Context) (map[string]int, error) {
	if s.byStatusErr != nil {
		return nil, s.byStatusErr
	}
	return s.byStatus, nil
}

func (s *dashboardStoreStub) AvgResponseMinutes(ctx context.Context, start, end time.Time) (float64, error) {
	return s.avgMinutes, nil
}

func (s *dashboardStoreStub) DailyMetrics(ctx context.Context, since time.Time) ([]models.DailyRequestCount, error) {
	return s.daily, nil
}

func (s *dashboardStoreStub) CountByServiceType(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.byType, nil
}

type activityFeedStub struct {
	entries []models.ActivityDetail
	err     error
}

func (s *activityFeedStub) Recent(ctx context.Context, limit int) ([]models.ActivityDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

type staffCounterStub struct {
	count int
	err   error
}

func (s *staffCounterStub) CountActiveStaff(ctx context.Context) (int, error) {
	return s.count, s.err
}

func newDashboardForTest(store *dashboardStoreStub, feed *activityFeedStub, staff *staffCounterStub) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Requests:   store,
		Activities: feed,
		Staff:      staff,
		Logger:     zap.NewNop(),
	})
}

func TestDashboardStatsSumsPending(t *testing.T) {
	store := &dashboardStoreStub{
		created:   12,
		completed: 5,
		byStatus: map[string]int{
			"NEW":         3,
			"ASSIGNED":    2,
			"IN_PROGRESS": 4,
			"ON_HOLD":     1,
			"COMPLETED":   5,
			"CLOSED":      20,
		},
		avgMinutes: 42.5,
	}
	name := "Asha Rao"
	feed := &activityFeedStub{entries: []models.ActivityDetail{
		{Activity: models.Activity{ID: "a1", RequestID: "req-1", UserID: "u1", Action: "COMPLETED"}, UserName: &name},
	}}
	svc := newDashboardForTest(store, feed, &staffCounterStub{count: 7})

	resp, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.False(t, resp.Degraded)
	assert.Equal(t, 12, resp.TotalRequestsToday)
	assert.Equal(t, 5, resp.CompletedToday)
	assert.Equal(t, 10, resp.PendingRequests)
	assert.Equal(t, 7, resp.ActiveStaff)
	assert.Equal(t, 42.5, resp.AvgResponseMinutes)
	require.Len(t, resp.RecentActivities, 1)
	assert.Equal(t, "Asha Rao", resp.RecentActivities[0].UserName)
}

func TestDashboardStatsDegradesPerWidget(t *testing.T) {
	store := &dashboardStoreStub{
		created:     3,
		byStatusErr: errors.New("connection refused"),
	}
	svc := newDashboardForTest(store, &activityFeedStub{}, &staffCounterStub{count: 2})

	resp, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, 3, resp.TotalRequestsToday)
	assert.Equal(t, 0, resp.PendingRequests)
	assert.Equal(t, 2, resp.ActiveStaff)
}

func TestDashboardRequestMetricsFillsMissingDays(t *testing.T) {
	today := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	store := &dashboardStoreStub{
		daily: []models.DailyRequestCount{
			{Day: today.AddDate(0, 0, -1), Created: 4, Completed: 2},
		},
		byType: map[string]int{"Plumbing": 4},
	}
	svc := newDashboardForTest(store, &activityFeedStub{}, &staffCounterStub{})
	svc.now = func() time.Time { return today }

	resp, err := svc.RequestMetrics(context.Background(), dto.RequestMetricsQuery{Days: 7})
	require.NoError(t, err)

	assert.Equal(t, 7, resp.Days)
	require.Len(t, resp.Series, 7)
	assert.Equal(t, "2026-08-22", resp.Series[0].Date)
	assert.Equal(t, 0, resp.Series[0].Created)
	assert.Equal(t, 4, resp.Series[5].Created)
	assert.Equal(t, 2, resp.Series[5].Completed)
	assert.Equal(t, "2026-08-28", resp.Series[6].Date)
	assert.Equal(t, map[string]int{"Plumbing": 4}, resp.ByType)
}

func TestDashboardRequestMetricsDefaultWindow(t *testing.T) {
	store := &dashboardStoreStub{byType: map[string]int{}}
	svc := newDashboardForTest(store, &activityFeedStub{}, &staffCounterStub{})

	resp, err := svc.RequestMetrics(context.Background(), dto.RequestMetricsQuery{Days: 0})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.Days)
	assert.Len(t, resp.Series, 30)
}
