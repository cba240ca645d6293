package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type dashboardRequestStore interface {
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error)
	CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	AvgResponseMinutes(ctx context.Context, start, end time.Time) (float64, error)
	DailyMetrics(ctx context.Context, since time.Time) ([]models.DailyRequestCount, error)
	CountByServiceType(ctx context.Context, since time.Time) (map[string]int, error)
}

type activityFeedLister interface {
	Recent(ctx context.Context, limit int) ([]models.ActivityDetail, error)
}

type staffCounter interface {
	CountActiveStaff(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL           time.Duration
	RecentActivityRows int
	MetricsDefaultDays int
}

// DashboardService composes the operational overview. Each widget loads
// independently; a failed widget is zeroed and flagged rather than failing
// the whole payload.
type DashboardService struct {
	requests   dashboardRequestStore
	activities activityFeedLister
	staff      staffCounter
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Requests   dashboardRequestStore
	Activities activityFeedLister
	Staff      staffCounter
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.RecentActivityRows <= 0 {
		cfg.RecentActivityRows = 10
	}
	if cfg.MetricsDefaultDays <= 0 {
		cfg.MetricsDefaultDays = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		requests:   params.Requests,
		activities: params.Activities,
		staff:      params.Staff,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Stats returns today's operational overview.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	today := truncateToDay(s.now())
	tomorrow := today.AddDate(0, 0, 1)
	cacheKey := fmt.Sprintf("dashboard:stats:%s", today.Format("2006-01-02"))

	if s.cache != nil {
		var cached dto.DashboardStatsResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	resp := &dto.DashboardStatsResponse{
		RequestsByStatus: map[string]int{},
		RecentActivities: []dto.ActivityResponse{},
	}

	var err error
	if resp.TotalRequestsToday, err = s.requests.CountCreatedBetween(ctx, today, tomorrow); err != nil {
		s.degrade(resp, "created count", err)
	}
	if resp.CompletedToday, err = s.requests.CountCompletedBetween(ctx, today, tomorrow); err != nil {
		s.degrade(resp, "completed count", err)
	}
	if counts, err := s.requests.CountByStatus(ctx); err != nil {
		s.degrade(resp, "status counts", err)
	} else {
		resp.RequestsByStatus = counts
		for _, status := range []models.RequestStatus{models.StatusNew, models.StatusAssigned, models.StatusInProgress, models.StatusActionTaken, models.StatusOnHold} {
			resp.PendingRequests += counts[string(status)]
		}
	}
	if resp.ActiveStaff, err = s.staff.CountActiveStaff(ctx); err != nil {
		s.degrade(resp, "active staff", err)
	}
	if resp.AvgResponseMinutes, err = s.requests.AvgResponseMinutes(ctx, today, tomorrow); err != nil {
		s.degrade(resp, "average response", err)
	}
	if recent, err := s.activities.Recent(ctx, s.cfg.RecentActivityRows); err != nil {
		s.degrade(resp, "recent activities", err)
	} else {
		resp.RecentActivities = activityResponses(recent)
	}

	if s.cache != nil && !resp.Degraded {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, nil
}

// RequestMetrics returns the trailing request volume trend.
func (s *DashboardService) RequestMetrics(ctx context.Context, query dto.RequestMetricsQuery) (*dto.RequestMetricsResponse, error) {
	days := query.Days
	if days <= 0 || days > 365 {
		days = s.cfg.MetricsDefaultDays
	}
	since := truncateToDay(s.now()).AddDate(0, 0, -days+1)

	rows, err := s.requests.DailyMetrics(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request metrics")
	}
	byType, err := s.requests.CountByServiceType(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request metrics")
	}

	byDay := make(map[string]models.DailyRequestCount, len(rows))
	for _, row := range rows {
		byDay[truncateToDay(row.Day).Format("2006-01-02")] = row
	}

	series := make([]dto.DailyRequestMetric, 0, days)
	for i := 0; i < days; i++ {
		date := since.AddDate(0, 0, i).Format("2006-01-02")
		entry := dto.DailyRequestMetric{Date: date}
		if row, ok := byDay[date]; ok {
			entry.Created = row.Created
			entry.Completed = row.Completed
		}
		series = append(series, entry)
	}

	return &dto.RequestMetricsResponse{Days: days, Series: series, ByType: byType}, nil
}

func (s *DashboardService) degrade(resp *dto.DashboardStatsResponse, widget string, err error) {
	resp.Degraded = true
	s.logger.Warn("dashboard widget degraded", zap.String("widget", widget), zap.Error(err))
}

func activityResponses(entries []models.ActivityDetail) []dto.ActivityResponse {
	out := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.ActivityResponse{
			ID:          entry.ID,
			RequestID:   entry.RequestID,
			UserID:      entry.UserID,
			Action:      entry.Action,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		}
		if entry.UserName != nil {
			item.UserName = *entry.UserName
		}
		if entry.FromStatus != nil {
			from := string(*entry.FromStatus)
			item.FromStatus = &from
		}
		if entry.ToStatus != nil {
			to := string(*entry.ToStatus)
			item.ToStatus = &to
		}
		out = append(out, item)
	}
	return out
}
