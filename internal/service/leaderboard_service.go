package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
	"github.com/careops/facilitydesk/pkg/export"
)

// Scoring constants for completed requests.
const (
	basePoints           = 10
	fastBonus            = 20
	quickBonus           = 10
	criticalBonus        = 15
	highBonus            = 10
	fastThreshold        = 30 * time.Minute
	quickThreshold       = 60 * time.Minute
	workhorseThreshold   = 10
	quickSolverThreshold = 5
)

type completedRequestLister interface {
	CompletedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.CompletedRequest, error)
}

// LeaderboardServiceConfig tunes leaderboard behaviour.
type LeaderboardServiceConfig struct {
	CacheTTL time.Duration
}

// LeaderboardService scores completed requests and ranks staff per month.
// A failed read degrades to an empty board so the portal page still renders.
type LeaderboardService struct {
	requests completedRequestLister
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      LeaderboardServiceConfig
}

// NewLeaderboardService constructs a LeaderboardService.
func NewLeaderboardService(requests completedRequestLister, cache *CacheService, logger *zap.Logger, cfg LeaderboardServiceConfig) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &LeaderboardService{requests: requests, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Monthly returns the ranked board for the given month. Zero year/month
// default to the current month.
func (s *LeaderboardService) Monthly(ctx context.Context, query dto.LeaderboardQuery) (*dto.LeaderboardResponse, error) {
	period := s.resolvePeriod(query)
	department := departmentFilter(query)
	cacheKey := fmt.Sprintf("leaderboard:%04d-%02d", period.Year, period.Month)
	if department != nil {
		cacheKey += ":dept:" + *department
	}

	if s.cache != nil {
		var cached dto.LeaderboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			cached.CacheHit = true
			return &cached, nil
		}
	}

	entries, err := s.Scores(ctx, period, department)
	if err != nil {
		s.logger.Warn("leaderboard degraded to empty board",
			zap.Int("year", period.Year),
			zap.Int("month", period.Month),
			zap.Error(err))
		return &dto.LeaderboardResponse{Period: period, Entries: []models.UserScore{}}, nil
	}

	resp := &dto.LeaderboardResponse{Period: period, Entries: entries}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, nil
}

// Scores computes the ranked entries for a period without cache or
// degradation, for callers that need a hard error (exports). A non-nil
// departmentID narrows scoring to that department's requests.
func (s *LeaderboardService) Scores(ctx context.Context, period models.LeaderboardPeriod, departmentID *string) ([]models.UserScore, error) {
	start := period.Start(time.UTC)
	end := period.End(time.UTC)

	completed, err := s.requests.CompletedBetween(ctx, start, end, departmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed requests")
	}

	type tally struct {
		score     models.UserScore
		fastCount int
		order     int
	}
	tallies := make(map[string]*tally)
	order := 0

	for _, req := range completed {
		userID, name, ok := attribution(req)
		if !ok {
			continue
		}
		entry, exists := tallies[userID]
		if !exists {
			entry = &tally{score: models.UserScore{UserID: userID, Name: name}, order: order}
			tallies[userID] = entry
			order++
		}

		points := basePoints
		if req.CompletedAt != nil {
			elapsed := req.CompletedAt.Sub(req.CreatedAt)
			switch {
			case elapsed < fastThreshold:
				points += fastBonus
				entry.fastCount++
			case elapsed < quickThreshold:
				points += quickBonus
			}
		}
		switch req.Priority {
		case models.PriorityCritical:
			points += criticalBonus
		case models.PriorityHigh:
			points += highBonus
		}

		entry.score.Points += points
		entry.score.CompletedRequests++
	}

	ranked := make([]*tally, 0, len(tallies))
	for _, entry := range tallies {
		ranked = append(ranked, entry)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score.Points != ranked[j].score.Points {
			return ranked[i].score.Points > ranked[j].score.Points
		}
		return ranked[i].order < ranked[j].order
	})

	entries := make([]models.UserScore, 0, len(ranked))
	for i, entry := range ranked {
		entry.score.Rank = i + 1
		entry.score.Achievements = entry.score.CompletedRequests
		entry.score.Badges = badges(entry.score, entry.fastCount)
		entries = append(entries, entry.score)
	}
	return entries, nil
}

// ExportCSV renders the ranked board for a month as a CSV download. Unlike
// Monthly this propagates storage errors, so a broken export is visible.
func (s *LeaderboardService) ExportCSV(ctx context.Context, query dto.LeaderboardQuery) (string, []byte, error) {
	period := s.resolvePeriod(query)
	entries, err := s.Scores(ctx, period, departmentFilter(query))
	if err != nil {
		return "", nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Rank", "Name", "Department", "Points", "Completed", "Achievements", "Badges"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Rank":         fmt.Sprintf("%d", entry.Rank),
			"Name":         entry.Name,
			"Department":   derefOr(entry.Department, ""),
			"Points":       fmt.Sprintf("%d", entry.Points),
			"Completed":    fmt.Sprintf("%d", entry.CompletedRequests),
			"Achievements": fmt.Sprintf("%d", entry.Achievements),
			"Badges":       strings.Join(entry.Badges, ", "),
		})
	}

	body, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render leaderboard csv")
	}
	filename := fmt.Sprintf("leaderboard-%04d-%02d.csv", period.Year, period.Month)
	return filename, body, nil
}

// attribution decides which user a completed request counts for: the
// assignee when present, the creator otherwise, nobody when both are empty.
func attribution(req models.CompletedRequest) (string, string, bool) {
	if req.AssignedToID != nil && *req.AssignedToID != "" {
		return *req.AssignedToID, derefOr(req.AssignedToName, ""), true
	}
	if req.CreatedByID != nil && *req.CreatedByID != "" {
		return *req.CreatedByID, derefOr(req.CreatedByName, ""), true
	}
	return "", "", false
}

// badges decorates a row with portal display labels. These are cosmetic;
// the achievements counter is the canonical per-completion tally.
func badges(score models.UserScore, fastCount int) []string {
	labels := []string{}
	if score.Rank == 1 {
		labels = append(labels, "TOP_PERFORMER")
	}
	if score.CompletedRequests >= workhorseThreshold {
		labels = append(labels, "WORKHORSE")
	}
	if fastCount >= quickSolverThreshold {
		labels = append(labels, "QUICK_SOLVER")
	}
	return labels
}

func (s *LeaderboardService) resolvePeriod(query dto.LeaderboardQuery) models.LeaderboardPeriod {
	if query.Year != 0 && query.Month >= 1 && query.Month <= 12 {
		return models.LeaderboardPeriod{Year: query.Year, Month: query.Month}
	}
	now := s.now().UTC()
	return models.LeaderboardPeriod{Year: now.Year(), Month: int(now.Month())}
}

func departmentFilter(query dto.LeaderboardQuery) *string {
	if query.DepartmentID == "" {
		return nil
	}
	id := query.DepartmentID
	return &id
}

func derefOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
