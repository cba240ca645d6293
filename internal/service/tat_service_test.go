package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/models"
)

type tatRequestStub struct {
	detail *models.RequestDetail
}

func (s *tatRequestStub) FindByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	return s.detail, nil
}

type tatActivityStub struct {
	entries []models.Activity
}

func (s *tatActivityStub) ListByRequest(ctx context.Context, requestID string) ([]models.Activity, error) {
	return s.entries, nil
}

type tatCatalogStub struct {
	svc *models.Service
}

func (s *tatCatalogStub) FindByName(ctx context.Context, name string) (*models.Service, error) {
	return s.svc, nil
}

func statusPtr(s models.RequestStatus) *models.RequestStatus { return &s }

func completedDetail(created, completed time.Time) *models.RequestDetail {
	return &models.RequestDetail{Request: models.Request{
		ID:          "req-1",
		RequestID:   "REQ-2026-0001",
		ServiceType: "Plumbing",
		Status:      models.StatusCompleted,
		CreatedAt:   created,
		CompletedAt: &completed,
	}}
}

func TestTATComputeExcludesHoldTime(t *testing.T) {
	created := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	completed := created.Add(5 * time.Hour)

	activities := &tatActivityStub{entries: []models.Activity{
		{
			RequestID:  "req-1",
			FromStatus: statusPtr(models.StatusInProgress),
			ToStatus:   statusPtr(models.StatusOnHold),
			CreatedAt:  created.Add(time.Hour),
		},
		{
			RequestID:  "req-1",
			FromStatus: statusPtr(models.StatusOnHold),
			ToStatus:   statusPtr(models.StatusInProgress),
			CreatedAt:  created.Add(3 * time.Hour),
		},
	}}

	svc := NewTATService(&tatRequestStub{detail: completedDetail(created, completed)}, activities, nil, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	assert.True(t, resp.Applicable)
	assert.Equal(t, 300, resp.TotalMinutes)
	assert.Equal(t, 120, resp.OnHoldMinutes)
	assert.Equal(t, 180, resp.NetMinutes)
	assert.Equal(t, "3h 0m", resp.Display)
}

func TestTATComputeClampsUnclosedHold(t *testing.T) {
	created := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	completed := created.Add(2 * time.Hour)

	activities := &tatActivityStub{entries: []models.Activity{
		{
			RequestID:  "req-1",
			FromStatus: statusPtr(models.StatusAssigned),
			ToStatus:   statusPtr(models.StatusOnHold),
			CreatedAt:  created.Add(90 * time.Minute),
		},
	}}

	svc := NewTATService(&tatRequestStub{detail: completedDetail(created, completed)}, activities, nil, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	assert.Equal(t, 120, resp.TotalMinutes)
	assert.Equal(t, 30, resp.OnHoldMinutes)
	assert.Equal(t, 90, resp.NetMinutes)
}

func TestTATComputeReassertedHoldKeepsIntervalOpen(t *testing.T) {
	created := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	completed := created.Add(4 * time.Hour)

	activities := &tatActivityStub{entries: []models.Activity{
		{
			RequestID:  "req-1",
			FromStatus: statusPtr(models.StatusInProgress),
			ToStatus:   statusPtr(models.StatusOnHold),
			CreatedAt:  created.Add(time.Hour),
		},
		{
			RequestID:  "req-1",
			FromStatus: statusPtr(models.StatusOnHold),
			ToStatus:   statusPtr(models.StatusOnHold),
			CreatedAt:  created.Add(2 * time.Hour),
		},
		{
			RequestID:  "req-1",
			FromStatus: statusPtr(models.StatusOnHold),
			ToStatus:   statusPtr(models.StatusInProgress),
			CreatedAt:  created.Add(3 * time.Hour),
		},
	}}

	svc := NewTATService(&tatRequestStub{detail: completedDetail(created, completed)}, activities, nil, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	// The repeated hold entry must not close the interval early.
	assert.Equal(t, 120, resp.OnHoldMinutes)
	assert.Equal(t, 120, resp.NetMinutes)
}

func TestTATComputeLegacyDescriptionFallback(t *testing.T) {
	created := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	completed := created.Add(4 * time.Hour)

	toHold := "Status changed from IN_PROGRESS to ON_HOLD"
	fromHold := "Status changed from ON_HOLD to IN_PROGRESS: parts arrived"
	activities := &tatActivityStub{entries: []models.Activity{
		{RequestID: "req-1", Description: &toHold, CreatedAt: created.Add(time.Hour)},
		{RequestID: "req-1", Description: &fromHold, CreatedAt: created.Add(2 * time.Hour)},
	}}

	svc := NewTATService(&tatRequestStub{detail: completedDetail(created, completed)}, activities, nil, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	assert.Equal(t, 60, resp.OnHoldMinutes)
	assert.Equal(t, 180, resp.NetMinutes)
}

func TestTATComputeNotCompleted(t *testing.T) {
	detail := &models.RequestDetail{Request: models.Request{
		ID:        "req-1",
		RequestID: "REQ-2026-0002",
		Status:    models.StatusInProgress,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}}

	svc := NewTATService(&tatRequestStub{detail: detail}, &tatActivityStub{}, nil, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	assert.False(t, resp.Applicable)
	assert.Equal(t, "n/a", resp.Display)
	require.NotNil(t, resp.Note)
}

func TestTATComputeAttachesSLA(t *testing.T) {
	created := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	completed := created.Add(3 * time.Hour)
	sla := 120

	catalog := &tatCatalogStub{svc: &models.Service{Name: "Plumbing", SLAMinutes: &sla}}
	svc := NewTATService(&tatRequestStub{detail: completedDetail(created, completed)}, &tatActivityStub{}, catalog, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	require.NotNil(t, resp.SLAMinutes)
	assert.Equal(t, 120, *resp.SLAMinutes)
	require.NotNil(t, resp.SLABreached)
	assert.True(t, *resp.SLABreached)
}

func TestFormatTAT(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{51 * time.Hour, "2d 3h"},
		{4*time.Hour + 15*time.Minute, "4h 15m"},
		{37 * time.Minute, "37m"},
		{0, "0m"},
		{-time.Hour, "0m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatTAT(tc.in), tc.in.String())
	}
}

func TestTATComputeInconsistentTimestampsNotApplicable(t *testing.T) {
	created := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	completed := created.Add(-time.Hour)

	svc := NewTATService(&tatRequestStub{detail: completedDetail(created, completed)}, &tatActivityStub{}, nil, zap.NewNop())
	resp, err := svc.Compute(context.Background(), "req-1")
	require.NoError(t, err)

	assert.False(t, resp.Applicable)
	assert.Equal(t, "n/a", resp.Display)
	require.NotNil(t, resp.Note)
}
