package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	"github.com/careops/facilitydesk/pkg/export"
	"github.com/careops/facilitydesk/pkg/storage"
)

type reportDataStub struct{}

func (reportDataStub) CreatedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.RequestDetail, error) {
	created := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	completed := created.Add(45 * time.Minute)
	row := models.RequestDetail{
		Request: models.Request{
			ID:          "req-1",
			RequestID:   "REQ-2026-0042",
			ServiceType: "Plumbing",
			Title:       "Leaking tap in ward 3",
			Priority:    models.PriorityHigh,
			Status:      models.StatusCompleted,
			CreatedAt:   created,
			CompletedAt: &completed,
		},
		LocationName:   strPtr("Ward 3"),
		AssignedToName: strPtr("Asha Rao"),
	}
	return []models.RequestDetail{row}, nil
}

func (reportDataStub) CompletedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.CompletedRequest, error) {
	created := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	completed := created.Add(45 * time.Minute)
	return []models.CompletedRequest{
		{ID: "req-1", Priority: models.PriorityHigh, CreatedAt: created, CompletedAt: &completed, AssignedToName: strPtr("Asha Rao")},
	}, nil
}

type scoresStub struct{}

func (scoresStub) Scores(ctx context.Context, period models.LeaderboardPeriod, departmentID *string) ([]models.UserScore, error) {
	return []models.UserScore{
		{Rank: 1, UserID: "user-1", Name: "Asha Rao", Points: 55, CompletedRequests: 2, Achievements: 2, Badges: []string{"TOP_PERFORMER"}},
	}, nil
}

type tatStub struct{}

func (tatStub) Compute(ctx context.Context, requestID string) (*dto.TATResponse, error) {
	return &dto.TATResponse{
		RequestID:     "REQ-2026-0042",
		Applicable:    true,
		TotalMinutes:  45,
		OnHoldMinutes: 0,
		NetMinutes:    45,
		Display:       "45m",
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.ReportArchive) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewReportArchive(dir)
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("secret", time.Hour)
	svc := NewExportService(ExportServiceParams{
		Requests:    reportDataStub{},
		Leaderboard: scoresStub{},
		TAT:         tatStub{},
		Storage:     store,
		Signer:      signer,
		CSV:         export.NewCSVExporter(),
		PDF:         export.NewPDFExporter(),
		Logger:      zap.NewNop(),
		Config:      ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour},
	})
	return svc, store
}

func TestExportServiceGenerateRequestsCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeRequests,
		Params:    models.ReportJobParams{Year: 2026, Month: 8, Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/export/")

	path := store.Path(result.RelativePath)
	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(payload), "REQ-2026-0042")
	require.Contains(t, string(payload), "Leaking tap in ward 3")
}

func TestExportServiceGenerateLeaderboardPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeLeaderboard,
		Params:    models.ReportJobParams{Year: 2026, Month: 8, Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateTATCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-3",
		Type:      models.ReportTypeTAT,
		Params:    models.ReportJobParams{Days: 30, Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	payload, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Contains(t, string(payload), "45m")
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeRequests,
		Params: models.ReportJobParams{Year: 2026, Month: 8, Format: models.ReportFormat("xlsx")},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
