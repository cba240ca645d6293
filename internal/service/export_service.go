package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	"github.com/careops/facilitydesk/pkg/export"
	"github.com/careops/facilitydesk/pkg/storage"
)

type requestReportStore interface {
	CreatedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.RequestDetail, error)
	CompletedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.CompletedRequest, error)
}

type scoreProvider interface {
	Scores(ctx context.Context, period models.LeaderboardPeriod, departmentID *string) ([]models.UserScore, error)
}

type tatComputer interface {
	Compute(ctx context.Context, requestID string) (*dto.TATResponse, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	requests    requestReportStore
	leaderboard scoreProvider
	tat         tatComputer
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.DownloadSigner
	logger      *zap.Logger
	now         func() time.Time
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Requests    requestReportStore
	Leaderboard scoreProvider
	TAT         tatComputer
	Storage     fileStorage
	Signer      *storage.DownloadSigner
	CSV         csvRenderer
	PDF         pdfRenderer
	Logger      *zap.Logger
	Config      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		requests:    params.Requests,
		leaderboard: params.Leaderboard,
		tat:         params.TAT,
		storage:     params.Storage,
		csv:         csv,
		pdf:         pdf,
		signer:      params.Signer,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), periodLabel(job.Params, s.now), timestamp, job.Params.Format)
}

// periodLabel renders the reporting window for filenames and titles.
func periodLabel(params models.ReportJobParams, now func() time.Time) string {
	if params.Days > 0 {
		return fmt.Sprintf("last%dd", params.Days)
	}
	year, month := params.Year, params.Month
	if year == 0 || month < 1 || month > 12 {
		ts := now().UTC()
		year, month = ts.Year(), int(ts.Month())
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

// reportWindow resolves the [start, end) window a job covers.
func reportWindow(params models.ReportJobParams, now func() time.Time) (time.Time, time.Time) {
	if params.Days > 0 {
		end := now().UTC()
		return end.AddDate(0, 0, -params.Days), end
	}
	year, month := params.Year, params.Month
	if year == 0 || month < 1 || month > 12 {
		ts := now().UTC()
		year, month = ts.Year(), int(ts.Month())
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeRequests:
		return s.buildRequestsDataset(ctx, job.Params)
	case models.ReportTypeLeaderboard:
		return s.buildLeaderboardDataset(ctx, job.Params)
	case models.ReportTypeTAT:
		return s.buildTATDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildRequestsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	start, end := reportWindow(params, s.now)
	rows, err := s.requests.CreatedBetween(ctx, start, end, params.DepartmentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Reference":    row.RequestID,
			"Title":        row.Title,
			"Service Type": row.ServiceType,
			"Priority":     fmt.Sprintf("%d", row.Priority),
			"Status":       string(row.Status),
			"Location":     derefString(row.LocationName),
			"Department":   derefString(row.DepartmentName),
			"Created By":   derefString(row.CreatedByName),
			"Assigned To":  derefString(row.AssignedToName),
			"Created At":   row.CreatedAt.UTC().Format(time.RFC3339),
			"Completed At": formatReportTime(row.CompletedAt),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Reference", "Title", "Service Type", "Priority", "Status", "Location", "Department", "Created By", "Assigned To", "Created At", "Completed At"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Requests Report %s", periodLabel(params, s.now))
	return dataset, title, nil
}

func (s *ExportService) buildLeaderboardDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	year, month := params.Year, params.Month
	if year == 0 || month < 1 || month > 12 {
		ts := s.now().UTC()
		year, month = ts.Year(), int(ts.Month())
	}
	scores, err := s.leaderboard.Scores(ctx, models.LeaderboardPeriod{Year: year, Month: month}, params.DepartmentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(scores))
	for _, score := range scores {
		dataRows = append(dataRows, map[string]string{
			"Rank":         fmt.Sprintf("%d", score.Rank),
			"Name":         score.Name,
			"Department":   derefString(score.Department),
			"Points":       fmt.Sprintf("%d", score.Points),
			"Completed":    fmt.Sprintf("%d", score.CompletedRequests),
			"Achievements": fmt.Sprintf("%d", score.Achievements),
			"Badges":       strings.Join(score.Badges, ", "),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Rank", "Name", "Department", "Points", "Completed", "Achievements", "Badges"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Leaderboard %04d-%02d", year, month)
	return dataset, title, nil
}

func (s *ExportService) buildTATDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	start, end := reportWindow(params, s.now)
	completed, err := s.requests.CompletedBetween(ctx, start, end, params.DepartmentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(completed))
	for _, row := range completed {
		tat, err := s.tat.Compute(ctx, row.ID)
		if err != nil {
			s.logger.Warn("skipping request in turnaround report", zap.String("request_id", row.ID), zap.Error(err))
			continue
		}
		sla := ""
		breached := ""
		if tat.SLAMinutes != nil {
			sla = fmt.Sprintf("%d", *tat.SLAMinutes)
		}
		if tat.SLABreached != nil {
			breached = fmt.Sprintf("%t", *tat.SLABreached)
		}
		dataRows = append(dataRows, map[string]string{
			"Reference":       tat.RequestID,
			"Assigned To":     derefString(row.AssignedToName),
			"Total Minutes":   fmt.Sprintf("%d", tat.TotalMinutes),
			"On Hold Minutes": fmt.Sprintf("%d", tat.OnHoldMinutes),
			"Net Minutes":     fmt.Sprintf("%d", tat.NetMinutes),
			"TAT":             tat.Display,
			"SLA Minutes":     sla,
			"SLA Breached":    breached,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Reference", "Assigned To", "Total Minutes", "On Hold Minutes", "Net Minutes", "TAT", "SLA Minutes", "SLA Breached"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Turnaround Report %s", periodLabel(params, s.now))
	return dataset, title, nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
