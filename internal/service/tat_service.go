package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

// Older ledger rows carry the transition only inside the description text.
var legacyTransitionPattern = regexp.MustCompile(`^Status changed from (\w+) to (\w+)`)

type tatActivityLister interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.Activity, error)
}

type tatRequestLoader interface {
	FindByID(ctx context.Context, id string) (*models.RequestDetail, error)
}

// TATService computes turnaround time for completed tickets. Time spent
// ON_HOLD is excluded, reconstructed from the activity ledger.
type TATService struct {
	requests   tatRequestLoader
	activities tatActivityLister
	catalog    serviceCatalogLookup
	logger     *zap.Logger
}

// NewTATService constructs a TATService.
func NewTATService(requests tatRequestLoader, activities tatActivityLister, catalog serviceCatalogLookup, logger *zap.Logger) *TATService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TATService{requests: requests, activities: activities, catalog: catalog, logger: logger}
}

// Compute returns the turnaround breakdown for a request. Requests that
// never reached COMPLETED report Applicable=false with a zeroed breakdown.
func (s *TATService) Compute(ctx context.Context, requestID string) (*dto.TATResponse, error) {
	detail, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	resp := &dto.TATResponse{RequestID: detail.RequestID}
	if detail.CompletedAt == nil {
		note := "turnaround time applies to completed requests only"
		resp.Note = &note
		resp.Display = "n/a"
		return resp, nil
	}

	entries, err := s.activities.ListByRequest(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request history")
	}

	completedAt := detail.CompletedAt.UTC()
	total := completedAt.Sub(detail.CreatedAt.UTC())
	if total < 0 {
		note := "completion precedes creation, turnaround not applicable"
		resp.Note = &note
		resp.Display = "n/a"
		return resp, nil
	}
	onHold := holdDuration(entries, completedAt)
	if onHold > total {
		onHold = total
	}
	net := total - onHold

	resp.Applicable = true
	resp.TotalMinutes = int(total.Minutes())
	resp.OnHoldMinutes = int(onHold.Minutes())
	resp.NetMinutes = int(net.Minutes())
	resp.Display = FormatTAT(net)

	s.attachSLA(ctx, detail, resp)
	return resp, nil
}

// holdDuration sums the intervals a request spent ON_HOLD, walking the
// ledger in order. An unclosed hold interval is clamped at completion.
func holdDuration(entries []models.Activity, completedAt time.Time) time.Duration {
	var total time.Duration
	var holdStart *time.Time

	for _, entry := range entries {
		from, to, ok := transitionOf(entry)
		if !ok {
			continue
		}
		if to == models.StatusOnHold {
			if holdStart == nil {
				ts := entry.CreatedAt
				holdStart = &ts
			}
			// A re-asserted hold keeps the original interval open.
			continue
		}
		if from == models.StatusOnHold && holdStart != nil {
			total += entry.CreatedAt.Sub(*holdStart)
			holdStart = nil
		}
	}

	if holdStart != nil && completedAt.After(*holdStart) {
		total += completedAt.Sub(*holdStart)
	}
	return total
}

// transitionOf extracts the from/to statuses of a ledger entry, preferring
// the structured columns and falling back to the legacy description text.
func transitionOf(entry models.Activity) (models.RequestStatus, models.RequestStatus, bool) {
	if entry.FromStatus != nil && entry.ToStatus != nil {
		return *entry.FromStatus, *entry.ToStatus, true
	}
	if entry.Description == nil {
		return "", "", false
	}
	match := legacyTransitionPattern.FindStringSubmatch(*entry.Description)
	if match == nil {
		return "", "", false
	}
	from, okFrom := models.ParseStatus(match[1])
	to, okTo := models.ParseStatus(match[2])
	if !okFrom || !okTo {
		return "", "", false
	}
	return from, to, true
}

// FormatTAT renders a duration in the compact day/hour/minute style used
// across the portal: "2d 3h", "4h 15m", "37m".
func FormatTAT(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60
	mins := minutes % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func (s *TATService) attachSLA(ctx context.Context, detail *models.RequestDetail, resp *dto.TATResponse) {
	if s.catalog == nil {
		return
	}
	svc, err := s.catalog.FindByName(ctx, detail.ServiceType)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("catalog lookup failed", zap.String("service_type", detail.ServiceType), zap.Error(err))
		}
		return
	}
	if svc.SLAMinutes == nil {
		return
	}
	resp.SLAMinutes = svc.SLAMinutes
	breached := resp.NetMinutes > *svc.SLAMinutes
	resp.SLABreached = &breached
}
