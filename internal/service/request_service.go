package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

const requestRefAttempts = 5

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	RefExists(ctx context.Context, ref string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.RequestDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	Update(ctx context.Context, req *models.Request) error
	SetStatus(ctx context.Context, id string, status models.RequestStatus, completedAt *time.Time) error
	SetAssignee(ctx context.Context, id string, assigneeID *string, status models.RequestStatus) error
	Delete(ctx context.Context, id string) error
}

type activityStore interface {
	Create(ctx context.Context, activity *models.Activity) error
	ListDetailByRequest(ctx context.Context, requestID string) ([]models.ActivityDetail, error)
}

type serviceCatalogLookup interface {
	FindByName(ctx context.Context, name string) (*models.Service, error)
}

// RequestServiceParams groups constructor dependencies.
type RequestServiceParams struct {
	Requests   requestStore
	Activities activityStore
	Catalog    serviceCatalogLookup
	Cache      *CacheService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// RequestService owns the ticket lifecycle: creation, updates, the status
// state machine and the activity ledger that records every change.
type RequestService struct {
	requests   requestStore
	activities activityStore
	catalog    serviceCatalogLookup
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	refSuffix  func() int
}

// NewRequestService constructs a RequestService.
func NewRequestService(params RequestServiceParams) *RequestService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{
		requests:   params.Requests,
		activities: params.Activities,
		catalog:    params.Catalog,
		cache:      params.Cache,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
		refSuffix:  func() int { return rand.Intn(10000) },
	}
}

// Create registers a new ticket, assigns it a human-readable reference and
// writes the opening ledger entry.
func (s *RequestService) Create(ctx context.Context, payload dto.CreateRequestPayload, creatorID string) (*models.RequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	priority := models.Priority(payload.Priority)
	if payload.Priority == 0 {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidPriority, "")
	}

	req := &models.Request{
		ServiceType:   payload.ServiceType,
		Title:         payload.Title,
		Description:   payload.Description,
		Priority:      priority,
		Status:        models.StatusNew,
		LocationID:    payload.LocationID,
		DepartmentID:  payload.DepartmentID,
		CreatedByID:   creatorID,
		AssignedToID:  payload.AssignedToID,
		RequestedBy:   payload.RequestedBy,
		EstimatedTime: payload.EstimatedTime,
	}

	if payload.ScheduledDate != nil {
		day, err := time.Parse("2006-01-02", *payload.ScheduledDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scheduledDate must be YYYY-MM-DD")
		}
		req.ScheduledDate = &day
		req.ScheduledTime = payload.ScheduledTime
	}

	if payload.Recurring {
		encoded, err := s.encodeRecurrence(payload)
		if err != nil {
			return nil, err
		}
		req.Recurring = true
		req.RecurringPattern = &encoded
	}

	if payload.AssignedToID != nil {
		req.Status = models.StatusAssigned
	}

	s.fillCatalogDefaults(ctx, req)

	ref, err := s.nextRequestRef(ctx)
	if err != nil {
		return nil, err
	}
	req.RequestID = ref

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.appendLedger(ctx, &models.Activity{
		RequestID:   req.ID,
		UserID:      creatorID,
		Action:      models.ActivityActionCreated,
		Description: strPtr("Request created"),
		ToStatus:    &req.Status,
	})

	return s.load(ctx, req.ID)
}

// Get returns a ticket with joined display names.
func (s *RequestService) Get(ctx context.Context, id string) (*models.RequestDetail, error) {
	return s.load(ctx, id)
}

// History returns the ticket's full activity ledger.
func (s *RequestService) History(ctx context.Context, id string) ([]models.ActivityDetail, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.activities.ListDetailByRequest(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request history")
	}
	return entries, nil
}

// List returns tickets matching the filter.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error) {
	rows, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update applies partial field changes and records an "Updated" ledger
// entry. Status changes must go through ChangeStatus.
func (s *RequestService) Update(ctx context.Context, id string, payload dto.UpdateRequestPayload, actorID string) (*models.RequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if payload.Status != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status changes must use the status endpoint")
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	req := detail.Request

	if payload.Title != nil {
		req.Title = *payload.Title
	}
	if payload.Description != nil {
		req.Description = payload.Description
	}
	if payload.Priority != nil {
		priority := models.Priority(*payload.Priority)
		if !priority.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidPriority, "")
		}
		req.Priority = priority
	}
	if payload.LocationID != nil {
		req.LocationID = payload.LocationID
	}
	if payload.DepartmentID != nil {
		req.DepartmentID = payload.DepartmentID
	}
	if payload.EstimatedTime != nil {
		req.EstimatedTime = payload.EstimatedTime
	}
	if payload.ScheduledDate != nil {
		day, err := time.Parse("2006-01-02", *payload.ScheduledDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scheduledDate must be YYYY-MM-DD")
		}
		req.ScheduledDate = &day
	}
	if payload.ScheduledTime != nil {
		req.ScheduledTime = payload.ScheduledTime
	}

	reassigned := false
	if payload.AssignedToID != nil && (req.AssignedToID == nil || *req.AssignedToID != *payload.AssignedToID) {
		req.AssignedToID = payload.AssignedToID
		reassigned = true
	}

	if err := s.requests.Update(ctx, &req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	if reassigned {
		s.appendLedger(ctx, &models.Activity{
			RequestID:   req.ID,
			UserID:      actorID,
			Action:      models.ActivityActionReassigned,
			Description: strPtr("Request reassigned"),
		})
	} else {
		s.appendLedger(ctx, &models.Activity{
			RequestID:   req.ID,
			UserID:      actorID,
			Action:      models.ActivityActionUpdated,
			Description: strPtr("Request updated"),
		})
	}

	return s.load(ctx, id)
}

// ChangeStatus moves a ticket through the lifecycle state machine. Illegal
// transitions are rejected; the first arrival at COMPLETED stamps the
// completion time and later transitions never clear it. Re-asserting the
// current status is a real transition: it still writes a ledger entry.
func (s *RequestService) ChangeStatus(ctx context.Context, id string, payload dto.StatusChangePayload, actorID string) (*models.RequestDetail, error) {
	target, ok := models.ParseStatus(payload.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown status %q", payload.Status))
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	current := detail.Status

	if !models.CanTransition(current, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move request from %s to %s", current, target))
	}

	var completedAt *time.Time
	if target == models.StatusCompleted && detail.CompletedAt == nil {
		ts := s.now().UTC()
		completedAt = &ts
	}

	if err := s.requests.SetStatus(ctx, id, target, completedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change request status")
	}

	description := fmt.Sprintf("Status changed from %s to %s", current, target)
	if payload.Note != nil && *payload.Note != "" {
		description = fmt.Sprintf("%s: %s", description, *payload.Note)
	}
	s.appendLedger(ctx, &models.Activity{
		RequestID:   id,
		UserID:      actorID,
		Action:      string(target),
		Description: &description,
		FromStatus:  &current,
		ToStatus:    &target,
	})

	if target == models.StatusCompleted {
		s.invalidateDerived(ctx)
	}

	return s.load(ctx, id)
}

// Assign sets or changes the responsible staff member. Assigning a NEW
// ticket moves it to ASSIGNED; reassignments keep the current status and
// record a "Reassigned" ledger entry only when the assignee changes.
func (s *RequestService) Assign(ctx context.Context, id string, payload dto.AssignPayload, actorID string) (*models.RequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assign payload")
	}

	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot assign a closed or cancelled request")
	}

	status := detail.Status
	firstAssignment := detail.AssignedToID == nil
	sameAssignee := detail.AssignedToID != nil && *detail.AssignedToID == payload.AssignedToID
	if firstAssignment && status == models.StatusNew {
		status = models.StatusAssigned
	}

	if err := s.requests.SetAssignee(ctx, id, &payload.AssignedToID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign request")
	}

	if firstAssignment && status != detail.Status {
		from := detail.Status
		description := fmt.Sprintf("Status changed from %s to %s", from, status)
		s.appendLedger(ctx, &models.Activity{
			RequestID:   id,
			UserID:      actorID,
			Action:      string(status),
			Description: &description,
			FromStatus:  &from,
			ToStatus:    &status,
		})
	} else if !sameAssignee {
		s.appendLedger(ctx, &models.Activity{
			RequestID:   id,
			UserID:      actorID,
			Action:      models.ActivityActionReassigned,
			Description: strPtr("Request reassigned"),
		})
	}

	return s.load(ctx, id)
}

// Delete removes a request and its ledger. Route-level RBAC restricts this
// to administrators.
func (s *RequestService) Delete(ctx context.Context, id string, actorID string) error {
	detail, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	s.logger.Info("request deleted",
		zap.String("requestId", detail.RequestID),
		zap.String("actorId", actorID))
	s.invalidateDerived(ctx)
	return nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.RequestDetail, error) {
	detail, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return detail, nil
}

// nextRequestRef builds REQ-<year>-<4 digits>, retrying on collision.
func (s *RequestService) nextRequestRef(ctx context.Context) (string, error) {
	year := s.now().UTC().Year()
	for attempt := 0; attempt < requestRefAttempts; attempt++ {
		ref := fmt.Sprintf("REQ-%d-%04d", year, s.refSuffix())
		taken, err := s.requests.RefExists(ctx, ref)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate request reference")
		}
		if !taken {
			return ref, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique request reference")
}

func (s *RequestService) encodeRecurrence(payload dto.CreateRequestPayload) (string, error) {
	if payload.RecurringPattern == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "recurring requests need a pattern")
	}
	rule := models.RecurrenceRule{Pattern: models.RecurrencePattern(*payload.RecurringPattern)}
	for _, day := range payload.RecurringDays {
		rule.Weekdays = append(rule.Weekdays, time.Weekday(day))
	}
	encoded, err := rule.Encode()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurring pattern")
	}
	return encoded, nil
}

// fillCatalogDefaults copies SLA hints from the catalogue entry matching the
// service type. Best effort; a missing entry is not an error.
func (s *RequestService) fillCatalogDefaults(ctx context.Context, req *models.Request) {
	if s.catalog == nil || req.EstimatedTime != nil && req.DepartmentID != nil {
		return
	}
	svc, err := s.catalog.FindByName(ctx, req.ServiceType)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("catalog lookup failed", zap.String("service_type", req.ServiceType), zap.Error(err))
		}
		return
	}
	if req.EstimatedTime == nil && svc.EstimatedMinutes != nil {
		req.EstimatedTime = svc.EstimatedMinutes
	}
	if req.DepartmentID == nil && svc.DepartmentID != nil {
		req.DepartmentID = svc.DepartmentID
	}
}

func (s *RequestService) appendLedger(ctx context.Context, entry *models.Activity) {
	entry.CreatedAt = s.now().UTC()
	if err := s.activities.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append activity ledger entry",
			zap.String("request_id", entry.RequestID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

func (s *RequestService) invalidateDerived(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "leaderboard:*"); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func strPtr(v string) *string {
	return &v
}
