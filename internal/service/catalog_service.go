package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type catalogRepository interface {
	Create(ctx context.Context, svc *models.Service) error
	FindByID(ctx context.Context, id string) (*models.Service, error)
	FindByName(ctx context.Context, name string) (*models.Service, error)
	List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error)
	Update(ctx context.Context, svc *models.Service) error
	Delete(ctx context.Context, id string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CatalogService manages the service catalogue and its SLA targets.
type CatalogService struct {
	repo      catalogRepository
	audits    auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService creates an instance of CatalogService.
func NewCatalogService(repo catalogRepository, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{repo: repo, audits: audits, validator: validate, logger: logger}
}

// List returns catalogue entries matching the filter.
func (s *CatalogService) List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error) {
	services, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list services")
	}
	return services, nil
}

// Get returns a catalogue entry by ID.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	return svc, nil
}

// Create adds a catalogue entry.
func (s *CatalogService) Create(ctx context.Context, payload dto.CreateServicePayload, actorID string) (*models.Service, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}

	if _, err := s.repo.FindByName(ctx, payload.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "service name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check service name")
	}

	svc := &models.Service{
		Name:             payload.Name,
		Category:         payload.Category,
		Description:      payload.Description,
		EstimatedMinutes: payload.EstimatedMinutes,
		SLAMinutes:       payload.SLAMinutes,
		DepartmentID:     payload.DepartmentID,
		Active:           true,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service")
	}

	s.recordChange(ctx, actorID, svc.ID, nil, svc)
	return svc, nil
}

// Update modifies a catalogue entry.
func (s *CatalogService) Update(ctx context.Context, id string, payload dto.UpdateServicePayload, actorID string) (*models.Service, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}

	svc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *svc

	if payload.Name != nil {
		svc.Name = *payload.Name
	}
	if payload.Category != nil {
		svc.Category = *payload.Category
	}
	if payload.Description != nil {
		svc.Description = payload.Description
	}
	if payload.EstimatedMinutes != nil {
		svc.EstimatedMinutes = payload.EstimatedMinutes
	}
	if payload.SLAMinutes != nil {
		svc.SLAMinutes = payload.SLAMinutes
	}
	if payload.DepartmentID != nil {
		svc.DepartmentID = payload.DepartmentID
	}
	if payload.Active != nil {
		svc.Active = *payload.Active
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service")
	}

	s.recordChange(ctx, actorID, svc.ID, &before, svc)
	return svc, nil
}

// Delete retires a catalogue entry. Existing requests keep referencing the
// service type by name, so this is a soft delete.
func (s *CatalogService) Delete(ctx context.Context, id string, actorID string) error {
	svc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete service")
	}
	retired := *svc
	retired.Active = false
	s.recordChange(ctx, actorID, id, svc, &retired)
	return nil
}

func (s *CatalogService) recordChange(ctx context.Context, actorID, serviceID string, before, after *models.Service) {
	if s.audits == nil {
		return
	}
	var oldPayload, newPayload json.RawMessage
	if before != nil {
		oldPayload, _ = json.Marshal(before)
	}
	if after != nil {
		newPayload, _ = json.Marshal(after)
	}
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionCatalogChange,
		Resource:   "services",
		ResourceID: &serviceID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
	}); err != nil {
		s.logger.Warn("failed to record catalog audit log", zap.Error(err))
	}
}
