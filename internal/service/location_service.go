package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type locationRepository interface {
	CreateBlock(ctx context.Context, block *models.Block) error
	ListBlocks(ctx context.Context) ([]models.Block, error)
	Create(ctx context.Context, loc *models.Location) error
	FindByID(ctx context.Context, id string) (*models.LocationDetail, error)
	List(ctx context.Context, filter models.LocationFilter) ([]models.LocationDetail, error)
	Update(ctx context.Context, loc *models.Location) error
	Delete(ctx context.Context, id string) error
}

// LocationService manages blocks and the locations inside them.
type LocationService struct {
	repo      locationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLocationService creates an instance of LocationService.
func NewLocationService(repo locationRepository, validate *validator.Validate, logger *zap.Logger) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LocationService{repo: repo, validator: validate, logger: logger}
}

// CreateBlock adds a block.
func (s *LocationService) CreateBlock(ctx context.Context, payload dto.CreateBlockPayload) (*models.Block, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid block payload")
	}
	block := &models.Block{Name: payload.Name}
	if err := s.repo.CreateBlock(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create block")
	}
	return block, nil
}

// ListBlocks returns all blocks.
func (s *LocationService) ListBlocks(ctx context.Context) ([]models.Block, error) {
	blocks, err := s.repo.ListBlocks(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocks")
	}
	return blocks, nil
}

// Create adds a location to a block.
func (s *LocationService) Create(ctx context.Context, payload dto.CreateLocationPayload) (*models.LocationDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}
	loc := &models.Location{
		BlockID:      payload.BlockID,
		Name:         payload.Name,
		Floor:        payload.Floor,
		AreaType:     payload.AreaType,
		DepartmentID: payload.DepartmentID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, loc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create location")
	}
	return s.Get(ctx, loc.ID)
}

// Get returns a location with joined names.
func (s *LocationService) Get(ctx context.Context, id string) (*models.LocationDetail, error) {
	loc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	return loc, nil
}

// List returns locations matching the filter.
func (s *LocationService) List(ctx context.Context, filter models.LocationFilter) ([]models.LocationDetail, error) {
	locations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
	}
	return locations, nil
}

// Update modifies a location.
func (s *LocationService) Update(ctx context.Context, id string, payload dto.UpdateLocationPayload) (*models.LocationDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	loc := detail.Location

	if payload.Name != nil {
		loc.Name = *payload.Name
	}
	if payload.Floor != nil {
		loc.Floor = payload.Floor
	}
	if payload.AreaType != nil {
		loc.AreaType = payload.AreaType
	}
	if payload.DepartmentID != nil {
		loc.DepartmentID = payload.DepartmentID
	}
	if payload.Active != nil {
		loc.Active = *payload.Active
	}

	if err := s.repo.Update(ctx, &loc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update location")
	}
	return s.Get(ctx, id)
}

// Delete marks a location inactive. Requests keep their location reference.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location")
	}
	return nil
}
