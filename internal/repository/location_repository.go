package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careops/facilitydesk/internal/models"
)

// LocationRepository provides database access for blocks and locations.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new instance of LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// CreateBlock inserts a block row.
func (r *LocationRepository) CreateBlock(ctx context.Context, block *models.Block) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if block.CreatedAt.IsZero() {
		block.CreatedAt = now
	}
	block.UpdatedAt = now
	const query = `INSERT INTO blocks (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

// ListBlocks returns all blocks ordered by name.
func (r *LocationRepository) ListBlocks(ctx context.Context) ([]models.Block, error) {
	const query = `SELECT id, name, created_at, updated_at FROM blocks ORDER BY name ASC`
	var blocks []models.Block
	if err := r.db.SelectContext(ctx, &blocks, query); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

// Create inserts a location row.
func (r *LocationRepository) Create(ctx context.Context, loc *models.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = now
	}
	loc.UpdatedAt = now
	const query = `INSERT INTO locations (id, block_id, name, floor, area_type, department_id, active, created_at, updated_at)
VALUES (:id, :block_id, :name, :floor, :area_type, :department_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, loc); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// FindByID returns a location with joined names.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*models.LocationDetail, error) {
	const query = `SELECT l.id, l.block_id, l.name, l.floor, l.area_type, l.department_id, l.active, l.created_at, l.updated_at,
b.name AS block_name, d.name AS department_name
FROM locations l
LEFT JOIN blocks b ON b.id = l.block_id
LEFT JOIN departments d ON d.id = l.department_id
WHERE l.id = $1 LIMIT 1`
	var loc models.LocationDetail
	if err := r.db.GetContext(ctx, &loc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find location by id: %w", err)
	}
	return &loc, nil
}

// List returns locations matching the filter.
func (r *LocationRepository) List(ctx context.Context, filter models.LocationFilter) ([]models.LocationDetail, error) {
	baseQuery := `SELECT l.id, l.block_id, l.name, l.floor, l.area_type, l.department_id, l.active, l.created_at, l.updated_at,
b.name AS block_name, d.name AS department_name
FROM locations l
LEFT JOIN blocks b ON b.id = l.block_id
LEFT JOIN departments d ON d.id = l.department_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.BlockID != nil {
		conditions = append(conditions, fmt.Sprintf("l.block_id = $%d", len(args)+1))
		args = append(args, *filter.BlockID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("l.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(l.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY b.name ASC, l.name ASC"

	var locations []models.LocationDetail
	if err := r.db.SelectContext(ctx, &locations, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

// Update updates mutable fields of a location.
func (r *LocationRepository) Update(ctx context.Context, loc *models.Location) error {
	loc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE locations SET name = :name, floor = :floor, area_type = :area_type, department_id = :department_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, loc); err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// Delete performs a soft delete by marking the location inactive.
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE locations SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}
