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

// CatalogRepository provides database access for the service catalogue.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Create inserts a catalogue entry.
func (r *CatalogRepository) Create(ctx context.Context, svc *models.Service) error {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now
	const query = `INSERT INTO services (id, name, category, description, estimated_minutes, sla_minutes, department_id, active, created_at, updated_at)
VALUES (:id, :name, :category, :description, :estimated_minutes, :sla_minutes, :department_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, svc); err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// FindByID returns a catalogue entry by identifier.
func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*models.Service, error) {
	const query = `SELECT id, name, category, description, estimated_minutes, sla_minutes, department_id, active, created_at, updated_at FROM services WHERE id = $1 LIMIT 1`
	var svc models.Service
	if err := r.db.GetContext(ctx, &svc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find service by id: %w", err)
	}
	return &svc, nil
}

// FindByName returns an active catalogue entry by exact name, used to look
// up SLA targets for a request's service type.
func (r *CatalogRepository) FindByName(ctx context.Context, name string) (*models.Service, error) {
	const query = `SELECT id, name, category, description, estimated_minutes, sla_minutes, department_id, active, created_at, updated_at FROM services WHERE name = $1 AND active = TRUE LIMIT 1`
	var svc models.Service
	if err := r.db.GetContext(ctx, &svc, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find service by name: %w", err)
	}
	return &svc, nil
}

// List returns catalogue entries matching the filter.
func (r *CatalogRepository) List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error) {
	baseQuery := `SELECT id, name, category, description, estimated_minutes, sla_minutes, department_id, active, created_at, updated_at FROM services WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, *filter.DepartmentID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY category ASC, name ASC"

	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// Update updates mutable fields of a catalogue entry.
func (r *CatalogRepository) Update(ctx context.Context, svc *models.Service) error {
	svc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE services SET name = :name, category = :category, description = :description, estimated_minutes = :estimated_minutes, sla_minutes = :sla_minutes, department_id = :department_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, svc); err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// Delete performs a soft delete by marking the entry inactive.
func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE services SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return nil
}
