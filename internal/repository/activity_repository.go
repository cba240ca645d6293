package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careops/facilitydesk/internal/models"
)

// ActivityRepository persists the append-only activity ledger.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a ledger entry. Entries are never updated or deleted.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activities (id, request_id, user_id, action, description, from_status, to_status, created_at)
VALUES (:id, :request_id, :user_id, :action, :description, :from_status, :to_status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ListByRequest returns the full ledger for a request in chronological order.
func (r *ActivityRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Activity, error) {
	const query = `SELECT id, request_id, user_id, action, description, from_status, to_status, created_at
FROM activities WHERE request_id = $1 ORDER BY created_at ASC, id ASC`
	var rows []models.Activity
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return rows, nil
}

// ListDetailByRequest returns the ledger with joined user display names.
func (r *ActivityRepository) ListDetailByRequest(ctx context.Context, requestID string) ([]models.ActivityDetail, error) {
	const query = `SELECT a.id, a.request_id, a.user_id, a.action, a.description, a.from_status, a.to_status, a.created_at,
TRIM(u.first_name || ' ' || u.last_name) AS user_name,
r.request_id AS request_ref, r.title AS request_title, r.service_type
FROM activities a
LEFT JOIN users u ON u.id = a.user_id
LEFT JOIN requests r ON r.id = a.request_id
WHERE a.request_id = $1 ORDER BY a.created_at ASC, a.id ASC`
	var rows []models.ActivityDetail
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("list activity detail: %w", err)
	}
	return rows, nil
}

// Recent returns the newest ledger entries across all requests.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.ActivityDetail, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT a.id, a.request_id, a.user_id, a.action, a.description, a.from_status, a.to_status, a.created_at,
TRIM(u.first_name || ' ' || u.last_name) AS user_name,
r.request_id AS request_ref, r.title AS request_title, r.service_type
FROM activities a
LEFT JOIN users u ON u.id = a.user_id
LEFT JOIN requests r ON r.id = a.request_id
ORDER BY a.created_at DESC LIMIT $1`
	var rows []models.ActivityDetail
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent activities: %w", err)
	}
	return rows, nil
}
