package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careops/facilitydesk/internal/models"
)

// LinkRepository provides database access for request submission links.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository creates a new instance of LinkRepository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a link row.
func (r *LinkRepository) Create(ctx context.Context, link *models.RequestLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_links (id, request_id, token, link_type, location_id, phone_number, expires_at, is_used, created_at)
VALUES (:id, :request_id, :token, :link_type, :location_id, :phone_number, :expires_at, :is_used, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("create request link: %w", err)
	}
	return nil
}

// FindByToken returns a link by its opaque token.
func (r *LinkRepository) FindByToken(ctx context.Context, token string) (*models.RequestLink, error) {
	const query = `SELECT id, request_id, token, link_type, location_id, phone_number, expires_at, is_used, created_at FROM request_links WHERE token = $1 LIMIT 1`
	var link models.RequestLink
	if err := r.db.GetContext(ctx, &link, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request link: %w", err)
	}
	return &link, nil
}

// MarkUsed flips the single-use flag. The WHERE clause guards against a
// concurrent submission winning the race; zero rows means the link was
// already consumed.
func (r *LinkRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE request_links SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark request link used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark request link used: %w", err)
	}
	return affected > 0, nil
}

// List returns links for admin review, newest first.
func (r *LinkRepository) List(ctx context.Context, limit int) ([]models.RequestLink, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, request_id, token, link_type, location_id, phone_number, expires_at, is_used, created_at FROM request_links ORDER BY created_at DESC LIMIT $1`
	var links []models.RequestLink
	if err := r.db.SelectContext(ctx, &links, query, limit); err != nil {
		return nil, fmt.Errorf("list request links: %w", err)
	}
	return links, nil
}
