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

const requestDetailColumns = `r.id, r.request_id, r.service_type, r.title, r.description, r.priority, r.status,
r.location_id, r.department_id, r.created_by_id, r.assigned_to_id, r.requested_by, r.estimated_time,
r.completed_at, r.scheduled_date, r.scheduled_time, r.recurring, r.recurring_pattern, r.created_at, r.updated_at,
l.name AS location_name, d.name AS department_name,
TRIM(cu.first_name || ' ' || cu.last_name) AS created_by_name,
TRIM(au.first_name || ' ' || au.last_name) AS assigned_to_name,
cu.department AS created_by_department, au.department AS assigned_to_department`

const requestDetailJoins = `FROM requests r
LEFT JOIN locations l ON l.id = r.location_id
LEFT JOIN departments d ON d.id = r.department_id
LEFT JOIN users cu ON cu.id = r.created_by_id
LEFT JOIN users au ON au.id = r.assigned_to_id`

// RequestRepository provides database access for service requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO requests (id, request_id, service_type, title, description, priority, status, location_id, department_id, created_by_id, assigned_to_id, requested_by, estimated_time, completed_at, scheduled_date, scheduled_time, recurring, recurring_pattern, created_at, updated_at)
VALUES (:id, :request_id, :service_type, :title, :description, :priority, :status, :location_id, :department_id, :created_by_id, :assigned_to_id, :requested_by, :estimated_time, :completed_at, :scheduled_date, :scheduled_time, :recurring, :recurring_pattern, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// RefExists reports whether a human-readable request reference is taken.
func (r *RequestRepository) RefExists(ctx context.Context, ref string) (bool, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE request_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, ref); err != nil {
		return false, fmt.Errorf("check request ref: %w", err)
	}
	return count > 0, nil
}

// FindByID returns a request with joined display names.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.id = $1 LIMIT 1", requestDetailColumns, requestDetailJoins)
	var detail models.RequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return &detail, nil
}

// List returns requests matching the filter together with the total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("r.department_id = $%d", len(args)+1))
		args = append(args, *filter.DepartmentID)
	}
	if filter.AssignedToID != nil {
		conditions = append(conditions, fmt.Sprintf("r.assigned_to_id = $%d", len(args)+1))
		args = append(args, *filter.AssignedToID)
	}
	if filter.CreatedByID != nil {
		conditions = append(conditions, fmt.Sprintf("r.created_by_id = $%d", len(args)+1))
		args = append(args, *filter.CreatedByID)
	}
	if filter.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("r.location_id = $%d", len(args)+1))
		args = append(args, *filter.LocationID)
	}
	if filter.ServiceType != nil {
		conditions = append(conditions, fmt.Sprintf("r.service_type = $%d", len(args)+1))
		args = append(args, *filter.ServiceType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.title) LIKE $%d OR LOWER(r.request_id) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.ScheduledOnly {
		conditions = append(conditions, "(r.scheduled_date IS NOT NULL OR r.recurring = TRUE)")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY r.created_at DESC LIMIT %d OFFSET %d",
		requestDetailColumns, requestDetailJoins, where, pageSize, offset)

	var rows []models.RequestDetail
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM requests r%s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	return rows, total, nil
}

// Update persists the mutable fields of a request.
func (r *RequestRepository) Update(ctx context.Context, req *models.Request) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE requests SET service_type = :service_type, title = :title, description = :description, priority = :priority, status = :status, location_id = :location_id, department_id = :department_id, assigned_to_id = :assigned_to_id, requested_by = :requested_by, estimated_time = :estimated_time, completed_at = :completed_at, scheduled_date = :scheduled_date, scheduled_time = :scheduled_time, recurring = :recurring, recurring_pattern = :recurring_pattern, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}

// SetStatus updates the lifecycle column. completedAt is written only when
// non-nil, which keeps the original completion stamp on later transitions.
func (r *RequestRepository) SetStatus(ctx context.Context, id string, status models.RequestStatus, completedAt *time.Time) error {
	now := time.Now().UTC()
	if completedAt != nil {
		const query = `UPDATE requests SET status = $2, completed_at = $3, updated_at = $4 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, string(status), *completedAt, now); err != nil {
			return fmt.Errorf("set request status: %w", err)
		}
		return nil
	}
	const query = `UPDATE requests SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(status), now); err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return nil
}

// SetAssignee updates the assignment column.
func (r *RequestRepository) SetAssignee(ctx context.Context, id string, assigneeID *string, status models.RequestStatus) error {
	const query = `UPDATE requests SET assigned_to_id = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, assigneeID, string(status), time.Now().UTC()); err != nil {
		return fmt.Errorf("set request assignee: %w", err)
	}
	return nil
}

// Delete removes a request row. Ledger entries cascade at the schema level.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CompletedBetween returns the scoring projection for requests completed
// within [start, end), optionally restricted to a department.
func (r *RequestRepository) CompletedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.CompletedRequest, error) {
	query := `SELECT r.id, r.priority, r.created_at, r.completed_at, r.assigned_to_id, r.created_by_id,
TRIM(au.first_name || ' ' || au.last_name) AS assigned_to_name,
TRIM(cu.first_name || ' ' || cu.last_name) AS created_by_name
FROM requests r
LEFT JOIN users au ON au.id = r.assigned_to_id
LEFT JOIN users cu ON cu.id = r.created_by_id
WHERE r.completed_at IS NOT NULL AND r.completed_at >= $1 AND r.completed_at < $2`
	args := []interface{}{start, end}
	if departmentID != nil {
		query += fmt.Sprintf(" AND r.department_id = $%d", len(args)+1)
		args = append(args, *departmentID)
	}
	query += " ORDER BY r.completed_at ASC"
	var rows []models.CompletedRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list completed requests: %w", err)
	}
	return rows, nil
}

// CreatedBetween returns requests created inside [start, end), optionally
// restricted to a department. Used by report exports.
func (r *RequestRepository) CreatedBetween(ctx context.Context, start, end time.Time, departmentID *string) ([]models.RequestDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.created_at >= $1 AND r.created_at < $2", requestDetailColumns, requestDetailJoins)
	args := []interface{}{start, end}
	if departmentID != nil {
		query += fmt.Sprintf(" AND r.department_id = $%d", len(args)+1)
		args = append(args, *departmentID)
	}
	query += " ORDER BY r.created_at ASC"
	var rows []models.RequestDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list requests by creation window: %w", err)
	}
	return rows, nil
}

// OneOffScheduledBetween returns non-recurring requests scheduled inside
// [start, end).
func (r *RequestRepository) OneOffScheduledBetween(ctx context.Context, start, end time.Time) ([]models.RequestDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.recurring = FALSE AND r.scheduled_date >= $1 AND r.scheduled_date < $2 ORDER BY r.scheduled_date ASC, r.scheduled_time ASC NULLS LAST",
		requestDetailColumns, requestDetailJoins)
	var rows []models.RequestDetail
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, fmt.Errorf("list scheduled requests: %w", err)
	}
	return rows, nil
}

// Recurring returns all recurring requests that are still in flight.
func (r *RequestRepository) Recurring(ctx context.Context) ([]models.RequestDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.recurring = TRUE AND r.status NOT IN ('CLOSED', 'CANCELLED') ORDER BY r.created_at ASC",
		requestDetailColumns, requestDetailJoins)
	var rows []models.RequestDetail
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list recurring requests: %w", err)
	}
	return rows, nil
}

// CountCreatedBetween counts requests created inside [start, end).
func (r *RequestRepository) CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE created_at >= $1 AND created_at < $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, fmt.Errorf("count created requests: %w", err)
	}
	return count, nil
}

// CountCompletedBetween counts requests completed inside [start, end).
func (r *RequestRepository) CountCompletedBetween(ctx context.Context, start, end time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE completed_at IS NOT NULL AND completed_at >= $1 AND completed_at < $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, fmt.Errorf("count completed requests: %w", err)
	}
	return count, nil
}

// CountByStatus groups open workload by lifecycle state.
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM requests GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// AvgResponseMinutes averages creation-to-completion time for requests
// completed inside [start, end).
func (r *RequestRepository) AvgResponseMinutes(ctx context.Context, start, end time.Time) (float64, error) {
	const query = `SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 60), 0)
FROM requests WHERE completed_at IS NOT NULL AND completed_at >= $1 AND completed_at < $2`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, start, end); err != nil {
		return 0, fmt.Errorf("average response minutes: %w", err)
	}
	return avg, nil
}

// DailyMetrics returns per-day created and completed counts since the cutoff.
func (r *RequestRepository) DailyMetrics(ctx context.Context, since time.Time) ([]models.DailyRequestCount, error) {
	const query = `SELECT day, SUM(created) AS created, SUM(completed) AS completed FROM (
SELECT DATE_TRUNC('day', created_at) AS day, 1 AS created, 0 AS completed FROM requests WHERE created_at >= $1
UNION ALL
SELECT DATE_TRUNC('day', completed_at) AS day, 0 AS created, 1 AS completed FROM requests WHERE completed_at IS NOT NULL AND completed_at >= $1
) metrics GROUP BY day ORDER BY day ASC`
	var rows []models.DailyRequestCount
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("daily request metrics: %w", err)
	}
	return rows, nil
}

// CountByServiceType groups request volume by service type since the cutoff.
func (r *RequestRepository) CountByServiceType(ctx context.Context, since time.Time) (map[string]int, error) {
	const query = `SELECT service_type, COUNT(*) AS count FROM requests WHERE created_at >= $1 GROUP BY service_type`
	rows, err := r.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count requests by service type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var serviceType string
		var count int
		if err := rows.Scan(&serviceType, &count); err != nil {
			return nil, fmt.Errorf("scan service type count: %w", err)
		}
		counts[serviceType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service type counts: %w", err)
	}
	return counts, nil
}
