package dto

import (
	"time"

	"github.com/careops/facilitydesk/internal/models"
)

// CreateRequestPayload captures POST /requests.
type CreateRequestPayload struct {
	ServiceType      string  `json:"serviceType" validate:"required"`
	Title            string  `json:"title" validate:"required"`
	Description      *string `json:"description,omitempty"`
	Priority         int     `json:"priority" validate:"omitempty,min=1,max=4"`
	LocationID       *string `json:"locationId,omitempty" validate:"omitempty,uuid"`
	DepartmentID     *string `json:"departmentId,omitempty" validate:"omitempty,uuid"`
	AssignedToID     *string `json:"assignedToId,omitempty" validate:"omitempty,uuid"`
	RequestedBy      *string `json:"requestedBy,omitempty"`
	EstimatedTime    *int    `json:"estimatedTime,omitempty" validate:"omitempty,min=1"`
	ScheduledDate    *string `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime    *string `json:"scheduledTime,omitempty"`
	Recurring        bool    `json:"recurring"`
	RecurringPattern *string `json:"recurringPattern,omitempty"`
	RecurringDays    []int   `json:"recurringDays,omitempty" validate:"omitempty,dive,min=0,max=6"`
}

// UpdateRequestPayload captures PATCH /requests/:id. All fields optional.
type UpdateRequestPayload struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Priority      *int    `json:"priority,omitempty" validate:"omitempty,min=1,max=4"`
	Status        *string `json:"status,omitempty"`
	AssignedToID  *string `json:"assignedToId,omitempty" validate:"omitempty,uuid"`
	LocationID    *string `json:"locationId,omitempty" validate:"omitempty,uuid"`
	DepartmentID  *string `json:"departmentId,omitempty" validate:"omitempty,uuid"`
	EstimatedTime *int    `json:"estimatedTime,omitempty" validate:"omitempty,min=1"`
	ScheduledDate *string `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime *string `json:"scheduledTime,omitempty"`
}

// StatusChangePayload captures PATCH /requests/:id/status.
type StatusChangePayload struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty"`
}

// AssignPayload captures PATCH /requests/:id/assign.
type AssignPayload struct {
	AssignedToID string `json:"assignedToId" validate:"required,uuid"`
}

// RequestQuery filters GET /requests.
type RequestQuery struct {
	Status       string `form:"status"`
	DepartmentID string `form:"departmentId"`
	AssignedToID string `form:"assignedTo"`
	CreatedByID  string `form:"createdBy"`
	LocationID   string `form:"locationId"`
	ServiceType  string `form:"serviceType"`
	Search       string `form:"search"`
	Scheduled    bool   `form:"scheduled"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}

// RequestResponse is the API shape for a single request.
type RequestResponse struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"requestId"`
	ServiceType      string     `json:"serviceType"`
	Title            string     `json:"title"`
	Description      *string    `json:"description,omitempty"`
	Priority         int        `json:"priority"`
	Status           string     `json:"status"`
	LocationID       *string    `json:"locationId,omitempty"`
	LocationName     *string    `json:"locationName,omitempty"`
	DepartmentID     *string    `json:"departmentId,omitempty"`
	DepartmentName   *string    `json:"departmentName,omitempty"`
	CreatedByID      string     `json:"createdById"`
	CreatedByName    string     `json:"createdByName"`
	AssignedToID     *string    `json:"assignedToId,omitempty"`
	AssignedToName   *string    `json:"assignedToName,omitempty"`
	RequestedBy      *string    `json:"requestedBy,omitempty"`
	EstimatedTime    *int       `json:"estimatedTime,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	ScheduledDate    *string    `json:"scheduledDate,omitempty"`
	ScheduledTime    *string    `json:"scheduledTime,omitempty"`
	Recurring        bool       `json:"recurring"`
	RecurringPattern *string    `json:"recurringPattern,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ActivityResponse is one ledger entry in a request's history.
type ActivityResponse struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"requestId"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Action      string    `json:"action"`
	Description *string   `json:"description,omitempty"`
	FromStatus  *string   `json:"fromStatus,omitempty"`
	ToStatus    *string   `json:"toStatus,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TATResponse reports turnaround time for a completed request.
type TATResponse struct {
	RequestID     string  `json:"requestId"`
	Applicable    bool    `json:"applicable"`
	TotalMinutes  int     `json:"totalMinutes"`
	OnHoldMinutes int     `json:"onHoldMinutes"`
	NetMinutes    int     `json:"netMinutes"`
	Display       string  `json:"display"`
	SLAMinutes    *int    `json:"slaMinutes,omitempty"`
	SLABreached   *bool   `json:"slaBreached,omitempty"`
	Note          *string `json:"note,omitempty"`
}

// FromModel maps a joined request row into the response shape.
func RequestResponseFromModel(r *models.RequestDetail) RequestResponse {
	resp := RequestResponse{
		ID:               r.ID,
		RequestID:        r.RequestID,
		ServiceType:      r.ServiceType,
		Title:            r.Title,
		Description:      r.Description,
		Priority:         int(r.Priority),
		Status:           string(r.Status),
		LocationID:       r.LocationID,
		LocationName:     r.LocationName,
		DepartmentID:     r.DepartmentID,
		DepartmentName:   r.DepartmentName,
		CreatedByID:      r.CreatedByID,
		AssignedToID:     r.AssignedToID,
		AssignedToName:   r.AssignedToName,
		RequestedBy:      r.RequestedBy,
		EstimatedTime:    r.EstimatedTime,
		CompletedAt:      r.CompletedAt,
		Recurring:        r.Recurring,
		RecurringPattern: r.RecurringPattern,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.CreatedByName != nil {
		resp.CreatedByName = *r.CreatedByName
	}
	if r.ScheduledDate != nil {
		formatted := r.ScheduledDate.Format("2006-01-02")
		resp.ScheduledDate = &formatted
	}
	resp.ScheduledTime = r.ScheduledTime
	return resp
}
