package models

import "time"

// RequestStatus represents a ticket's lifecycle state.
type RequestStatus string

const (
	StatusNew         RequestStatus = "NEW"
	StatusAssigned    RequestStatus = "ASSIGNED"
	StatusInProgress  RequestStatus = "IN_PROGRESS"
	StatusActionTaken RequestStatus = "ACTION_TAKEN"
	StatusCompleted   RequestStatus = "COMPLETED"
	StatusClosed      RequestStatus = "CLOSED"
	StatusOnHold      RequestStatus = "ON_HOLD"
	StatusCancelled   RequestStatus = "CANCELLED"
)

// AllStatuses lists every recognised lifecycle state.
var AllStatuses = []RequestStatus{
	StatusNew,
	StatusAssigned,
	StatusInProgress,
	StatusActionTaken,
	StatusCompleted,
	StatusClosed,
	StatusOnHold,
	StatusCancelled,
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (RequestStatus, bool) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further handling is expected.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// inFlight states may be put on hold or cancelled at any point.
func (s RequestStatus) inFlight() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusActionTaken, StatusOnHold:
		return true
	}
	return false
}

// transitions maps each state to the set of states it may move forward to.
// ON_HOLD and CANCELLED are handled separately since they are reachable from
// every in-flight state.
var transitions = map[RequestStatus][]RequestStatus{
	StatusNew:         {StatusAssigned, StatusInProgress, StatusActionTaken, StatusCompleted},
	StatusAssigned:    {StatusInProgress, StatusActionTaken, StatusCompleted},
	StatusInProgress:  {StatusActionTaken, StatusCompleted},
	StatusActionTaken: {StatusCompleted},
	StatusOnHold:      {StatusNew, StatusAssigned, StatusInProgress, StatusActionTaken, StatusCompleted},
	StatusCompleted:   {StatusClosed},
	StatusClosed:      {},
	StatusCancelled:   {},
}

// CanTransition decides whether moving from one status to another is legal.
// Re-asserting the current status is always allowed; CLOSED and CANCELLED are
// terminal; ON_HOLD and CANCELLED are reachable from any in-flight state.
func CanTransition(from, to RequestStatus) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if (to == StatusOnHold || to == StatusCancelled) && from.inFlight() {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Priority levels: 1=Critical, 2=High, 3=Medium, 4=Low.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

// Valid reports whether the priority is within the accepted range.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// Request represents a service ticket stored in the requests table.
type Request struct {
	ID               string        `db:"id" json:"id"`
	RequestID        string        `db:"request_id" json:"request_id"`
	ServiceType      string        `db:"service_type" json:"service_type"`
	Title            string        `db:"title" json:"title"`
	Description      *string       `db:"description" json:"description,omitempty"`
	Priority         Priority      `db:"priority" json:"priority"`
	Status           RequestStatus `db:"status" json:"status"`
	LocationID       *string       `db:"location_id" json:"location_id,omitempty"`
	DepartmentID     *string       `db:"department_id" json:"department_id,omitempty"`
	CreatedByID      string        `db:"created_by_id" json:"created_by_id"`
	AssignedToID     *string       `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	RequestedBy      *string       `db:"requested_by" json:"requested_by,omitempty"`
	EstimatedTime    *int          `db:"estimated_time" json:"estimated_time,omitempty"`
	CompletedAt      *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	ScheduledDate    *time.Time    `db:"scheduled_date" json:"scheduled_date,omitempty"`
	ScheduledTime    *string       `db:"scheduled_time" json:"scheduled_time,omitempty"`
	Recurring        bool          `db:"recurring" json:"recurring"`
	RecurringPattern *string       `db:"recurring_pattern" json:"recurring_pattern,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDetail joins the display names a list or detail view needs.
type RequestDetail struct {
	Request
	LocationName     *string `db:"location_name" json:"location_name,omitempty"`
	DepartmentName   *string `db:"department_name" json:"department_name,omitempty"`
	CreatedByName    *string `db:"created_by_name" json:"created_by_name,omitempty"`
	AssignedToName   *string `db:"assigned_to_name" json:"assigned_to_name,omitempty"`
	CreatedByDeptRaw *string `db:"created_by_department" json:"-"`
	AssigneeDeptRaw  *string `db:"assigned_to_department" json:"-"`
}

// RequestFilter captures filtering criteria for listing requests.
type RequestFilter struct {
	Status        *RequestStatus
	DepartmentID  *string
	AssignedToID  *string
	CreatedByID   *string
	LocationID    *string
	ServiceType   *string
	Search        string
	ScheduledOnly bool
	Page          int
	PageSize      int
}

// CompletedRequest is the projection the scoring engine consumes.
type CompletedRequest struct {
	ID             string     `db:"id"`
	Priority       Priority   `db:"priority"`
	CreatedAt      time.Time  `db:"created_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	AssignedToID   *string    `db:"assigned_to_id"`
	CreatedByID    *string    `db:"created_by_id"`
	AssignedToName *string    `db:"assigned_to_name"`
	CreatedByName  *string    `db:"created_by_name"`
}
