package dto

// ScheduleQuery filters GET /schedule.
type ScheduleQuery struct {
	Date         string `form:"date"`
	DepartmentID string `form:"departmentId"`
	AssignedToID string `form:"assignedTo"`
}

// ScheduledItem is one entry on the schedule board for a given day.
type ScheduledItem struct {
	ID             string  `json:"id"`
	RequestID      string  `json:"requestId"`
	ServiceType    string  `json:"serviceType"`
	Title          string  `json:"title"`
	Priority       int     `json:"priority"`
	Status         string  `json:"status"`
	ScheduledDate  string  `json:"scheduledDate"`
	ScheduledTime  *string `json:"scheduledTime,omitempty"`
	LocationName   *string `json:"locationName,omitempty"`
	AssignedToName *string `json:"assignedToName,omitempty"`
	Recurring      bool    `json:"recurring"`
	Occurrence     bool    `json:"occurrence"`
}

// ScheduleDayResponse groups items for a single date.
type ScheduleDayResponse struct {
	Date  string          `json:"date"`
	Items []ScheduledItem `json:"items"`
}

// CalendarQuery selects the month for GET /schedule/calendar.
type CalendarQuery struct {
	Year  int `form:"year" validate:"required,min=2000,max=2100"`
	Month int `form:"month" validate:"required,min=1,max=12"`
}

// CalendarDay summarises the workload on one calendar cell.
type CalendarDay struct {
	Date  string          `json:"date"`
	Count int             `json:"count"`
	Items []ScheduledItem `json:"items"`
}

// CalendarResponse is the full month grid.
type CalendarResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}
