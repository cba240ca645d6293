package dto

// DashboardStatsResponse aggregates the operational overview widgets.
type DashboardStatsResponse struct {
	TotalRequestsToday int                `json:"totalRequestsToday"`
	CompletedToday     int                `json:"completedToday"`
	PendingRequests    int                `json:"pendingRequests"`
	ActiveStaff        int                `json:"activeStaff"`
	AvgResponseMinutes float64            `json:"avgResponseMinutes"`
	RequestsByStatus   map[string]int     `json:"requestsByStatus"`
	RecentActivities   []ActivityResponse `json:"recentActivities"`
	Degraded           bool               `json:"degraded,omitempty"`
}

// RequestMetricsQuery selects the trailing window for GET /metrics/requests.
type RequestMetricsQuery struct {
	Days int `form:"days"`
}

// DailyRequestMetric is one day's totals in the trend series.
type DailyRequestMetric struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// RequestMetricsResponse is the request volume trend.
type RequestMetricsResponse struct {
	Days   int                  `json:"days"`
	Series []DailyRequestMetric `json:"series"`
	ByType map[string]int       `json:"byType"`
}
