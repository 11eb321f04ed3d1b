package models

// StatBucket is one row of a grouped alert count (by type, weekday, project or month).
type StatBucket struct {
	Label string `json:"label" db:"label"`
	Count int64  `json:"count" db:"count"`
}

// DashboardSummary holds the KPI card counts for the dashboard.
type DashboardSummary struct {
	TotalAlerts        int64 `json:"total_alerts"`
	UnresolvedAlerts   int64 `json:"unresolved_alerts"`
	HighSeverityAlerts int64 `json:"high_severity_alerts"`
}

// Dashboard aggregates the KPI summary, trend charts and the most recent alerts.
type Dashboard struct {
	Summary      DashboardSummary `json:"summary"`
	WeekdayStats []StatBucket     `json:"weekday_stats"`
	MonthlyStats []StatBucket     `json:"monthly_stats"`
	RecentAlerts []Alert          `json:"recent_alerts"`
}
