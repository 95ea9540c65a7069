package models

// DayCounts is the success/fail breakdown for one calendar day.
type DayCounts struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Total returns attempts for the day regardless of outcome.
func (d DayCounts) Total() int {
	return d.Success + d.Failed
}

// DayActivity pairs a day key with its total attempt count, used for the
// busiest-days ranking.
type DayActivity struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// ErrorCount pairs a truncated error class with its occurrence count.
type ErrorCount struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

// Stats is the aggregated view of the history log over an analysis window.
type Stats struct {
	WindowDays      int                  `json:"window_days"`
	TotalAttempts   int                  `json:"total_attempts"`
	SuccessfulSends int                  `json:"successful_sends"`
	FailedSends     int                  `json:"failed_sends"`
	SuccessRate     float64              `json:"success_rate"`
	DailyBreakdown  map[string]DayCounts `json:"daily_breakdown"`
	ErrorAnalysis   []ErrorCount         `json:"error_analysis"`
	HourlyPattern   map[int]int          `json:"hourly_pattern"`
	MostActiveDays  []DayActivity        `json:"most_active_days"`
	Recommendations []string             `json:"recommendations"`
}

// HistoryHealth summarizes the dedup effectiveness of the history log.
type HistoryHealth struct {
	TotalUniqueUsers      int             `json:"total_unique_users"`
	RecentSuccessfulUsers int             `json:"recent_successful_users"`
	DuplicateSends        []DuplicateSend `json:"duplicate_sends"`
	ResetEffectiveness    float64         `json:"reset_effectiveness"`
}

// DuplicateSend records an identifier that appears more than once in history.
type DuplicateSend struct {
	Identifier string  `json:"identifier"`
	Date       string  `json:"date"`
	Outcome    Outcome `json:"outcome"`
}
