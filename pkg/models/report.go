package models

// ReportSummary holds the status counts of a daily report. Completed, Failed
// and Blocked always add up to Total.
type ReportSummary struct {
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	Failed      int    `json:"failed"`
	Blocked     int    `json:"blocked"`
	SuccessRate string `json:"successRate"`
}

// ReportPerformance holds timing metrics of a daily report.
type ReportPerformance struct {
	TotalTimeMinutes   int `json:"totalTime"`
	AverageTimeSeconds int `json:"averageTime"`
	Efficiency         int `json:"efficiency"`
}

// NextDayPreview describes the following day of the phase.
type NextDayPreview struct {
	Day   int `json:"day"`
	Week  int `json:"week"`
	Tasks int `json:"tasks"`
}

// DailyReport is persisted once per calendar date.
type DailyReport struct {
	Date        string            `json:"date"`
	Day         int               `json:"day"`
	Week        int               `json:"week"`
	Summary     ReportSummary     `json:"summary"`
	Performance ReportPerformance `json:"performance"`
	NextDay     NextDayPreview    `json:"nextDay"`
}

// DayNotification is the per-day message handed to notification sinks.
type DayNotification struct {
	Date              string `json:"date"`
	Day               int    `json:"day"`
	ProgressPercent   int    `json:"progressPercent"`
	TasksToday        int    `json:"tasksToday"`
	SuccessRate       string `json:"successRate"`
	Efficiency        int    `json:"efficiency"`
	TotalTimeMinutes  int    `json:"totalTimeMinutes"`
	TomorrowTaskCount int    `json:"tomorrowTaskCount"`
}
