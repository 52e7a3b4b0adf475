package models

// Statistics summarizes the recorded vocabulary
type Statistics struct {
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	DailyStats map[string]int `json:"dailyStats"` // "YYYY-MM-DD" -> new words that day
}
