package server

import (
	"time"

	"github.com/example/totvocab/pkg/models"
)

// dailyCounts groups records created in the trailing days window by
// calendar date (UTC), returning "YYYY-MM-DD" -> count. Days with no
// additions are absent from the map.
func dailyCounts(records []models.WordRecord, days int) map[string]int {
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()

	counts := make(map[string]int)
	for _, record := range records {
		if record.CreatedAt < cutoff {
			continue
		}
		date := time.UnixMilli(record.CreatedAt).UTC().Format("2006-01-02")
		counts[date]++
	}
	return counts
}
