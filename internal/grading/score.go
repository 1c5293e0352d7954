package grading

import "github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"

// TotalScore sums the points of graded records. Ungraded (nil) records do
// not contribute, so the total is always derivable from the source records
// and recomputing never accumulates.
func TotalScore(records []model.AnswerRecord) int {
	total := 0
	for _, r := range records {
		if r.Points != nil {
			total += *r.Points
		}
	}
	return total
}
