package model

import "encoding/json"

// AnalysisJob statuses: processing -> completed | error. An error job is
// replaced, never updated in place.
const (
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisError      = "error"
)

// AnalysisJob records one reasoning-service analysis of a finished attempt.
// The (user_id, attempt_id) unique index serializes concurrent requests at
// the storage layer so two processing rows can never coexist.
type AnalysisJob struct {
	UUIDBase
	UserID             uint            `gorm:"uniqueIndex:idx_user_attempt;type:bigint unsigned" json:"userId"`
	AttemptID          uint            `gorm:"uniqueIndex:idx_user_attempt;type:bigint unsigned" json:"attemptId"`
	Status             string          `gorm:"size:20;default:'processing'" json:"status"`
	GlobalScore        int             `gorm:"default:0" json:"globalScore"`
	Percentage         float64         `gorm:"default:0" json:"percentage"`
	CategoryBreakdown  json.RawMessage `gorm:"type:json" json:"categoryBreakdown,omitempty"`
	Strengths          json.RawMessage `gorm:"type:json" json:"strengths,omitempty"`       // []string
	Weaknesses         json.RawMessage `gorm:"type:json" json:"weaknesses,omitempty"`      // []string
	Recommendations    json.RawMessage `gorm:"type:json" json:"recommendations,omitempty"` // []string
	SuggestedStudyTime string          `gorm:"size:100" json:"suggestedStudyTime,omitempty"`
	ErrorMessage       string          `gorm:"type:text" json:"errorMessage,omitempty"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}

// CategoryStat is one entry of the CategoryBreakdown blob.
type CategoryStat struct {
	Category string  `json:"category"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}
