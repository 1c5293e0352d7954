package model

import (
	"encoding/json"
	"time"
)

// Attempt statuses. An attempt only ever moves forward:
// in_progress -> submitted -> graded -> reviewed.
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptGraded     = "graded"
	AttemptReviewed   = "reviewed"
)

type Attempt struct {
	BaseModel
	UserID       uint       `gorm:"index;type:bigint unsigned" json:"userId"`
	AssessmentID uint       `gorm:"index;type:bigint unsigned" json:"assessmentId"`
	Status       string     `gorm:"size:20;default:'in_progress'" json:"status"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	TotalScore   *int       `json:"totalScore,omitempty"` // nil until aggregated
}

func (Attempt) TableName() string {
	return "attempts"
}

// IsGradable reports whether analysis may be requested for the attempt.
func (a *Attempt) IsGradable() bool {
	return a.Status == AttemptGraded || a.Status == AttemptReviewed
}

// AnswerRecord stores the evaluation outcome for one (attempt, question)
// pair. The composite unique index closes the duplicate-submission race at
// the storage layer; an application-level existence check alone is not enough.
type AnswerRecord struct {
	BaseModel
	AttemptID         uint            `gorm:"uniqueIndex:idx_attempt_question;type:bigint unsigned" json:"attemptId"`
	QuestionID        uint            `gorm:"uniqueIndex:idx_attempt_question;type:bigint unsigned" json:"questionId"`
	SelectedOptionIDs json.RawMessage `gorm:"type:json" json:"selectedOptionIds,omitempty"` // []uint
	FreeText          string          `gorm:"type:text" json:"freeText,omitempty"`
	Code              string          `gorm:"type:text" json:"code,omitempty"`
	ObservedOutput    string          `gorm:"type:text" json:"observedOutput,omitempty"`
	IsCorrect         *bool           `json:"isCorrect"` // nil = ungraded
	Points            *int            `json:"points"`    // nil = ungraded
}

func (AnswerRecord) TableName() string {
	return "answer_records"
}

// SelectedIDs decodes the stored option id list. A malformed blob degrades
// to an empty selection rather than failing the read.
func (r *AnswerRecord) SelectedIDs() []uint {
	if len(r.SelectedOptionIDs) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(r.SelectedOptionIDs, &ids); err != nil {
		return nil
	}
	return ids
}
