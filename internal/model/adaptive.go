package model

import (
	"encoding/json"
	"time"
)

// AdaptiveTest statuses.
const (
	AdaptiveInProgress = "in_progress"
	AdaptiveCompleted  = "completed"
	AdaptiveAbandoned  = "abandoned"
)

// AdaptiveTest is one generated-question session. The difficulty tier is
// recalculated after every answer from whole-session accuracy.
type AdaptiveTest struct {
	BaseModel
	UserID         uint            `gorm:"index;type:bigint unsigned" json:"userId"`
	Topic          string          `gorm:"size:255;not null" json:"topic"`
	InitialLevel   string          `gorm:"size:20;default:'basic'" json:"initialLevel"`
	CurrentLevel   string          `gorm:"size:20;default:'basic'" json:"currentLevel"`
	TotalQuestions int             `gorm:"default:5" json:"totalQuestions"`
	AnsweredCount  int             `gorm:"default:0" json:"answeredCount"`
	CorrectCount   int             `gorm:"default:0" json:"correctCount"`
	StrongAreas    json.RawMessage `gorm:"type:json" json:"strongAreas,omitempty"` // []string
	WeakAreas      json.RawMessage `gorm:"type:json" json:"weakAreas,omitempty"`   // []string
	Status         string          `gorm:"size:20;default:'in_progress'" json:"status"`
}

func (AdaptiveTest) TableName() string {
	return "adaptive_tests"
}

// Accuracy returns rolling correctness over the whole session.
func (t *AdaptiveTest) Accuracy() float64 {
	if t.AnsweredCount == 0 {
		return 0
	}
	return float64(t.CorrectCount) / float64(t.AnsweredCount)
}

// AdaptiveQuestion is one generated question inside a session. Position is
// 1-based; (test_id, position) is unique so a retried generation can never
// produce two questions at the same slot.
type AdaptiveQuestion struct {
	BaseModel
	TestID        uint            `gorm:"uniqueIndex:idx_test_position;type:bigint unsigned" json:"testId"`
	Position      int             `gorm:"uniqueIndex:idx_test_position" json:"position"`
	Level         string          `gorm:"size:20" json:"level"`
	Content       string          `gorm:"type:text;not null" json:"content"`
	Options       json.RawMessage `gorm:"type:json" json:"options,omitempty"` // []GeneratedOption
	CorrectAnswer string          `gorm:"type:text" json:"-"`
	Explanation   string          `gorm:"type:text" json:"-"`
	UserAnswer    string          `gorm:"type:text" json:"userAnswer,omitempty"`
	IsCorrect     *bool           `json:"isCorrect,omitempty"`
	AnsweredAt    *time.Time      `json:"answeredAt,omitempty"`
}

func (AdaptiveQuestion) TableName() string {
	return "adaptive_questions"
}

// GeneratedOption is one choice of a generated question; the id is the
// letter key produced by the reasoning service ("a", "b", ...).
type GeneratedOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DecodedOptions returns the option list, or nil for open questions.
func (q *AdaptiveQuestion) DecodedOptions() []GeneratedOption {
	if len(q.Options) == 0 {
		return nil
	}
	var opts []GeneratedOption
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}
