package service

import (
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
)

// Store interfaces consumed by the domain services. The GORM repositories in
// internal/repository satisfy them; tests substitute in-memory fakes.

type AttemptStore interface {
	CreateAttempt(a *model.Attempt) error
	FindAttemptByID(id uint) (*model.Attempt, error)
	CountAttempts(userID, assessmentID uint) (int64, error)
	UpdateAttempt(a *model.Attempt) error
	ListAnswers(attemptID uint) ([]model.AnswerRecord, error)
	ListAttempts(assessmentID uint, page, limit int) ([]model.Attempt, int64, error)
	// FinalizeSubmission persists records, recomputes the total and sets
	// status=submitted atomically.
	FinalizeSubmission(attempt *model.Attempt, records []model.AnswerRecord) error
	// UpdateRecordsAndScore saves manually graded records and the attempt
	// (including its recomputed total) atomically.
	UpdateRecordsAndScore(attempt *model.Attempt, records []model.AnswerRecord) error
	UpdateScore(attemptID uint, total int) error
}

type QuestionStore interface {
	CreateAssessment(a *model.Assessment) error
	FindAssessmentByID(id uint) (*model.Assessment, error)
	ListAssessments(page, limit int) ([]model.Assessment, int64, error)
	CreateQuestion(q *model.Question) error
	UpdateQuestion(q *model.Question) error
	FindQuestionByID(id uint) (*model.Question, error)
	ListByAssessment(assessmentID uint) ([]model.Question, error)
}

type AnalysisStore interface {
	// CreateJob must fail with util.ErrConflict when a job for the same
	// (user, attempt) already exists — enforced by a storage-level unique
	// index, not an application check.
	CreateJob(job *model.AnalysisJob) error
	FindJobByID(id string) (*model.AnalysisJob, error)
	FindJobByAttempt(userID, attemptID uint) (*model.AnalysisJob, error)
	UpdateJob(job *model.AnalysisJob) error
	ReplaceJob(old *model.AnalysisJob, fresh *model.AnalysisJob) error
}

type AdaptiveStore interface {
	CreateSession(t *model.AdaptiveTest) error
	FindSessionByID(id uint) (*model.AdaptiveTest, error)
	UpdateSession(t *model.AdaptiveTest) error
	CreateQuestion(q *model.AdaptiveQuestion) error
	FindQuestion(testID, questionID uint) (*model.AdaptiveQuestion, error)
	ListQuestions(testID uint) ([]model.AdaptiveQuestion, error)
	RecordAnswer(t *model.AdaptiveTest, q *model.AdaptiveQuestion) error
}

// Identity is the caller identity supplied by the external authorization
// layer; consumed, never produced.
type Identity struct {
	UserID uint
	Role   model.UserRole
}

func (id Identity) CanActFor(ownerID uint) bool {
	return id.UserID == ownerID || id.Role.IsGrader()
}
