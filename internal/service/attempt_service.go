package service

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/grading"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/logger"
)

// AttemptService owns the attempt lifecycle: start, submit, manual grading
// and the score aggregate. Stateless; one instance per process with
// injected stores.
type AttemptService struct {
	Attempts    AttemptStore
	Questions   QuestionStore
	MaxAttempts int
}

func NewAttemptService(attempts AttemptStore, questions QuestionStore, maxAttempts int) *AttemptService {
	return &AttemptService{Attempts: attempts, Questions: questions, MaxAttempts: maxAttempts}
}

func (s *AttemptService) StartAttempt(caller Identity, assessmentID uint) (*model.Attempt, error) {
	if _, err := s.Questions.FindAssessmentByID(assessmentID); err != nil {
		return nil, err
	}

	// Every prior attempt counts against the quota, whatever its status.
	count, err := s.Attempts.CountAttempts(caller.UserID, assessmentID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.MaxAttempts) {
		return nil, util.ErrAttemptQuotaExceeded
	}

	attempt := &model.Attempt{
		UserID:       caller.UserID,
		AssessmentID: assessmentID,
		Status:       model.AttemptInProgress,
		StartedAt:    time.Now(),
	}
	if err := s.Attempts.CreateAttempt(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// AnswerSubmission is one submitted answer as received from the transport.
type AnswerSubmission struct {
	QuestionID        uint              `json:"questionId" binding:"required"`
	SelectedOptionIDs []uint            `json:"selectedOptionIds,omitempty"`
	FreeText          string            `json:"freeText,omitempty"`
	Code              string            `json:"code,omitempty"`
	ObservedOutput    string            `json:"observedOutput,omitempty"`
	Pairs             []model.MatchPair `json:"pairs,omitempty"`
}

type AttemptResult struct {
	Attempt *model.Attempt       `json:"attempt"`
	Answers []model.AnswerRecord `json:"answers"`
}

// SubmitAnswers evaluates and persists a batch of answers, then recomputes
// the aggregate and flips the attempt to submitted — atomically. Answers for
// questions that already have a record are skipped, so re-submitting the
// same payload never doubles points.
func (s *AttemptService) SubmitAnswers(caller Identity, attemptID uint, answers []AnswerSubmission) (*AttemptResult, error) {
	attempt, err := s.Attempts.FindAttemptByID(attemptID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(attempt.UserID) {
		return nil, util.ErrPermissionDenied
	}
	// Forward-only lifecycle: a graded or reviewed attempt never goes back
	// to submitted.
	if attempt.Status == model.AttemptGraded || attempt.Status == model.AttemptReviewed {
		return nil, util.ErrWrongState
	}

	questions, err := s.Questions.ListByAssessment(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}
	questionMap := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		questionMap[questions[i].ID] = &questions[i]
	}

	existing, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(existing))
	for _, rec := range existing {
		seen[rec.QuestionID] = true
	}

	var records []model.AnswerRecord
	for _, ans := range answers {
		if seen[ans.QuestionID] {
			continue
		}
		seen[ans.QuestionID] = true

		q, ok := questionMap[ans.QuestionID]
		if !ok {
			logger.Log.Warn("submitted answer references unknown question",
				zap.Uint("attemptId", attemptID),
				zap.Uint("questionId", ans.QuestionID))
			continue
		}

		result := grading.Evaluate(q, grading.Answer{
			QuestionID:        ans.QuestionID,
			SelectedOptionIDs: ans.SelectedOptionIDs,
			FreeText:          ans.FreeText,
			Code:              ans.Code,
			ObservedOutput:    ans.ObservedOutput,
			Pairs:             ans.Pairs,
		})

		record := model.AnswerRecord{
			AttemptID:      attemptID,
			QuestionID:     ans.QuestionID,
			FreeText:       ans.FreeText,
			Code:           ans.Code,
			ObservedOutput: ans.ObservedOutput,
			IsCorrect:      result.Correct,
			Points:         result.Points,
		}
		if len(ans.SelectedOptionIDs) > 0 {
			if raw, err := json.Marshal(ans.SelectedOptionIDs); err == nil {
				record.SelectedOptionIDs = raw
			}
		}
		records = append(records, record)
	}

	if err := s.Attempts.FinalizeSubmission(attempt, records); err != nil {
		return nil, err
	}

	stored, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	return &AttemptResult{Attempt: attempt, Answers: stored}, nil
}

func (s *AttemptService) GetAttemptResult(caller Identity, attemptID uint) (*AttemptResult, error) {
	attempt, err := s.Attempts.FindAttemptByID(attemptID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(attempt.UserID) {
		return nil, util.ErrPermissionDenied
	}

	answers, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	return &AttemptResult{Attempt: attempt, Answers: answers}, nil
}

// RecomputeScore reloads the attempt's records and overwrites the aggregate.
// Always derived from the source rows, never accumulated.
func (s *AttemptService) RecomputeScore(attemptID uint) (int, error) {
	if _, err := s.Attempts.FindAttemptByID(attemptID); err != nil {
		return 0, err
	}
	records, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return 0, err
	}
	total := grading.TotalScore(records)
	if err := s.Attempts.UpdateScore(attemptID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// ManualGrade carries a grader's verdict for one ungraded answer.
type ManualGrade struct {
	QuestionID uint `json:"questionId" binding:"required"`
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
}

type GradeRequest struct {
	Grades []ManualGrade `json:"grades"`
	Review bool          `json:"review"`
}

// GradeAttempt applies manual grades to answers the evaluator left ungraded
// and advances the attempt to graded (or reviewed on a review pass).
func (s *AttemptService) GradeAttempt(caller Identity, attemptID uint, req GradeRequest) (*AttemptResult, error) {
	if !caller.Role.IsGrader() {
		return nil, util.ErrPermissionDenied
	}

	attempt, err := s.Attempts.FindAttemptByID(attemptID)
	if err != nil {
		return nil, err
	}

	switch attempt.Status {
	case model.AttemptSubmitted:
	case model.AttemptGraded:
		if !req.Review {
			return nil, util.ErrWrongState
		}
	default:
		return nil, util.ErrWrongState
	}

	records, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]*model.AnswerRecord, len(records))
	for i := range records {
		byQuestion[records[i].QuestionID] = &records[i]
	}

	var updated []model.AnswerRecord
	for _, g := range req.Grades {
		rec, ok := byQuestion[g.QuestionID]
		if !ok {
			continue
		}
		correct := g.Correct
		points := g.Points
		rec.IsCorrect = &correct
		rec.Points = &points
		updated = append(updated, *rec)
	}

	if req.Review {
		attempt.Status = model.AttemptReviewed
	} else {
		attempt.Status = model.AttemptGraded
	}

	if err := s.Attempts.UpdateRecordsAndScore(attempt, updated); err != nil {
		return nil, err
	}

	stored, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}
	return &AttemptResult{Attempt: attempt, Answers: stored}, nil
}

func (s *AttemptService) ListAttempts(caller Identity, assessmentID uint, page, limit int) ([]model.Attempt, int64, error) {
	if !caller.Role.IsGrader() {
		return nil, 0, util.ErrPermissionDenied
	}
	return s.Attempts.ListAttempts(assessmentID, page, limit)
}
