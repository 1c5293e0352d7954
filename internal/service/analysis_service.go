package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/logger"
)

// AnalysisService drives the analysis job state machine:
// none -> processing -> {completed | error}, error -> processing on
// re-request. The remote call is never issued inside a transaction: the job
// is committed as processing first, the call runs untransacted, and the
// outcome is committed separately.
type AnalysisService struct {
	Attempts   AttemptStore
	Questions  QuestionStore
	Jobs       AnalysisStore
	Reasoning  ReasoningClient
	StaleAfter time.Duration
}

func NewAnalysisService(attempts AttemptStore, questions QuestionStore, jobs AnalysisStore, reasoning ReasoningClient, staleAfter time.Duration) *AnalysisService {
	return &AnalysisService{
		Attempts:   attempts,
		Questions:  questions,
		Jobs:       jobs,
		Reasoning:  reasoning,
		StaleAfter: staleAfter,
	}
}

func (s *AnalysisService) RequestAnalysis(ctx context.Context, caller Identity, attemptID uint) (*model.AnalysisJob, error) {
	attempt, err := s.Attempts.FindAttemptByID(attemptID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(attempt.UserID) {
		return nil, util.ErrPermissionDenied
	}
	if !attempt.IsGradable() {
		return nil, util.ErrWrongState
	}

	job, err := s.Jobs.FindJobByAttempt(attempt.UserID, attemptID)
	switch {
	case err == nil:
		switch job.Status {
		case model.AnalysisCompleted:
			// Idempotent by attempt: stored result, no collaborator call.
			return job, nil
		case model.AnalysisProcessing:
			if time.Since(job.CreatedAt) < s.StaleAfter {
				return job, nil
			}
			// A processing job this old means the original request died
			// between its two transactions. Retry by replacement.
		}

		fresh := newProcessingJob(attempt)
		if err := s.Jobs.ReplaceJob(job, fresh); err != nil {
			if errors.Is(err, util.ErrConflict) {
				// Lost the replacement race. The winner owns the job and
				// drives the analysis; return its row without a
				// collaborator call so a loser can never overwrite a
				// completed result.
				return s.Jobs.FindJobByAttempt(attempt.UserID, attemptID)
			}
			return nil, err
		}
		job = fresh
	case errors.Is(err, util.ErrAnalysisNotFound):
		job = newProcessingJob(attempt)
		if err := s.Jobs.CreateJob(job); err != nil {
			if errors.Is(err, util.ErrConflict) {
				// Lost the creation race; the winner's job is authoritative.
				return s.Jobs.FindJobByAttempt(attempt.UserID, attemptID)
			}
			return nil, err
		}
	default:
		return nil, err
	}

	return s.runAnalysis(ctx, attempt, job)
}

func (s *AnalysisService) GetAnalysis(caller Identity, id string) (*model.AnalysisJob, error) {
	job, err := s.Jobs.FindJobByID(id)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(job.UserID) {
		return nil, util.ErrPermissionDenied
	}
	return job, nil
}

func (s *AnalysisService) GetAnalysisByAttempt(caller Identity, attemptID uint) (*model.AnalysisJob, error) {
	attempt, err := s.Attempts.FindAttemptByID(attemptID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(attempt.UserID) {
		return nil, util.ErrPermissionDenied
	}
	return s.Jobs.FindJobByAttempt(attempt.UserID, attemptID)
}

func newProcessingJob(attempt *model.Attempt) *model.AnalysisJob {
	return &model.AnalysisJob{
		UserID:    attempt.UserID,
		AttemptID: attempt.ID,
		Status:    model.AnalysisProcessing,
	}
}

// runAnalysis performs the untransacted reasoning call for a committed
// processing job and commits the outcome. A collaborator failure becomes
// the error state on the job, never a request-ending failure.
func (s *AnalysisService) runAnalysis(ctx context.Context, attempt *model.Attempt, job *model.AnalysisJob) (*model.AnalysisJob, error) {
	req, err := s.buildSummary(attempt)
	if err != nil {
		return nil, err
	}

	payload, err := s.Reasoning.AnalyzePerformance(ctx, *req)
	if err != nil {
		logger.Log.Warn("analysis call failed",
			zap.Uint("attemptId", attempt.ID),
			zap.String("jobId", job.ID),
			zap.Error(err))
		job.Status = model.AnalysisError
		job.ErrorMessage = err.Error()
		if uerr := s.Jobs.UpdateJob(job); uerr != nil {
			return nil, uerr
		}
		return job, nil
	}

	job.Status = model.AnalysisCompleted
	job.GlobalScore = payload.GlobalScore
	job.Percentage = payload.Percentage
	job.SuggestedStudyTime = payload.SuggestedStudyTime
	job.ErrorMessage = ""
	job.CategoryBreakdown = mustMarshal(payload.CategoryBreakdown)
	job.Strengths = mustMarshal(payload.Strengths)
	job.Weaknesses = mustMarshal(payload.Weaknesses)
	job.Recommendations = mustMarshal(payload.Recommendations)

	if err := s.Jobs.UpdateJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// buildSummary assembles the structured per-question summary for the
// reasoning service from the stored records.
func (s *AnalysisService) buildSummary(attempt *model.Attempt) (*AnalysisRequest, error) {
	records, err := s.Attempts.ListAnswers(attempt.ID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Questions.ListByAssessment(attempt.AssessmentID)
	if err != nil {
		return nil, err
	}
	questionMap := make(map[uint]*model.Question, len(questions))
	maxScore := 0
	for i := range questions {
		questionMap[questions[i].ID] = &questions[i]
		maxScore += questions[i].Points
	}

	title := ""
	if a, err := s.Questions.FindAssessmentByID(attempt.AssessmentID); err == nil {
		title = a.Title
	}

	req := &AnalysisRequest{
		AssessmentTitle: title,
		MaxScore:        maxScore,
	}
	if attempt.TotalScore != nil {
		req.TotalScore = *attempt.TotalScore
	}

	for _, rec := range records {
		summary := QuestionSummary{
			QuestionID: rec.QuestionID,
			Correct:    rec.IsCorrect,
			Points:     rec.Points,
		}
		if q, ok := questionMap[rec.QuestionID]; ok {
			summary.Type = q.Type
			summary.Category = q.Category
			summary.Difficulty = q.Difficulty
			summary.Content = q.Content
			summary.MaxPoints = q.Points
		}
		req.Questions = append(req.Questions, summary)
	}
	return req, nil
}

func mustMarshal(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
