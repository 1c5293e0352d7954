package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/grading"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/pkg/logger"
)

// Leveling thresholds: whole-session accuracy at or above stepUpThreshold
// raises the tier, at or below stepDownThreshold lowers it, anything in
// between keeps it. Always clamped to the known tiers.
const (
	stepUpThreshold   = 0.75
	stepDownThreshold = 0.40

	strongAreaThreshold = 0.70
	weakAreaThreshold   = 0.50

	defaultTotalQuestions = 5
	maxTotalQuestions     = 20
)

var levelOrder = []string{model.LevelBasic, model.LevelIntermediate, model.LevelAdvanced}

// AdaptiveService runs generated-question sessions, one question at a time,
// recalculating the difficulty tier after every answer. The collaborator is
// only ever a question generator; grading stays local.
type AdaptiveService struct {
	Sessions  AdaptiveStore
	Reasoning ReasoningClient
}

func NewAdaptiveService(sessions AdaptiveStore, reasoning ReasoningClient) *AdaptiveService {
	return &AdaptiveService{Sessions: sessions, Reasoning: reasoning}
}

type StartSessionRequest struct {
	Topic          string `json:"topic" binding:"required"`
	Level          string `json:"level"`
	TotalQuestions int    `json:"totalQuestions"`
}

// QuestionView is a generated question as shown to the student: the
// correct answer and the explanation stay server-side until it is answered.
type QuestionView struct {
	ID       uint                    `json:"id"`
	Position int                     `json:"position"`
	Level    string                  `json:"level"`
	Content  string                  `json:"content"`
	Options  []model.GeneratedOption `json:"options,omitempty"`
}

type SessionView struct {
	Session  *model.AdaptiveTest `json:"session"`
	Question *QuestionView       `json:"question,omitempty"`
	// GenerationUnavailable is set when the session row exists but the
	// generator could not produce its first question; the session is
	// abandoned and the caller should start a new one.
	GenerationUnavailable bool `json:"generationUnavailable,omitempty"`
}

func (s *AdaptiveService) StartSession(ctx context.Context, caller Identity, req StartSessionRequest) (*SessionView, error) {
	level := normalizeLevel(req.Level)
	total := req.TotalQuestions
	if total <= 0 {
		total = defaultTotalQuestions
	}
	if total > maxTotalQuestions {
		total = maxTotalQuestions
	}

	session := &model.AdaptiveTest{
		UserID:         caller.UserID,
		Topic:          req.Topic,
		InitialLevel:   level,
		CurrentLevel:   level,
		TotalQuestions: total,
		Status:         model.AdaptiveInProgress,
	}
	if err := s.Sessions.CreateSession(session); err != nil {
		return nil, err
	}

	// Generation happens after the session row is committed; holding a
	// transaction open across the remote call is not an option.
	question, err := s.generateAt(ctx, session, 1)
	if err != nil {
		logger.Log.Warn("first question generation failed",
			zap.Uint("sessionId", session.ID),
			zap.Error(err))
		session.Status = model.AdaptiveAbandoned
		if uerr := s.Sessions.UpdateSession(session); uerr != nil {
			return nil, uerr
		}
		// The abandoned row is reported to the caller rather than raised
		// as a request failure; the failed generation never strands an
		// in_progress session.
		return &SessionView{Session: session, GenerationUnavailable: true}, nil
	}

	return &SessionView{Session: session, Question: questionView(question)}, nil
}

type AnswerResult struct {
	QuestionID    uint          `json:"questionId"`
	Correct       bool          `json:"correct"`
	CorrectAnswer string        `json:"correctAnswer"`
	Explanation   string        `json:"explanation,omitempty"`
	Completed     bool          `json:"completed"`
	NextQuestion  *QuestionView `json:"nextQuestion,omitempty"`
	// NextUnavailable is set when the answer was recorded but the
	// generator could not produce the follow-up question; the caller may
	// retry via GetCurrentQuestion.
	NextUnavailable bool           `json:"nextUnavailable,omitempty"`
	Report          *SessionReport `json:"report,omitempty"`
}

func (s *AdaptiveService) AnswerQuestion(ctx context.Context, caller Identity, sessionID, questionID uint, answer string) (*AnswerResult, error) {
	session, err := s.Sessions.FindSessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(session.UserID) {
		return nil, util.ErrPermissionDenied
	}
	if session.Status != model.AdaptiveInProgress {
		return nil, util.ErrWrongState
	}

	question, err := s.Sessions.FindQuestion(sessionID, questionID)
	if err != nil {
		return nil, err
	}
	if question.AnsweredAt != nil {
		return nil, util.ErrWrongState
	}

	correct := gradeGenerated(question, answer)
	now := time.Now()
	question.UserAnswer = answer
	question.IsCorrect = &correct
	question.AnsweredAt = &now

	session.AnsweredCount++
	if correct {
		session.CorrectCount++
	}

	result := &AnswerResult{
		QuestionID:    question.ID,
		Correct:       correct,
		CorrectAnswer: question.CorrectAnswer,
		Explanation:   question.Explanation,
	}

	if session.AnsweredCount >= session.TotalQuestions {
		session.Status = model.AdaptiveCompleted
		strong, weak, err := s.areaBreakdown(session, question)
		if err != nil {
			return nil, err
		}
		session.StrongAreas = mustMarshal(strong)
		session.WeakAreas = mustMarshal(weak)

		if err := s.Sessions.RecordAnswer(session, question); err != nil {
			return nil, err
		}

		result.Completed = true
		result.Report = buildReport(session, strong, weak)
		return result, nil
	}

	session.CurrentLevel = nextLevel(session.CurrentLevel, session.Accuracy())
	if err := s.Sessions.RecordAnswer(session, question); err != nil {
		return nil, err
	}

	next, err := s.generateAt(ctx, session, session.AnsweredCount+1)
	if err != nil {
		// The graded answer is already committed; surface the gap instead
		// of failing the whole request.
		logger.Log.Warn("next question generation failed",
			zap.Uint("sessionId", session.ID),
			zap.Error(err))
		result.NextUnavailable = true
		return result, nil
	}

	result.NextQuestion = questionView(next)
	return result, nil
}

// GetCurrentQuestion returns the pending question, generating it when a
// previous generation attempt failed mid-session.
func (s *AdaptiveService) GetCurrentQuestion(ctx context.Context, caller Identity, sessionID uint) (*SessionView, error) {
	session, err := s.Sessions.FindSessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(session.UserID) {
		return nil, util.ErrPermissionDenied
	}
	if session.Status != model.AdaptiveInProgress {
		return nil, util.ErrWrongState
	}

	questions, err := s.Sessions.ListQuestions(sessionID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].AnsweredAt == nil {
			return &SessionView{Session: session, Question: questionView(&questions[i])}, nil
		}
	}

	question, err := s.generateAt(ctx, session, session.AnsweredCount+1)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, Question: questionView(question)}, nil
}

type SessionReport struct {
	Topic          string   `json:"topic"`
	InitialLevel   string   `json:"initialLevel"`
	FinalLevel     string   `json:"finalLevel"`
	TotalQuestions int      `json:"totalQuestions"`
	AnsweredCount  int      `json:"answeredCount"`
	CorrectCount   int      `json:"correctCount"`
	Accuracy       float64  `json:"accuracy"`
	StrongAreas    []string `json:"strongAreas"`
	WeakAreas      []string `json:"weakAreas"`
	Status         string   `json:"status"`
}

func (s *AdaptiveService) GetResults(caller Identity, sessionID uint) (*SessionReport, error) {
	session, err := s.Sessions.FindSessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !caller.CanActFor(session.UserID) {
		return nil, util.ErrPermissionDenied
	}

	var strong, weak []string
	if len(session.StrongAreas) > 0 {
		json.Unmarshal(session.StrongAreas, &strong)
	}
	if len(session.WeakAreas) > 0 {
		json.Unmarshal(session.WeakAreas, &weak)
	}
	return buildReport(session, strong, weak), nil
}

// AbandonSession terminates a session early; abandoned is terminal.
func (s *AdaptiveService) AbandonSession(caller Identity, sessionID uint) error {
	session, err := s.Sessions.FindSessionByID(sessionID)
	if err != nil {
		return err
	}
	if !caller.CanActFor(session.UserID) {
		return util.ErrPermissionDenied
	}
	if session.Status != model.AdaptiveInProgress {
		return util.ErrWrongState
	}
	session.Status = model.AdaptiveAbandoned
	return s.Sessions.UpdateSession(session)
}

func (s *AdaptiveService) generateAt(ctx context.Context, session *model.AdaptiveTest, position int) (*model.AdaptiveQuestion, error) {
	asked, err := s.Sessions.ListQuestions(session.ID)
	if err != nil {
		return nil, err
	}
	var previous []string
	for _, q := range asked {
		previous = append(previous, q.Content)
	}

	generated, err := s.Reasoning.GenerateQuestion(ctx, GenerationRequest{
		Topic:          session.Topic,
		Level:          session.CurrentLevel,
		Position:       position,
		AvoidRepeating: previous,
	})
	if err != nil {
		return nil, err
	}

	question := &model.AdaptiveQuestion{
		TestID:        session.ID,
		Position:      position,
		Level:         session.CurrentLevel,
		Content:       generated.Content,
		CorrectAnswer: generated.CorrectAnswer,
		Explanation:   generated.Explanation,
	}
	if len(generated.Options) > 0 {
		question.Options = mustMarshal(generated.Options)
	}

	if err := s.Sessions.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

// gradeGenerated applies the exact-match policy: option id equality for
// choice questions, normalized text comparison otherwise. The generator is
// never trusted as the grader.
func gradeGenerated(q *model.AdaptiveQuestion, answer string) bool {
	if opts := q.DecodedOptions(); len(opts) > 0 {
		return strings.TrimSpace(answer) == q.CorrectAnswer
	}
	return grading.Normalize(answer) == grading.Normalize(q.CorrectAnswer)
}

// areaBreakdown groups the session's answered questions (including the one
// being recorded) by difficulty tier.
func (s *AdaptiveService) areaBreakdown(session *model.AdaptiveTest, current *model.AdaptiveQuestion) ([]string, []string, error) {
	questions, err := s.Sessions.ListQuestions(session.ID)
	if err != nil {
		return nil, nil, err
	}

	type stat struct{ correct, total int }
	stats := make(map[string]*stat)
	record := func(level string, correct bool) {
		st, ok := stats[level]
		if !ok {
			st = &stat{}
			stats[level] = st
		}
		st.total++
		if correct {
			st.correct++
		}
	}

	for _, q := range questions {
		if q.ID == current.ID {
			continue
		}
		if q.IsCorrect != nil {
			record(q.Level, *q.IsCorrect)
		}
	}
	if current.IsCorrect != nil {
		record(current.Level, *current.IsCorrect)
	}

	var strong, weak []string
	for _, level := range levelOrder {
		st, ok := stats[level]
		if !ok {
			continue
		}
		accuracy := float64(st.correct) / float64(st.total)
		if accuracy >= strongAreaThreshold {
			strong = append(strong, level)
		} else if accuracy < weakAreaThreshold {
			weak = append(weak, level)
		}
	}
	return strong, weak, nil
}

func buildReport(session *model.AdaptiveTest, strong, weak []string) *SessionReport {
	return &SessionReport{
		Topic:          session.Topic,
		InitialLevel:   session.InitialLevel,
		FinalLevel:     session.CurrentLevel,
		TotalQuestions: session.TotalQuestions,
		AnsweredCount:  session.AnsweredCount,
		CorrectCount:   session.CorrectCount,
		Accuracy:       session.Accuracy(),
		StrongAreas:    strong,
		WeakAreas:      weak,
		Status:         session.Status,
	}
}

func questionView(q *model.AdaptiveQuestion) *QuestionView {
	return &QuestionView{
		ID:       q.ID,
		Position: q.Position,
		Level:    q.Level,
		Content:  q.Content,
		Options:  q.DecodedOptions(),
	}
}

func normalizeLevel(level string) string {
	switch level {
	case model.LevelBasic, model.LevelIntermediate, model.LevelAdvanced:
		return level
	default:
		return model.LevelBasic
	}
}

// nextLevel maps whole-session accuracy to the next difficulty tier.
func nextLevel(current string, accuracy float64) string {
	idx := 0
	for i, level := range levelOrder {
		if level == current {
			idx = i
			break
		}
	}
	switch {
	case accuracy >= stepUpThreshold && idx < len(levelOrder)-1:
		return levelOrder[idx+1]
	case accuracy <= stepDownThreshold && idx > 0:
		return levelOrder[idx-1]
	default:
		return current
	}
}
