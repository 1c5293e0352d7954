package service

import (
	"encoding/json"
	"fmt"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

// AssessmentService manages the question bank. Authoring is grader-only;
// reading is open to any authenticated user.
type AssessmentService struct {
	Questions QuestionStore
}

func NewAssessmentService(questions QuestionStore) *AssessmentService {
	return &AssessmentService{Questions: questions}
}

type CreateAssessmentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	TimeLimit   int    `json:"timeLimit"`
}

func (s *AssessmentService) CreateAssessment(caller Identity, req CreateAssessmentRequest) (*model.Assessment, error) {
	if !caller.Role.IsGrader() {
		return nil, util.ErrPermissionDenied
	}
	assessment := &model.Assessment{
		Title:       req.Title,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
	}
	if err := s.Questions.CreateAssessment(assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) ListAssessments(page, limit int) ([]model.Assessment, int64, error) {
	return s.Questions.ListAssessments(page, limit)
}

type AssessmentDetail struct {
	Assessment *model.Assessment `json:"assessment"`
	Questions  []model.Question  `json:"questions"`
}

func (s *AssessmentService) GetAssessment(caller Identity, id uint) (*AssessmentDetail, error) {
	assessment, err := s.Questions.FindAssessmentByID(id)
	if err != nil {
		return nil, err
	}
	questions, err := s.Questions.ListByAssessment(id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsGrader() {
		questions = stripAnswerKeys(questions)
	}
	return &AssessmentDetail{Assessment: assessment, Questions: questions}, nil
}

// stripAnswerKeys removes everything a student could use to cheat: correct
// flags, explanations, and metadata (which holds solutions, expected output
// and accepted answers).
func stripAnswerKeys(questions []model.Question) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		q.Explanation = ""
		q.Metadata = nil
		opts := make([]model.QuestionOption, len(q.Options))
		for j, o := range q.Options {
			o.IsCorrect = false
			opts[j] = o
		}
		q.Options = opts
		out[i] = q
	}
	return out
}

type QuestionOptionInput struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Order     int    `json:"order"`
}

type QuestionInput struct {
	Type        string                `json:"type" binding:"required"`
	Content     string                `json:"content" binding:"required"`
	Category    string                `json:"category"`
	Difficulty  string                `json:"difficulty"`
	Points      int                   `json:"points"`
	Order       int                   `json:"order"`
	Explanation string                `json:"explanation"`
	Options     []QuestionOptionInput `json:"options,omitempty"`
	Metadata    json.RawMessage       `json:"metadata,omitempty"`
}

var knownQuestionTypes = map[string]bool{
	model.TypeOpcionMultiple:    true,
	model.TypeVerdaderoFalso:    true,
	model.TypeSeleccionMultiple: true,
	model.TypeRelacionPar:       true,
	model.TypeRespuestaCorta:    true,
	model.TypeCompletarBlanco:   true,
	model.TypeRespuestaLarga:    true,
	model.TypeCodigo:            true,
}

func (s *AssessmentService) AddQuestion(caller Identity, assessmentID uint, req QuestionInput) (*model.Question, error) {
	if !caller.Role.IsGrader() {
		return nil, util.ErrPermissionDenied
	}
	if _, err := s.Questions.FindAssessmentByID(assessmentID); err != nil {
		return nil, err
	}
	if !knownQuestionTypes[req.Type] {
		return nil, fmt.Errorf("%w: unknown question type %q", util.ErrInvalidInput, req.Type)
	}

	question := &model.Question{
		AssessmentID: assessmentID,
		Type:         req.Type,
		Content:      req.Content,
		Category:     req.Category,
		Difficulty:   normalizeLevel(req.Difficulty),
		Points:       req.Points,
		Order:        req.Order,
		Explanation:  req.Explanation,
		Metadata:     req.Metadata,
	}
	if question.Points <= 0 {
		question.Points = 1
	}
	for _, o := range req.Options {
		question.Options = append(question.Options, model.QuestionOption{
			Text:      o.Text,
			IsCorrect: o.IsCorrect,
			Order:     o.Order,
		})
	}

	if err := s.Questions.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *AssessmentService) UpdateQuestion(caller Identity, questionID uint, req QuestionInput) (*model.Question, error) {
	if !caller.Role.IsGrader() {
		return nil, util.ErrPermissionDenied
	}
	question, err := s.Questions.FindQuestionByID(questionID)
	if err != nil {
		return nil, err
	}

	question.Content = req.Content
	question.Category = req.Category
	question.Explanation = req.Explanation
	question.Order = req.Order
	if req.Difficulty != "" {
		question.Difficulty = normalizeLevel(req.Difficulty)
	}
	if req.Points > 0 {
		question.Points = req.Points
	}
	if len(req.Metadata) > 0 {
		question.Metadata = req.Metadata
	}

	if err := s.Questions.UpdateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}
