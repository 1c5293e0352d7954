package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/grading"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

// In-memory stores mirroring the repository semantics: sentinel errors on
// missing rows, util.ErrConflict where a unique index would fire.

type fakeAttemptStore struct {
	mu       sync.Mutex
	nextID   uint
	attempts map[uint]*model.Attempt
	answers  map[uint][]model.AnswerRecord
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		nextID:   1,
		attempts: make(map[uint]*model.Attempt),
		answers:  make(map[uint][]model.AnswerRecord),
	}
}

func (f *fakeAttemptStore) CreateAttempt(a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) FindAttemptByID(id uint) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) CountAttempts(userID, assessmentID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttemptStore) UpdateAttempt(a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.attempts[a.ID]; !ok {
		return util.ErrAttemptNotFound
	}
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) ListAnswers(attemptID uint) ([]model.AnswerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AnswerRecord(nil), f.answers[attemptID]...), nil
}

func (f *fakeAttemptStore) ListAttempts(assessmentID uint, page, limit int) ([]model.Attempt, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.AssessmentID == assessmentID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeAttemptStore) FinalizeSubmission(attempt *model.Attempt, records []model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.answers[attempt.ID]
	created := 0
	for _, rec := range records {
		dup := false
		for _, prev := range stored {
			if prev.QuestionID == rec.QuestionID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		rec.ID = uint(len(stored) + 1)
		stored = append(stored, rec)
		created++
	}
	f.answers[attempt.ID] = stored

	// Mirrors the repository: a replay that landed nothing new keeps the
	// original aggregate and finish time.
	if created == 0 && attempt.Status == model.AttemptSubmitted {
		return nil
	}

	total := grading.TotalScore(stored)
	now := time.Now()
	attempt.TotalScore = &total
	attempt.Status = model.AttemptSubmitted
	attempt.FinishedAt = &now
	cp := *attempt
	f.attempts[attempt.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) UpdateRecordsAndScore(attempt *model.Attempt, records []model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.answers[attempt.ID]
	for _, rec := range records {
		for i := range stored {
			if stored[i].QuestionID == rec.QuestionID {
				stored[i] = rec
			}
		}
	}
	f.answers[attempt.ID] = stored
	total := grading.TotalScore(stored)
	attempt.TotalScore = &total
	cp := *attempt
	f.attempts[attempt.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) UpdateScore(attemptID uint, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	a.TotalScore = &total
	return nil
}

type fakeQuestionStore struct {
	mu          sync.Mutex
	nextID      uint
	assessments map[uint]*model.Assessment
	questions   map[uint]*model.Question
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{
		nextID:      1,
		assessments: make(map[uint]*model.Assessment),
		questions:   make(map[uint]*model.Question),
	}
}

func (f *fakeQuestionStore) CreateAssessment(a *model.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.assessments[a.ID] = &cp
	return nil
}

func (f *fakeQuestionStore) FindAssessmentByID(id uint) (*model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assessments[id]
	if !ok {
		return nil, util.ErrAssessmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeQuestionStore) ListAssessments(page, limit int) ([]model.Assessment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Assessment
	for _, a := range f.assessments {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeQuestionStore) CreateQuestion(q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = f.nextID
	f.nextID++
	cp := *q
	f.questions[q.ID] = &cp
	return nil
}

func (f *fakeQuestionStore) UpdateQuestion(q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[q.ID]; !ok {
		return util.ErrQuestionNotFound
	}
	cp := *q
	f.questions[q.ID] = &cp
	return nil
}

func (f *fakeQuestionStore) FindQuestionByID(id uint) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuestionStore) ListByAssessment(assessmentID uint) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.questions {
		if q.AssessmentID == assessmentID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

type fakeAnalysisStore struct {
	mu   sync.Mutex
	jobs map[string]*model.AnalysisJob
}

func newFakeAnalysisStore() *fakeAnalysisStore {
	return &fakeAnalysisStore{jobs: make(map[string]*model.AnalysisJob)}
}

func (f *fakeAnalysisStore) CreateJob(job *model.AnalysisJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.UserID == job.UserID && j.AttemptID == job.AttemptID {
			return util.ErrConflict
		}
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = time.Now()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeAnalysisStore) FindJobByID(id string) (*model.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, util.ErrAnalysisNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeAnalysisStore) FindJobByAttempt(userID, attemptID uint) (*model.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.UserID == userID && j.AttemptID == attemptID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, util.ErrAnalysisNotFound
}

func (f *fakeAnalysisStore) UpdateJob(job *model.AnalysisJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; !ok {
		return util.ErrAnalysisNotFound
	}
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeAnalysisStore) ReplaceJob(old, fresh *model.AnalysisJob) error {
	f.mu.Lock()
	delete(f.jobs, old.ID)
	f.mu.Unlock()
	return f.CreateJob(fresh)
}

type fakeAdaptiveStore struct {
	mu        sync.Mutex
	nextID    uint
	sessions  map[uint]*model.AdaptiveTest
	questions map[uint][]model.AdaptiveQuestion
}

func newFakeAdaptiveStore() *fakeAdaptiveStore {
	return &fakeAdaptiveStore{
		nextID:    1,
		sessions:  make(map[uint]*model.AdaptiveTest),
		questions: make(map[uint][]model.AdaptiveQuestion),
	}
}

func (f *fakeAdaptiveStore) CreateSession(t *model.AdaptiveTest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	cp := *t
	f.sessions[t.ID] = &cp
	return nil
}

func (f *fakeAdaptiveStore) FindSessionByID(id uint) (*model.AdaptiveTest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.sessions[id]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeAdaptiveStore) UpdateSession(t *model.AdaptiveTest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[t.ID]; !ok {
		return util.ErrSessionNotFound
	}
	cp := *t
	f.sessions[t.ID] = &cp
	return nil
}

func (f *fakeAdaptiveStore) CreateQuestion(q *model.AdaptiveQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, prev := range f.questions[q.TestID] {
		if prev.Position == q.Position {
			return util.ErrConflict
		}
	}
	q.ID = f.nextID
	f.nextID++
	f.questions[q.TestID] = append(f.questions[q.TestID], *q)
	return nil
}

func (f *fakeAdaptiveStore) FindQuestion(testID, questionID uint) (*model.AdaptiveQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions[testID] {
		if q.ID == questionID {
			cp := q
			return &cp, nil
		}
	}
	return nil, util.ErrQuestionNotFound
}

func (f *fakeAdaptiveStore) ListQuestions(testID uint) ([]model.AdaptiveQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.AdaptiveQuestion(nil), f.questions[testID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeAdaptiveStore) RecordAnswer(t *model.AdaptiveTest, q *model.AdaptiveQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	qs := f.questions[t.ID]
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i] = *q
		}
	}
	cp := *t
	f.sessions[t.ID] = &cp
	return nil
}

// stubReasoning counts calls and serves canned payloads or scripted errors.
type stubReasoning struct {
	mu sync.Mutex

	analysisCalls int
	analysisErr   error
	analysis      *AnalysisPayload

	generateCalls int
	generateErr   error
	// failFromCall makes generation fail starting at the given call
	// number (1-based); zero disables it.
	failFromCall int
}

func (s *stubReasoning) AnalyzePerformance(ctx context.Context, req AnalysisRequest) (*AnalysisPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisCalls++
	if s.analysisErr != nil {
		return nil, s.analysisErr
	}
	if s.analysis != nil {
		cp := *s.analysis
		return &cp, nil
	}
	return &AnalysisPayload{
		GlobalScore:        8,
		Percentage:         80,
		Strengths:          []string{"algebra"},
		Weaknesses:         []string{"geometria"},
		Recommendations:    []string{"repasar geometria"},
		SuggestedStudyTime: "3 horas por semana",
	}, nil
}

func (s *stubReasoning) GenerateQuestion(ctx context.Context, req GenerationRequest) (*GeneratedQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateCalls++
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	if s.failFromCall > 0 && s.generateCalls >= s.failFromCall {
		return nil, fmt.Errorf("%w: generation unavailable", util.ErrReasoningService)
	}
	return &GeneratedQuestion{
		Content: fmt.Sprintf("Pregunta %d sobre %s (%s)", req.Position, req.Topic, req.Level),
		Options: []model.GeneratedOption{
			{ID: "a", Text: "Opción A"},
			{ID: "b", Text: "Opción B"},
			{ID: "c", Text: "Opción C"},
			{ID: "d", Text: "Opción D"},
		},
		CorrectAnswer: "a",
		Difficulty:    req.Level,
		Explanation:   "La opción a es la correcta.",
	}, nil
}
