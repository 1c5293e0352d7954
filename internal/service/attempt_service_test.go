package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

func option(id uint, correct bool) model.QuestionOption {
	o := model.QuestionOption{Text: "opción", IsCorrect: correct}
	o.ID = id
	return o
}

// seedAssessment creates an assessment with one single-choice question
// (option 11 correct, 3 points) and one multi-choice question (options 21
// and 23 correct, 5 points).
func seedAssessment(t *testing.T, questions *fakeQuestionStore) uint {
	t.Helper()
	assessment := &model.Assessment{Title: "Álgebra básica"}
	require.NoError(t, questions.CreateAssessment(assessment))

	q1 := &model.Question{
		AssessmentID: assessment.ID,
		Type:         model.TypeOpcionMultiple,
		Content:      "¿Cuánto es 2+2?",
		Points:       3,
		Order:        1,
		Options:      []model.QuestionOption{option(11, true), option(12, false)},
	}
	require.NoError(t, questions.CreateQuestion(q1))

	q2 := &model.Question{
		AssessmentID: assessment.ID,
		Type:         model.TypeSeleccionMultiple,
		Content:      "Seleccione los números pares",
		Points:       5,
		Order:        2,
		Options: []model.QuestionOption{
			option(21, true), option(22, false), option(23, true),
		},
	}
	require.NoError(t, questions.CreateQuestion(q2))

	return assessment.ID
}

func questionIDs(t *testing.T, questions *fakeQuestionStore, assessmentID uint) (uint, uint) {
	t.Helper()
	qs, err := questions.ListByAssessment(assessmentID)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	return qs[0].ID, qs[1].ID
}

func TestStartAttemptQuota(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	for i := 0; i < 3; i++ {
		a, err := svc.StartAttempt(caller, assessmentID)
		require.NoError(t, err)
		assert.Equal(t, model.AttemptInProgress, a.Status)
	}

	_, err := svc.StartAttempt(caller, assessmentID)
	assert.ErrorIs(t, err, util.ErrAttemptQuotaExceeded)

	// Other users are not affected by this user's quota.
	_, err = svc.StartAttempt(Identity{UserID: 8, Role: model.Student}, assessmentID)
	assert.NoError(t, err)
}

func TestStartAttemptUnknownAssessment(t *testing.T) {
	svc := NewAttemptService(newFakeAttemptStore(), newFakeQuestionStore(), 3)
	_, err := svc.StartAttempt(Identity{UserID: 7, Role: model.Student}, 99)
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestSubmitAnswersGradesAndAggregates(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(caller, assessmentID)
	require.NoError(t, err)
	q1, q2 := questionIDs(t, questions, assessmentID)

	result, err := svc.SubmitAnswers(caller, attempt.ID, []AnswerSubmission{
		{QuestionID: q1, SelectedOptionIDs: []uint{11}},
		{QuestionID: q2, SelectedOptionIDs: []uint{23, 21}}, // order irrelevant
	})
	require.NoError(t, err)

	assert.Equal(t, model.AttemptSubmitted, result.Attempt.Status)
	require.NotNil(t, result.Attempt.TotalScore)
	assert.Equal(t, 8, *result.Attempt.TotalScore)
	assert.NotNil(t, result.Attempt.FinishedAt)
	assert.Len(t, result.Answers, 2)
}

func TestSubmitAnswersIdempotent(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(caller, assessmentID)
	require.NoError(t, err)
	q1, q2 := questionIDs(t, questions, assessmentID)

	payload := []AnswerSubmission{
		{QuestionID: q1, SelectedOptionIDs: []uint{11}},
		{QuestionID: q2, SelectedOptionIDs: []uint{21, 23}},
	}
	first, err := svc.SubmitAnswers(caller, attempt.ID, payload)
	require.NoError(t, err)

	// Same payload again: nothing is recorded twice, the total is unchanged.
	second, err := svc.SubmitAnswers(caller, attempt.ID, payload)
	require.NoError(t, err)
	assert.Len(t, second.Answers, 2)
	assert.Equal(t, *first.Attempt.TotalScore, *second.Attempt.TotalScore)
}

func TestSubmitAnswersResubmitKeepsFinishTime(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(caller, assessmentID)
	require.NoError(t, err)
	q1, q2 := questionIDs(t, questions, assessmentID)

	payload := []AnswerSubmission{
		{QuestionID: q1, SelectedOptionIDs: []uint{11}},
		{QuestionID: q2, SelectedOptionIDs: []uint{21, 23}},
	}
	first, err := svc.SubmitAnswers(caller, attempt.ID, payload)
	require.NoError(t, err)
	require.NotNil(t, first.Attempt.FinishedAt)

	time.Sleep(5 * time.Millisecond)

	// A replay that lands no new records keeps the original finish time.
	second, err := svc.SubmitAnswers(caller, attempt.ID, payload)
	require.NoError(t, err)
	require.NotNil(t, second.Attempt.FinishedAt)
	assert.True(t, second.Attempt.FinishedAt.Equal(*first.Attempt.FinishedAt))
}

func TestSubmitAnswersSkipsDuplicatesAndUnknown(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(caller, assessmentID)
	require.NoError(t, err)
	q1, _ := questionIDs(t, questions, assessmentID)

	result, err := svc.SubmitAnswers(caller, attempt.ID, []AnswerSubmission{
		{QuestionID: q1, SelectedOptionIDs: []uint{11}},
		{QuestionID: q1, SelectedOptionIDs: []uint{12}}, // duplicate, ignored
		{QuestionID: 9999},                              // not in this assessment
	})
	require.NoError(t, err)
	require.Len(t, result.Answers, 1)
	require.NotNil(t, result.Answers[0].IsCorrect)
	assert.True(t, *result.Answers[0].IsCorrect)
}

func TestSubmitAnswersAuthorization(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	owner := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(owner, assessmentID)
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(Identity{UserID: 8, Role: model.Student}, attempt.ID, nil)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestSubmitAnswersForwardOnly(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(caller, assessmentID)
	require.NoError(t, err)

	stored, err := attempts.FindAttemptByID(attempt.ID)
	require.NoError(t, err)
	stored.Status = model.AttemptGraded
	require.NoError(t, attempts.UpdateAttempt(stored))

	_, err = svc.SubmitAnswers(caller, attempt.ID, nil)
	assert.ErrorIs(t, err, util.ErrWrongState)
}

func TestGradeAttemptAdvancesState(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	student := Identity{UserID: 7, Role: model.Student}
	grader := Identity{UserID: 1, Role: model.Teacher}

	attempt, err := svc.StartAttempt(student, assessmentID)
	require.NoError(t, err)
	q1, q2 := questionIDs(t, questions, assessmentID)
	_, err = svc.SubmitAnswers(student, attempt.ID, []AnswerSubmission{
		{QuestionID: q1, SelectedOptionIDs: []uint{12}},
		{QuestionID: q2, SelectedOptionIDs: []uint{21, 23}},
	})
	require.NoError(t, err)

	// Students cannot grade, not even their own attempt.
	_, err = svc.GradeAttempt(student, attempt.ID, GradeRequest{})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	result, err := svc.GradeAttempt(grader, attempt.ID, GradeRequest{
		Grades: []ManualGrade{{QuestionID: q1, Correct: true, Points: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptGraded, result.Attempt.Status)
	require.NotNil(t, result.Attempt.TotalScore)
	assert.Equal(t, 7, *result.Attempt.TotalScore)

	// graded -> graded without a review pass is rejected.
	_, err = svc.GradeAttempt(grader, attempt.ID, GradeRequest{})
	assert.ErrorIs(t, err, util.ErrWrongState)

	reviewed, err := svc.GradeAttempt(grader, attempt.ID, GradeRequest{Review: true})
	require.NoError(t, err)
	assert.Equal(t, model.AttemptReviewed, reviewed.Attempt.Status)

	// reviewed is terminal.
	_, err = svc.GradeAttempt(grader, attempt.ID, GradeRequest{Review: true})
	assert.ErrorIs(t, err, util.ErrWrongState)
}

func TestRecomputeScore(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)
	caller := Identity{UserID: 7, Role: model.Student}

	attempt, err := svc.StartAttempt(caller, assessmentID)
	require.NoError(t, err)
	q1, q2 := questionIDs(t, questions, assessmentID)
	_, err = svc.SubmitAnswers(caller, attempt.ID, []AnswerSubmission{
		{QuestionID: q1, SelectedOptionIDs: []uint{11}},
		{QuestionID: q2, SelectedOptionIDs: []uint{21, 23}},
	})
	require.NoError(t, err)

	total, err := svc.RecomputeScore(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, total)

	// Recompute is derived, not accumulated: running it again changes nothing.
	again, err := svc.RecomputeScore(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, total, again)
}

func TestListAttemptsGraderOnly(t *testing.T) {
	attempts := newFakeAttemptStore()
	questions := newFakeQuestionStore()
	assessmentID := seedAssessment(t, questions)
	svc := NewAttemptService(attempts, questions, 3)

	_, _, err := svc.ListAttempts(Identity{UserID: 7, Role: model.Student}, assessmentID, 1, 10)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.StartAttempt(Identity{UserID: 7, Role: model.Student}, assessmentID)
	require.NoError(t, err)

	list, total, err := svc.ListAttempts(Identity{UserID: 1, Role: model.Admin}, assessmentID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}
