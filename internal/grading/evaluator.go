// Package grading implements the stateless answer evaluator and score
// summation used by the attempt workflow. Everything here is a pure function
// of its inputs so the service layer can call it inside a transaction.
package grading

import (
	"sort"
	"strings"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
)

// Answer is one submitted answer, already decoded from the transport layer.
type Answer struct {
	QuestionID        uint
	SelectedOptionIDs []uint
	FreeText          string
	Code              string
	ObservedOutput    string
	Pairs             []model.MatchPair
}

// Result is the evaluation outcome for one answer. Both fields nil means
// the answer is left ungraded for manual or assisted review.
type Result struct {
	Correct *bool
	Points  *int
}

func graded(correct bool, full int) Result {
	points := 0
	if correct {
		points = full
	}
	return Result{Correct: &correct, Points: &points}
}

var ungraded = Result{}

// Evaluate dispatches on the question type. A malformed question or an
// unrecognized type degrades to ungraded; it never returns an error, so one
// bad answer cannot abort a whole submission.
func Evaluate(q *model.Question, ans Answer) Result {
	switch q.Type {
	case model.TypeOpcionMultiple, model.TypeVerdaderoFalso:
		return evaluateSingleChoice(q, ans)
	case model.TypeSeleccionMultiple:
		return evaluateMultiChoice(q, ans)
	case model.TypeRelacionPar:
		return evaluatePairs(q, ans)
	case model.TypeRespuestaCorta, model.TypeCompletarBlanco, model.TypeRespuestaLarga:
		return evaluateText(q, ans.FreeText)
	case model.TypeCodigo:
		return evaluateCode(q, ans)
	default:
		return ungraded
	}
}

func evaluateSingleChoice(q *model.Question, ans Answer) Result {
	correctIDs := q.CorrectOptionIDs()
	if len(correctIDs) != 1 {
		// No (or ambiguous) answer key on record.
		return ungraded
	}
	ok := len(ans.SelectedOptionIDs) == 1 && ans.SelectedOptionIDs[0] == correctIDs[0]
	return graded(ok, q.Points)
}

func evaluateMultiChoice(q *model.Question, ans Answer) Result {
	correctIDs := q.CorrectOptionIDs()
	if len(correctIDs) == 0 {
		return ungraded
	}
	return graded(sameIDSet(ans.SelectedOptionIDs, correctIDs), q.Points)
}

// sameIDSet compares two id lists as sets; order is irrelevant.
func sameIDSet(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]uint(nil), a...)
	bs := append([]uint(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// evaluatePairs compares the submitted pairing against the canonical pairing
// with order-sensitive equality. Unordered pair-set equality may have been
// intended upstream; the ordered comparison is kept deliberately.
func evaluatePairs(q *model.Question, ans Answer) Result {
	meta, err := q.PairMetadata()
	if err != nil || len(meta.Pairs) == 0 {
		return ungraded
	}
	if len(ans.Pairs) != len(meta.Pairs) {
		return graded(false, q.Points)
	}
	for i, p := range meta.Pairs {
		if ans.Pairs[i].Left != p.Left || ans.Pairs[i].Right != p.Right {
			return graded(false, q.Points)
		}
	}
	return graded(true, q.Points)
}

// evaluateText grades only when a canonical key exists; free text is never
// interpreted beyond normalized comparison.
func evaluateText(q *model.Question, text string) Result {
	meta, err := q.TextKeyMetadata()
	if err != nil || len(meta.AcceptedAnswers) == 0 {
		return ungraded
	}
	got := Normalize(text)
	for _, accepted := range meta.AcceptedAnswers {
		if got == Normalize(accepted) {
			return graded(true, q.Points)
		}
	}
	return graded(false, q.Points)
}

func evaluateCode(q *model.Question, ans Answer) Result {
	meta, err := q.CodeMetadata()
	if err != nil || meta.ExpectedOutput == "" {
		return ungraded
	}
	return graded(Normalize(ans.ObservedOutput) == Normalize(meta.ExpectedOutput), q.Points)
}

// Normalize trims, lowercases and collapses internal whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
