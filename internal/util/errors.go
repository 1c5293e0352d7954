package util

import "errors"

var (
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAssessmentNotFound   = errors.New("assessment not found")
	ErrAnalysisNotFound     = errors.New("analysis not found")
	ErrSessionNotFound      = errors.New("adaptive session not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrAttemptQuotaExceeded = errors.New("attempt quota exceeded")
	ErrWrongState           = errors.New("operation not allowed in current state")
	ErrConflict             = errors.New("concurrent duplicate creation")
	ErrInvalidInput         = errors.New("invalid input")
	ErrReasoningService     = errors.New("reasoning service unavailable")
)
