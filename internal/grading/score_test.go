package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
)

func record(points *int) model.AnswerRecord {
	return model.AnswerRecord{Points: points}
}

func intPtr(v int) *int { return &v }

func TestTotalScoreSkipsUngraded(t *testing.T) {
	records := []model.AnswerRecord{
		record(intPtr(5)),
		record(nil),
		record(intPtr(0)),
		record(intPtr(3)),
	}
	assert.Equal(t, 8, TotalScore(records))
}

func TestTotalScoreEmpty(t *testing.T) {
	assert.Equal(t, 0, TotalScore(nil))
}

func TestTotalScoreIsIdempotent(t *testing.T) {
	records := []model.AnswerRecord{record(intPtr(2)), record(intPtr(4))}
	first := TotalScore(records)
	second := TotalScore(records)
	assert.Equal(t, first, second)
}
