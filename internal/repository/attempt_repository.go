package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/grading"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) CreateAttempt(a *model.Attempt) error {
	return r.DB.Create(a).Error
}

func (r *AttemptRepository) FindAttemptByID(id uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	return &a, err
}

// CountAttempts counts every prior attempt regardless of status; abandoned
// and in-progress attempts consume quota too.
func (r *AttemptRepository) CountAttempts(userID, assessmentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) UpdateAttempt(a *model.Attempt) error {
	return r.DB.Save(a).Error
}

func (r *AttemptRepository) ListAnswers(attemptID uint) ([]model.AnswerRecord, error) {
	var records []model.AnswerRecord
	err := r.DB.Where("attempt_id = ?", attemptID).Order("question_id asc").Find(&records).Error
	return records, err
}

func (r *AttemptRepository) ListAttempts(assessmentID uint, page, limit int) ([]model.Attempt, int64, error) {
	var attempts []model.Attempt
	var total int64
	query := r.DB.Model(&model.Attempt{})
	if assessmentID > 0 {
		query = query.Where("assessment_id = ?", assessmentID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

// FinalizeSubmission persists the evaluated records, recomputes the total
// from the stored rows and flips the attempt to submitted — all in one
// transaction, so a partial failure can never leave the status set with
// records missing. Records colliding with the (attempt_id, question_id)
// unique index are skipped: a concurrent duplicate submit loses quietly.
func (r *AttemptRepository) FinalizeSubmission(attempt *model.Attempt, records []model.AnswerRecord) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		created := 0
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					continue
				}
				return err
			}
			created++
		}

		// A replayed submission that landed nothing new keeps the original
		// aggregate and finish time.
		if created == 0 && attempt.Status == model.AttemptSubmitted {
			return nil
		}

		var stored []model.AnswerRecord
		if err := tx.Where("attempt_id = ?", attempt.ID).Find(&stored).Error; err != nil {
			return err
		}

		now := time.Now()
		total := grading.TotalScore(stored)
		attempt.TotalScore = &total
		attempt.Status = model.AttemptSubmitted
		attempt.FinishedAt = &now

		return tx.Save(attempt).Error
	})
}

// UpdateRecordsAndScore applies manual grading results and the recomputed
// total atomically with the attempt status transition.
func (r *AttemptRepository) UpdateRecordsAndScore(attempt *model.Attempt, records []model.AnswerRecord) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := tx.Save(&records[i]).Error; err != nil {
				return err
			}
		}

		var stored []model.AnswerRecord
		if err := tx.Where("attempt_id = ?", attempt.ID).Find(&stored).Error; err != nil {
			return err
		}

		total := grading.TotalScore(stored)
		attempt.TotalScore = &total

		return tx.Save(attempt).Error
	})
}

// UpdateScore overwrites the aggregate from the given total.
func (r *AttemptRepository) UpdateScore(attemptID uint, total int) error {
	return r.DB.Model(&model.Attempt{}).Where("id = ?", attemptID).Update("total_score", total).Error
}
