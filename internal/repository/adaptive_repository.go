package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AdaptiveRepository struct {
	DB *gorm.DB
}

func NewAdaptiveRepository(db *gorm.DB) *AdaptiveRepository {
	return &AdaptiveRepository{DB: db}
}

func (r *AdaptiveRepository) CreateSession(t *model.AdaptiveTest) error {
	return r.DB.Create(t).Error
}

func (r *AdaptiveRepository) FindSessionByID(id uint) (*model.AdaptiveTest, error) {
	var t model.AdaptiveTest
	err := r.DB.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	return &t, err
}

func (r *AdaptiveRepository) UpdateSession(t *model.AdaptiveTest) error {
	return r.DB.Save(t).Error
}

// CreateQuestion stores one generated question. The (test_id, position)
// unique index keeps a retried generation from filling the same slot twice.
func (r *AdaptiveRepository) CreateQuestion(q *model.AdaptiveQuestion) error {
	err := r.DB.Create(q).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrConflict
	}
	return err
}

func (r *AdaptiveRepository) FindQuestion(testID, questionID uint) (*model.AdaptiveQuestion, error) {
	var q model.AdaptiveQuestion
	err := r.DB.Where("test_id = ? AND id = ?", testID, questionID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	return &q, err
}

func (r *AdaptiveRepository) ListQuestions(testID uint) ([]model.AdaptiveQuestion, error) {
	var qs []model.AdaptiveQuestion
	err := r.DB.Where("test_id = ?", testID).Order("position asc").Find(&qs).Error
	return qs, err
}

// RecordAnswer persists the graded question together with the session
// counters in one transaction.
func (r *AdaptiveRepository) RecordAnswer(t *model.AdaptiveTest, q *model.AdaptiveQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		return tx.Save(t).Error
	})
}
