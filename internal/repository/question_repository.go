package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

const questionCacheTTL = 5 * time.Minute

type QuestionRepository struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewQuestionRepository(db *gorm.DB, rdb *redis.Client) *QuestionRepository {
	return &QuestionRepository{DB: db, RDB: rdb}
}

func (r *QuestionRepository) CreateAssessment(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

func (r *QuestionRepository) FindAssessmentByID(id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssessmentNotFound
	}
	return &a, err
}

func (r *QuestionRepository) ListAssessments(page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.Model(&model.Assessment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *QuestionRepository) CreateQuestion(q *model.Question) error {
	if err := r.DB.Create(q).Error; err != nil {
		return err
	}
	r.invalidateCache(q.AssessmentID)
	return nil
}

func (r *QuestionRepository) UpdateQuestion(q *model.Question) error {
	if err := r.DB.Save(q).Error; err != nil {
		return err
	}
	r.invalidateCache(q.AssessmentID)
	return nil
}

func (r *QuestionRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options").First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	return &q, err
}

// ListByAssessment returns all questions of an assessment with their options,
// served from redis when possible. Submissions hit this on every grade, the
// bank itself rarely changes.
func (r *QuestionRepository) ListByAssessment(assessmentID uint) ([]model.Question, error) {
	ctx := context.Background()
	key := questionCacheKey(assessmentID)

	if r.RDB != nil {
		if raw, err := r.RDB.Get(ctx, key).Bytes(); err == nil {
			var cached []model.Question
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var qs []model.Question
	err := r.DB.Preload("Options").
		Where("assessment_id = ?", assessmentID).
		Order("`order` asc, created_at asc").
		Find(&qs).Error
	if err != nil {
		return nil, err
	}

	if r.RDB != nil {
		if raw, err := json.Marshal(qs); err == nil {
			r.RDB.Set(ctx, key, raw, questionCacheTTL)
		}
	}

	return qs, nil
}

func (r *QuestionRepository) invalidateCache(assessmentID uint) {
	if r.RDB != nil {
		r.RDB.Del(context.Background(), questionCacheKey(assessmentID))
	}
}

func questionCacheKey(assessmentID uint) string {
	return fmt.Sprintf("questions:assessment:%d", assessmentID)
}
