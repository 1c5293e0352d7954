package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/model"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AnalysisRepository struct {
	DB *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{DB: db}
}

// CreateJob inserts a fresh processing job. The (user_id, attempt_id)
// unique index serializes concurrent requests; the loser of the race gets
// ErrConflict instead of a second processing row.
func (r *AnalysisRepository) CreateJob(job *model.AnalysisJob) error {
	err := r.DB.Create(job).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrConflict
	}
	return err
}

func (r *AnalysisRepository) FindJobByID(id string) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := r.DB.Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAnalysisNotFound
	}
	return &job, err
}

func (r *AnalysisRepository) FindJobByAttempt(userID, attemptID uint) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := r.DB.Where("user_id = ? AND attempt_id = ?", userID, attemptID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAnalysisNotFound
	}
	return &job, err
}

func (r *AnalysisRepository) UpdateJob(job *model.AnalysisJob) error {
	return r.DB.Save(job).Error
}

// ReplaceJob discards a failed (or stale) job and creates its replacement in
// one transaction. The old row is hard-deleted: a soft delete would keep it
// inside the unique index and block the new processing row.
func (r *AnalysisRepository) ReplaceJob(old *model.AnalysisJob, fresh *model.AnalysisJob) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(old).Error; err != nil {
			return err
		}
		return tx.Create(fresh).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrConflict
	}
	return err
}
