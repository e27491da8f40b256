package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/model"
	"gorm.io/gorm"
)

type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db}
}

// SaveResult writes the result with its criteria and flips the interview to
// evaluated in a single transaction. The interview must still be in
// processing; anything else means the state machine was violated and the
// whole write is rolled back.
func (r *EvaluationRepository) SaveResult(res *model.EvaluationResult) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(res).Error; err != nil {
			return err
		}

		upd := tx.Model(&model.Interview{}).
			Where("id = ? AND status = ?", res.InterviewID, model.StatusProcessing).
			Updates(map[string]any{
				"status":     model.StatusEvaluated,
				"updated_at": time.Now(),
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return fmt.Errorf("interview %s is not in processing state", res.InterviewID)
		}
		return nil
	})
}

func (r *EvaluationRepository) FindByInterviewID(interviewID string) (*model.EvaluationResult, error) {
	var res model.EvaluationResult
	err := r.db.Preload("Criteria", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&res, "interview_id = ?", interviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListResults returns evaluated results newest first, along with the total
// count for pagination.
func (r *EvaluationRepository) ListResults(page, pageSize int) ([]model.EvaluationResult, int64, error) {
	var total int64
	if err := r.db.Model(&model.EvaluationResult{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []model.EvaluationResult
	err := r.db.Preload("Criteria", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
