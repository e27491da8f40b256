package repository

import (
	"errors"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/model"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type InterviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{db}
}

func (r *InterviewRepository) Create(iv *model.Interview) error {
	return r.db.Create(iv).Error
}

func (r *InterviewRepository) FindByID(id string) (*model.Interview, error) {
	var iv model.Interview
	err := r.db.First(&iv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// TransitionStatus performs an atomic test-and-set on the status column.
// It returns false when the row was not in any of the from states, which is
// how concurrent evaluation triggers lose the race. Entering processing
// clears any error left by a previous attempt.
func (r *InterviewRepository) TransitionStatus(id string, from []string, to string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == model.StatusProcessing {
		updates["error_code"] = ""
		updates["error_message"] = ""
	}

	res := r.db.Model(&model.Interview{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkError moves a processing interview into the terminal error state with
// a machine-readable code and a human-readable message.
func (r *InterviewRepository) MarkError(id, code, message string) error {
	res := r.db.Model(&model.Interview{}).
		Where("id = ? AND status = ?", id, model.StatusProcessing).
		Updates(map[string]any{
			"status":        model.StatusError,
			"error_code":    code,
			"error_message": message,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
