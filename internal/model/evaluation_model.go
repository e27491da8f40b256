package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StringList is stored as a jsonb column so ordered lists survive the
// round-trip without a join table.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	return json.Unmarshal(data, l)
}

type EvaluationResult struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID  uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"interview_id"`
	OverallScore float64    `gorm:"type:float;not null" json:"overall_score"`
	Summary      string     `gorm:"type:text;not null" json:"summary"`
	Strengths    StringList `gorm:"type:jsonb" json:"strengths"`
	Weaknesses   StringList `gorm:"type:jsonb" json:"weaknesses"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Criteria []CriterionEvaluation `gorm:"foreignKey:ResultID;constraint:OnDelete:CASCADE" json:"criteria"`
}

func (r *EvaluationResult) TableName() string {
	return "evaluation_results"
}

type CriterionEvaluation struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ResultID         uuid.UUID  `gorm:"type:uuid;index;not null" json:"result_id"`
	Position         int        `gorm:"not null" json:"position"`
	Name             string     `gorm:"type:varchar(255);not null" json:"name"`
	Score            float64    `gorm:"type:float;not null" json:"score"`
	Justification    string     `gorm:"type:text" json:"justification"`
	SupportingQuotes StringList `gorm:"type:jsonb" json:"supporting_quotes"`
}

func (c *CriterionEvaluation) TableName() string {
	return "criterion_evaluations"
}
