package model

import (
	"time"

	"github.com/google/uuid"
)

// Interview lifecycle statuses. Transitions are monotonic:
// uploaded -> processing -> evaluated | error. A failed interview may be
// retried (error -> processing); evaluated is final.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusEvaluated  = "evaluated"
	StatusError      = "error"
)

// Error codes recorded on an interview that ended in the error state.
const (
	ErrorCodeProviderUnavailable = "provider_unavailable"
	ErrorCodeSchemaMismatch      = "schema_mismatch"
)

type Interview struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateName string    `gorm:"type:varchar(255);not null" json:"candidate_name"`
	Status        string    `gorm:"type:varchar(20);not null;index" json:"status"`
	TranscriptRef string    `gorm:"type:text;not null" json:"transcript_ref"`
	ErrorCode     string    `gorm:"type:varchar(50)" json:"error_code,omitempty"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Result *EvaluationResult `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE" json:"result,omitempty"`
}

func (i *Interview) TableName() string {
	return "interviews"
}

// Terminal reports whether no further automatic transition will occur.
func (i *Interview) Terminal() bool {
	return i.Status == StatusEvaluated || i.Status == StatusError
}
