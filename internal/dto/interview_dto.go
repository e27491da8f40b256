package dto

import (
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/model"
	"github.com/google/uuid"
)

type UploadDTO struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type StatusDTO struct {
	ID            uuid.UUID `json:"id"`
	CandidateName string    `json:"candidate_name"`
	Status        string    `json:"status"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CriterionDTO struct {
	Name             string   `json:"name"`
	Score            float64  `json:"score"`
	Justification    string   `json:"justification"`
	SupportingQuotes []string `json:"supporting_quotes"`
}

type EvaluationResultDTO struct {
	InterviewID  uuid.UUID      `json:"interview_id"`
	OverallScore float64        `json:"overall_score"`
	Summary      string         `json:"summary"`
	Strengths    []string       `json:"strengths"`
	Weaknesses   []string       `json:"weaknesses"`
	Criteria     []CriterionDTO `json:"criteria"`
	CreatedAt    time.Time      `json:"created_at"`
}

func NewStatusDTO(iv *model.Interview) StatusDTO {
	return StatusDTO{
		ID:            iv.ID,
		CandidateName: iv.CandidateName,
		Status:        iv.Status,
		ErrorCode:     iv.ErrorCode,
		ErrorMessage:  iv.ErrorMessage,
		CreatedAt:     iv.CreatedAt,
		UpdatedAt:     iv.UpdatedAt,
	}
}

func NewEvaluationResultDTO(res *model.EvaluationResult) EvaluationResultDTO {
	out := EvaluationResultDTO{
		InterviewID:  res.InterviewID,
		OverallScore: res.OverallScore,
		Summary:      res.Summary,
		Strengths:    res.Strengths,
		Weaknesses:   res.Weaknesses,
		Criteria:     make([]CriterionDTO, 0, len(res.Criteria)),
		CreatedAt:    res.CreatedAt,
	}
	for _, c := range res.Criteria {
		out.Criteria = append(out.Criteria, CriterionDTO{
			Name:             c.Name,
			Score:            c.Score,
			Justification:    c.Justification,
			SupportingQuotes: c.SupportingQuotes,
		})
	}
	return out
}
