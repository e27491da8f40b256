package service

import (
	"context"
	"errors"

	"github.com/fadilmartias/interview-evaluator/internal/config"
)

// Judge failure classes. The workflow maps these onto the interview's
// terminal error codes, so every provider implementation must return its
// failures wrapped in one of them.
var (
	// ErrProviderUnavailable covers timeouts, rate limits and server errors
	// that survived the retry policy.
	ErrProviderUnavailable = errors.New("judge provider unavailable")

	// ErrMalformedVerdict means the provider answered but the payload failed
	// schema validation. Never retried: a schema mismatch is systematic and
	// re-prompting only burns quota.
	ErrMalformedVerdict = errors.New("malformed judge verdict")

	// ErrInvalidRequest covers client-side provider errors (bad credentials,
	// unknown model). Not retryable.
	ErrInvalidRequest = errors.New("invalid judge request")
)

// CriterionScore is one scored rubric topic in a verdict.
type CriterionScore struct {
	Name             string   `json:"name"`
	Score            float64  `json:"score"`
	Justification    string   `json:"justification"`
	SupportingQuotes []string `json:"supporting_quotes"`
}

// Verdict is the validated result of one judge invocation.
type Verdict struct {
	OverallScore float64          `json:"overall_score"`
	Summary      string           `json:"summary"`
	Strengths    []string         `json:"strengths"`
	Weaknesses   []string         `json:"weaknesses"`
	Criteria     []CriterionScore `json:"criteria"`
}

// JudgeInterface scores a transcript against the rubric. Implementations own
// their transport, timeout and retry policy and return only validated
// verdicts or classified errors.
type JudgeInterface interface {
	Evaluate(ctx context.Context, transcript, candidateName string, rubric []config.RubricCriterion) (*Verdict, error)
}
