package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/config"
	"github.com/fadilmartias/interview-evaluator/internal/model"
	"github.com/fadilmartias/interview-evaluator/internal/repository"
	"github.com/fadilmartias/interview-evaluator/internal/response"
	"github.com/fadilmartias/interview-evaluator/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Synchronous workflow errors, surfaced directly to the caller. Failures of
// the asynchronous judge call are never returned here; they are recorded on
// the interview row and observed through GetStatus.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("interview not found")
	ErrInvalidState = errors.New("operation not valid in current state")
	ErrNotReady     = errors.New("evaluation result not ready")
)

type InterviewRepositoryInterface interface {
	Create(iv *model.Interview) error
	FindByID(id string) (*model.Interview, error)
	TransitionStatus(id string, from []string, to string) (bool, error)
	MarkError(id, code, message string) error
}

type EvaluationRepositoryInterface interface {
	SaveResult(res *model.EvaluationResult) error
	FindByInterviewID(interviewID string) (*model.EvaluationResult, error)
	ListResults(page, pageSize int) ([]model.EvaluationResult, int64, error)
}

type TranscriptStoreInterface interface {
	Put(content []byte) (string, error)
	Get(ref string) ([]byte, error)
}

// EvaluationUsecase owns the interview lifecycle: it is the only path that
// moves an interview through uploaded -> processing -> evaluated | error.
type EvaluationUsecase struct {
	interviewRepo  InterviewRepositoryInterface
	evaluationRepo EvaluationRepositoryInterface
	transcripts    TranscriptStoreInterface
	judge          service.JudgeInterface
	rubric         []config.RubricCriterion
	logger         *zap.Logger

	wg sync.WaitGroup
}

func NewEvaluationUsecase(
	interviewRepo InterviewRepositoryInterface,
	evaluationRepo EvaluationRepositoryInterface,
	transcripts TranscriptStoreInterface,
	judge service.JudgeInterface,
	rubric []config.RubricCriterion,
	logger *zap.Logger,
) *EvaluationUsecase {
	return &EvaluationUsecase{
		interviewRepo:  interviewRepo,
		evaluationRepo: evaluationRepo,
		transcripts:    transcripts,
		judge:          judge,
		rubric:         rubric,
		logger:         logger,
	}
}

// Submit stores the transcript durably and creates the interview in the
// uploaded state. It never invokes the judge; upload and evaluation are
// decoupled so evaluation can be retried without re-uploading.
func (uc *EvaluationUsecase) Submit(candidateName string, transcript []byte) (*model.Interview, error) {
	candidateName = strings.TrimSpace(candidateName)
	if candidateName == "" {
		return nil, fmt.Errorf("%w: candidate name is required", ErrValidation)
	}
	if len(strings.TrimSpace(string(transcript))) == 0 {
		return nil, fmt.Errorf("%w: transcript is empty", ErrValidation)
	}

	ref, err := uc.transcripts.Put(transcript)
	if err != nil {
		return nil, fmt.Errorf("store transcript: %w", err)
	}

	now := time.Now()
	iv := &model.Interview{
		ID:            uuid.New(),
		CandidateName: candidateName,
		Status:        model.StatusUploaded,
		TranscriptRef: ref,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.interviewRepo.Create(iv); err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}

	uc.logger.Info("interview uploaded",
		zap.String("interview_id", iv.ID.String()),
		zap.String("candidate", candidateName),
		zap.Int("transcript_bytes", len(transcript)),
	)
	return iv, nil
}

// RequestEvaluation moves the interview into processing and dispatches the
// judge in the background. The transition is an atomic test-and-set, so at
// most one judge call can be in flight per interview: concurrent callers
// racing on the same interview see ErrInvalidState instead of triggering a
// second call.
func (uc *EvaluationUsecase) RequestEvaluation(id string) error {
	iv, err := uc.interviewRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	ok, err := uc.interviewRepo.TransitionStatus(id, []string{model.StatusUploaded, model.StatusError}, model.StatusProcessing)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: interview is %s", ErrInvalidState, iv.Status)
	}

	uc.logger.Info("evaluation started", zap.String("interview_id", id))

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		uc.evaluate(iv)
	}()
	return nil
}

// Wait blocks until all in-flight evaluations have completed. Used for
// graceful shutdown.
func (uc *EvaluationUsecase) Wait() {
	uc.wg.Wait()
}

func (uc *EvaluationUsecase) evaluate(iv *model.Interview) {
	id := iv.ID.String()

	transcript, err := uc.transcripts.Get(iv.TranscriptRef)
	if err != nil {
		uc.fail(id, model.ErrorCodeProviderUnavailable, fmt.Sprintf("transcript unavailable: %v", err))
		return
	}

	verdict, err := uc.judge.Evaluate(context.Background(), string(transcript), iv.CandidateName, uc.rubric)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedVerdict):
			uc.fail(id, model.ErrorCodeSchemaMismatch, err.Error())
		default:
			uc.fail(id, model.ErrorCodeProviderUnavailable, err.Error())
		}
		return
	}

	resultID := uuid.New()
	res := &model.EvaluationResult{
		ID:           resultID,
		InterviewID:  iv.ID,
		OverallScore: verdict.OverallScore,
		Summary:      verdict.Summary,
		Strengths:    model.StringList(verdict.Strengths),
		Weaknesses:   model.StringList(verdict.Weaknesses),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	for i, c := range verdict.Criteria {
		res.Criteria = append(res.Criteria, model.CriterionEvaluation{
			ID:               uuid.New(),
			ResultID:         resultID,
			Position:         i,
			Name:             c.Name,
			Score:            c.Score,
			Justification:    c.Justification,
			SupportingQuotes: model.StringList(c.SupportingQuotes),
		})
	}

	if err := uc.evaluationRepo.SaveResult(res); err != nil {
		uc.logger.Error("persist evaluation result", zap.String("interview_id", id), zap.Error(err))
		uc.fail(id, model.ErrorCodeProviderUnavailable, fmt.Sprintf("failed to persist result: %v", err))
		return
	}

	uc.logger.Info("evaluation completed",
		zap.String("interview_id", id),
		zap.Float64("overall_score", verdict.OverallScore),
		zap.Int("criteria", len(verdict.Criteria)),
	)
}

func (uc *EvaluationUsecase) fail(id, code, message string) {
	uc.logger.Warn("evaluation failed",
		zap.String("interview_id", id),
		zap.String("error_code", code),
		zap.String("error_message", message),
	)
	if err := uc.interviewRepo.MarkError(id, code, message); err != nil {
		uc.logger.Error("mark interview error", zap.String("interview_id", id), zap.Error(err))
	}
}

// GetStatus is a pure read used for polling; it never blocks on the judge.
func (uc *EvaluationUsecase) GetStatus(id string) (*model.Interview, error) {
	iv, err := uc.interviewRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return iv, nil
}

// GetResult returns the evaluation result once the interview has reached
// the evaluated state.
func (uc *EvaluationUsecase) GetResult(id string) (*model.EvaluationResult, error) {
	iv, err := uc.interviewRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if iv.Status != model.StatusEvaluated {
		return nil, fmt.Errorf("%w: interview is %s", ErrNotReady, iv.Status)
	}

	res, err := uc.evaluationRepo.FindByInterviewID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// List returns evaluated results newest first with the standard pagination
// envelope.
func (uc *EvaluationUsecase) List(page, pageSize int) ([]model.EvaluationResult, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	results, total, err := uc.evaluationRepo.ListResults(page, pageSize)
	if err != nil {
		return nil, nil, err
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}

	from := 0
	to := 0
	if len(results) > 0 {
		from = (page-1)*pageSize + 1
		to = from + len(results) - 1
	}

	pagination := &response.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: total,
		HasMore:    int64(page) < totalPages,
		From:       from,
		To:         to,
	}
	return results, pagination, nil
}
