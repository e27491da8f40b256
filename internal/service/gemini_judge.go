package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiJudge scores transcripts through the Gemini API. Each Evaluate call
// carries its own timeout and retries transient provider failures with
// exponential backoff; schema failures are returned immediately.
type GeminiJudge struct {
	client         *genai.Client
	model          string
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger
}

func NewGeminiJudge(ctx context.Context, cfg *config.GeminiConfig, judgeCfg *config.JudgeConfig, logger *zap.Logger) (*GeminiJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiJudge{
		client:         client,
		model:          cfg.Model,
		maxRetries:     judgeCfg.MaxRetries,
		baseDelay:      judgeCfg.BaseDelay,
		maxDelay:       judgeCfg.MaxDelay,
		requestTimeout: judgeCfg.RequestTimeout,
		logger:         logger,
	}, nil
}

func (s *GeminiJudge) Evaluate(ctx context.Context, transcript, candidateName string, rubric []config.RubricCriterion) (*Verdict, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is empty", ErrInvalidRequest)
	}

	prompt := buildPrompt(transcript, candidateName, rubric)

	timeoutCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		ResponseMIMEType: "application/json",
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.calculateBackoff(attempt)
			s.logger.Info("retrying judge call",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", s.maxRetries),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-timeoutCtx.Done():
				return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, timeoutCtx.Err())
			}
		}

		result, err := s.client.Models.GenerateContent(timeoutCtx, s.model, genai.Text(prompt), genConfig)
		if err == nil {
			text := result.Text()
			if strings.TrimSpace(text) == "" {
				return nil, fmt.Errorf("%w: provider returned no content", ErrMalformedVerdict)
			}
			return parseVerdict(text, rubric)
		}

		lastErr = err
		if !isRetryableError(err) {
			s.logger.Warn("non-retryable judge error", zap.Error(err))
			return nil, classifyProviderError(err)
		}
		s.logger.Warn("retryable judge error", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return nil, fmt.Errorf("%w: max retries (%d) exceeded: %v", ErrProviderUnavailable, s.maxRetries, lastErr)
}

func (s *GeminiJudge) calculateBackoff(attempt int) time.Duration {
	delay := s.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > s.maxDelay {
		delay = s.maxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay - delay/8 + jitter
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if apiErr, ok := asAPIError(err); ok {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "temporary failure") ||
		strings.Contains(errMsg, "EOF")
}

// classifyProviderError maps a non-retryable transport error onto the judge
// failure taxonomy.
func classifyProviderError(err error) error {
	if apiErr, ok := asAPIError(err); ok {
		switch apiErr.Code {
		case 400, 401, 403, 404:
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}
