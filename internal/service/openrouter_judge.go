package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadilmartias/interview-evaluator/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterJudge is the alternate provider, speaking the OpenAI-style chat
// completions API through OpenRouter. Transient failures are retried by the
// resty client; the verdict goes through the same schema validation as the
// Gemini path.
type OpenRouterJudge struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

func NewOpenRouterJudge(cfg *config.OpenRouterConfig, judgeCfg *config.JudgeConfig, logger *zap.Logger) (*OpenRouterJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set")
	}

	client := resty.New().
		SetTimeout(judgeCfg.RequestTimeout).
		SetRetryCount(judgeCfg.MaxRetries).
		SetRetryWaitTime(judgeCfg.BaseDelay).
		SetRetryMaxWaitTime(judgeCfg.MaxDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		}).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &OpenRouterJudge{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (s *OpenRouterJudge) Evaluate(ctx context.Context, transcript, candidateName string, rubric []config.RubricCriterion) (*Verdict, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is empty", ErrInvalidRequest)
	}

	prompt := buildPrompt(transcript, candidateName, rubric)

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model": s.model,
			"messages": []map[string]string{
				{"role": "system", "content": "You are an expert technical interviewer scoring interview transcripts."},
				{"role": "user", "content": prompt},
			},
		}).
		Post(openRouterEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode() == 429 || resp.StatusCode() >= 500:
		s.logger.Warn("openrouter exhausted retries", zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: provider returned status %d", ErrProviderUnavailable, resp.StatusCode())
	case resp.StatusCode() >= 400:
		return nil, fmt.Errorf("%w: provider returned status %d", ErrInvalidRequest, resp.StatusCode())
	}

	content := gjson.Get(resp.String(), "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: provider returned no content", ErrMalformedVerdict)
	}

	return parseVerdict(content, rubric)
}
