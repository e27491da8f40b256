package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// JudgeConfig controls the provider selection and the retry/timeout policy
// applied to every judge invocation.
type JudgeConfig struct {
	Provider       string // "gemini" or "openrouter"
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

var (
	judgeConfig *JudgeConfig
	judgeOnce   sync.Once
)

func LoadJudgeConfig() *JudgeConfig {
	judgeOnce.Do(func() {
		provider := os.Getenv("JUDGE_PROVIDER")
		if provider == "" {
			provider = "gemini"
		}
		judgeConfig = &JudgeConfig{
			Provider:       provider,
			MaxRetries:     envInt("JUDGE_MAX_RETRIES", 3),
			BaseDelay:      envDuration("JUDGE_BASE_DELAY", time.Second),
			MaxDelay:       envDuration("JUDGE_MAX_DELAY", 30*time.Second),
			RequestTimeout: envDuration("JUDGE_REQUEST_TIMEOUT", 90*time.Second),
		}
	})
	return judgeConfig
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
