package tests

import (
	"time"

	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/retry"
)

func GetConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Chain = config.Chain_ArbitrumOne
	return cfg
}

func GetLogger() *zap.Logger {
	l, _ := zap.NewDevelopment()
	return l
}

// GetRetryConfig keeps component tests fast: real backoff shape,
// millisecond delays.
func GetRetryConfig() *retry.Config {
	return &retry.Config{
		OperationName:     "test",
		MaxRetries:        2,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2,
		RateLimitDelay:    5 * time.Millisecond,
	}
}
