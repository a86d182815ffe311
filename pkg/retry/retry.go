package retry

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = 1000 * time.Millisecond
	DefaultBackoffMultiplier = 2
	DefaultRateLimitDelay    = 30000 * time.Millisecond
)

type Config struct {
	OperationName     string
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier int
	RateLimitDelay    time.Duration
}

func DefaultConfig(operationName string) *Config {
	return &Config{
		OperationName:     operationName,
		MaxRetries:        DefaultMaxRetries,
		InitialDelay:      DefaultInitialDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
		RateLimitDelay:    DefaultRateLimitDelay,
	}
}

// WithOperationName clones the config under a new operation name, so one
// tuned config can cover several call sites.
func (c *Config) WithOperationName(name string) *Config {
	clone := *c
	clone.OperationName = name
	return &clone
}

// isRateLimitError matches provider throttling responses. Transports
// surface these verbatim ("429 Too Many Requests" status text or a JSON-RPC
// error mentioning 429), so substring matching is sufficient.
func isRateLimitError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}

// Do runs op up to 1+MaxRetries times. Rate-limit failures wait the flat
// RateLimitDelay; everything else waits InitialDelay*BackoffMultiplier^n
// where n is the number of prior attempts. Delays are deterministic, no
// jitter. Every error is retryable; the error from the final attempt is
// returned unchanged.
func Do[T any](l *zap.Logger, cfg *Config, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}

		var delay time.Duration
		if isRateLimitError(err) {
			delay = cfg.RateLimitDelay
		} else {
			delay = cfg.InitialDelay
			for i := 0; i < attempt; i++ {
				delay *= time.Duration(cfg.BackoffMultiplier)
			}
		}

		l.Sugar().Warnw("Operation failed, retrying",
			zap.String("operation", cfg.OperationName),
			zap.Int("attempt", attempt+1),
			zap.Int("maxAttempts", cfg.MaxRetries+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	l.Sugar().Errorw("Operation failed after all retries",
		zap.String("operation", cfg.OperationName),
		zap.Int("attempts", cfg.MaxRetries+1),
		zap.Error(lastErr),
	)
	return zero, lastErr
}

// DoVoid is Do for operations with no result value.
func DoVoid(l *zap.Logger, cfg *Config, op func() error) error {
	_, err := Do(l, cfg, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
