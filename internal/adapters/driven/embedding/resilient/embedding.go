// Package resilient decorates an embedding service with rate limiting,
// retries with exponential backoff and batch splitting.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultRequestsPerMinute = 300
	DefaultMaxRetries        = 3
	DefaultBatchSize         = 16
	DefaultInitialInterval   = 500 * time.Millisecond
	DefaultMaxInterval       = 10 * time.Second
)

// Config holds the decorator settings.
type Config struct {
	// RequestsPerMinute caps provider calls. Negative disables limiting.
	RequestsPerMinute int

	// MaxRetries bounds retries after the first attempt. Negative disables retries.
	MaxRetries int

	// BatchSize is the largest number of texts sent in one provider call.
	BatchSize int

	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
}

// EmbeddingService wraps another embedding service.
type EmbeddingService struct {
	next       driven.EmbeddingService
	limiter    *rate.Limiter
	maxRetries int
	batchSize  int
	initial    time.Duration
}

// New wraps next with the given settings; zero values take defaults.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}

	s := &EmbeddingService{
		next:       next,
		maxRetries: cfg.MaxRetries,
		batchSize:  cfg.BatchSize,
		initial:    cfg.InitialInterval,
	}
	if cfg.RequestsPerMinute > 0 {
		perSecond := float64(cfg.RequestsPerMinute) / 60
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, cfg.RequestsPerMinute/60))
	}
	return s
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := s.call(ctx, func() error {
		v, err := s.next.Embed(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// EmbedBatch splits texts into provider-sized batches and embeds each in turn.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		batch := texts[start:min(start+s.batchSize, len(texts))]
		err := s.call(ctx, func() error {
			vs, err := s.next.EmbedBatch(ctx, batch)
			if err != nil {
				return err
			}
			if len(vs) != len(batch) {
				return fmt.Errorf("provider returned %d embeddings for %d texts", len(vs), len(batch))
			}
			out = append(out, vs...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// call runs op under the rate limiter, retrying transient failures.
// Context errors are returned as they are; anything else that survives
// the retries wraps domain.ErrProviderUnavailable.
func (s *EmbeddingService) call(ctx context.Context, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.initial
	eb.MaxInterval = DefaultMaxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.maxRetries)), ctx)

	attempt := func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := op()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("embedding call failed, retrying in %s: %v", wait, err)
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service once, without retries.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close releases the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}
