package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// scriptedService fails with the queued errors before succeeding.
type scriptedService struct {
	mu      sync.Mutex
	errs    []error
	calls   int
	batches [][]string
}

func (s *scriptedService) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedService) Embed(_ context.Context, text string) ([]float32, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return []float32{float32(len(text))}, nil
}

func (s *scriptedService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.batches = append(s.batches, texts)
	s.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (s *scriptedService) Dimensions() int { return 1 }
func (s *scriptedService) ModelName() string { return "scripted" }
func (s *scriptedService) Ping(_ context.Context) error { return nil }
func (s *scriptedService) Close() error { return nil }

func fastConfig() Config {
	return Config{RequestsPerMinute: -1, MaxRetries: 3, BatchSize: 2, InitialInterval: time.Millisecond}
}

var errTransient = errors.New("connection reset")

func TestNew_Defaults(t *testing.T) {
	s := New(&scriptedService{}, Config{})

	assert.Equal(t, DefaultMaxRetries, s.maxRetries)
	assert.Equal(t, DefaultBatchSize, s.batchSize)
	assert.Equal(t, DefaultInitialInterval, s.initial)
	require.NotNil(t, s.limiter)
	assert.InDelta(t, 5.0, float64(s.limiter.Limit()), 1e-9)

	s = New(&scriptedService{}, Config{RequestsPerMinute: -1, MaxRetries: -1})
	assert.Nil(t, s.limiter)
	assert.Zero(t, s.maxRetries)
}

func TestEmbed_RetriesTransientErrors(t *testing.T) {
	next := &scriptedService{errs: []error{errTransient, errTransient}}
	s := New(next, fastConfig())

	v, err := s.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, v)
	assert.Equal(t, 3, next.calls)
}

func TestEmbed_ExhaustedRetries(t *testing.T) {
	next := &scriptedService{errs: []error{errTransient, errTransient, errTransient, errTransient, errTransient}}
	s := New(next, fastConfig())

	_, err := s.Embed(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, next.calls, "first attempt plus three retries")
}

func TestEmbed_PermanentErrorNotRetried(t *testing.T) {
	next := &scriptedService{errs: []error{backoff.Permanent(errors.New("401 unauthorized"))}}
	s := New(next, fastConfig())

	_, err := s.Embed(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 1, next.calls)
}

func TestEmbed_ContextCancelledNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &scriptedService{errs: []error{context.Canceled}}
	cancel()
	s := New(next, fastConfig())

	_, err := s.Embed(ctx, "abc")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.LessOrEqual(t, next.calls, 1)
}

func TestEmbedBatch_SplitsBatches(t *testing.T) {
	next := &scriptedService{}
	s := New(next, fastConfig())

	got, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, got)
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, next.batches)
}

func TestEmbedBatch_RetriesOnlyFailedBatch(t *testing.T) {
	next := &scriptedService{}
	s := New(next, fastConfig())

	got, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	next.errs = []error{errTransient}
	got, err = s.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, next.calls)
}

func TestEmbedBatch_Empty(t *testing.T) {
	next := &scriptedService{}
	s := New(next, fastConfig())

	got, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, next.calls)
}

func TestPassThrough(t *testing.T) {
	s := New(&scriptedService{}, fastConfig())

	assert.Equal(t, 1, s.Dimensions())
	assert.Equal(t, "scripted", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
