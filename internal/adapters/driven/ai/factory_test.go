package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/embedding/resilient"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

func ollamaServer(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantDims int
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name:     "openai without key is not configured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
		{
			name:     "unknown provider is not configured",
			settings: &domain.EmbeddingSettings{Provider: "unknown", APIKey: "k"},
			wantNil:  true,
		},
		{
			name: "ollama known model",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "mxbai-embed-large",
			},
			wantDims: 1024,
		},
		{
			name: "ollama unknown model uses default size",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "my-model",
			},
			wantDims: 768,
		},
		{
			name: "openai with dimension override",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOpenAI,
				APIKey:     "test-key",
				Model:      "text-embedding-3-small",
				Dimensions: 256,
			},
			wantDims: 256,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()

			assert.IsType(t, &resilient.EmbeddingService{}, svc)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestValidateEmbeddingConfig(t *testing.T) {
	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{}))

	ok := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: ollamaServer(t, http.StatusOK)}
	assert.NoError(t, ValidateEmbeddingConfig(ok))

	down := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: ollamaServer(t, http.StatusBadGateway)}
	assert.Error(t, ValidateEmbeddingConfig(down))
}

func TestEmbeddingValidator(t *testing.T) {
	var validator driven.AIConfigValidator = EmbeddingValidator(ValidateEmbeddingConfig)

	assert.NoError(t, validator.ValidateEmbedding(nil))

	down := &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: ollamaServer(t, http.StatusBadGateway)}
	assert.Error(t, validator.ValidateEmbedding(down))
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	ctx := context.Background()

	svc, err := CreateAndValidateEmbeddingService(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ollamaServer(t, http.StatusOK),
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.NoError(t, svc.Close())

	_, err = CreateAndValidateEmbeddingService(ctx, &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ollamaServer(t, http.StatusInternalServerError),
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
