package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// newTestSettings creates a settings service with an empty environment.
func newTestSettings(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)
	service.getenv = func(k string) string { return env[k] }
	return service, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Search, settings.Search)
	assert.Equal(t, defaults.Lexical, settings.Lexical)
	assert.Empty(t, settings.Embedding.Provider)
	assert.False(t, settings.Embedding.IsConfigured())
	assert.Equal(t, 16, settings.Embedding.BatchSize)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("embedding.api_key", "sk-stored"))
	require.NoError(t, store.Set("search.rrf_k", 30))
	require.NoError(t, store.Set("lexical.title_weight", 3.5))
	require.NoError(t, store.Set("lexical.b", 0.0))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model, "default model for provider")
	assert.Equal(t, "sk-stored", settings.Embedding.APIKey)
	assert.Equal(t, 30, settings.Search.RRFK)
	assert.Equal(t, 3.5, settings.Lexical.TitleWeight)
	assert.Equal(t, 0.0, settings.Lexical.B, "an explicit zero is kept")
}

func TestSettingsService_Get_InvalidProviderFallsBack(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, store.Set("embedding.provider", "anthropic"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Empty(t, settings.Embedding.Provider)
}

func TestSettingsService_Get_EnvOverridesAPIKey(t *testing.T) {
	service, store := newTestSettings(map[string]string{
		"OPENAI_API_KEY":              "sk-openai",
		"SERCHA_KB_EMBEDDING_API_KEY": "sk-kb",
	})
	require.NoError(t, store.Set("embedding.api_key", "sk-stored"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-kb", settings.Embedding.APIKey)
}

func TestSettingsService_Save_DoesNotPersistEnvKey(t *testing.T) {
	service, store := newTestSettings(map[string]string{"OPENAI_API_KEY": "sk-env"})

	settings, err := service.Get()
	require.NoError(t, err)
	settings.Embedding.Provider = domain.AIProviderOpenAI
	require.NoError(t, service.Save(settings))

	assert.Empty(t, store.GetString("embedding.api_key"))
	assert.Equal(t, "openai", store.GetString("embedding.provider"))
}

func TestSettingsService_Set(t *testing.T) {
	service, store := newTestSettings(nil)

	require.NoError(t, service.Set("search.default_limit", "8"))
	require.NoError(t, service.Set("lexical.k1", "1.5"))
	require.NoError(t, service.Set("embedding.provider", "ollama"))

	assert.Equal(t, 8, store.GetInt("search.default_limit"))
	assert.Equal(t, 1.5, store.GetFloat("lexical.k1"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))

	require.NoError(t, service.Set("search.default_limit", ""))
	_, exists := store.Get("search.default_limit")
	assert.False(t, exists, "empty value removes the key")
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	service, _ := newTestSettings(nil)

	tests := []struct {
		key, value string
	}{
		{"search.mode", "hybrid"},
		{"search.rrf_k", "sixty"},
		{"search.rrf_k", "-1"},
		{"lexical.b", "1.5"},
		{"lexical.k1", "x"},
		{"embedding.provider", "anthropic"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			assert.ErrorIs(t, service.Set(tt.key, tt.value), domain.ErrInvalidArgument)
		})
	}
}

func TestSettingKeys_Sorted(t *testing.T) {
	keys := SettingKeys()

	assert.Contains(t, keys, "embedding.provider")
	assert.IsNonDecreasing(t, keys)
}

func TestSettingsService_SetEmbeddingProvider_Ollama(t *testing.T) {
	service, _ := newTestSettings(nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, "ollama:nomic-embed-text:768", settings.Embedding.ProviderID())
}

func TestSettingsService_SetEmbeddingProvider_OpenAI(t *testing.T) {
	service, store := newTestSettings(nil)
	require.NoError(t, store.Set("embedding.base_url", "http://localhost:11434"))
	require.NoError(t, store.Set("embedding.dimensions", 256))

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk-test"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, 3072, settings.Embedding.ResolvedDimensions(), "old dimension override cleared")
}

func TestSettingsService_SetEmbeddingProvider_RequiresAPIKey(t *testing.T) {
	service, _ := newTestSettings(nil)

	err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	withEnv, _ := newTestSettings(map[string]string{"OPENAI_API_KEY": "sk-env"})
	assert.NoError(t, withEnv.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetEmbeddingProvider_Invalid(t *testing.T) {
	service, _ := newTestSettings(nil)

	err := service.SetEmbeddingProvider(domain.AIProvider("anthropic"), "", "key")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSettingsService_Validate(t *testing.T) {
	service, store := newTestSettings(nil)
	assert.NoError(t, service.Validate(), "defaults are valid")

	require.NoError(t, store.Set("embedding.provider", "openai"))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidArgument, "missing api key")

	require.NoError(t, store.Set("embedding.api_key", "sk"))
	assert.NoError(t, service.Validate())

	require.NoError(t, store.Set("embedding.model", "custom-model"))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidArgument, "unknown dimensions")

	require.NoError(t, store.Set("embedding.dimensions", 512))
	assert.NoError(t, service.Validate())

	require.NoError(t, store.Set("search.default_limit", 99))
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidArgument)
}

func TestSettingsService_ProcessorConfigs(t *testing.T) {
	service, store := newTestSettings(nil)
	assert.Empty(t, service.ProcessorConfigs())

	require.NoError(t, store.Set("chunker.max_level", 3))
	require.NoError(t, store.Set("title.placeholder", "概述"))

	cfgs := service.ProcessorConfigs()
	assert.Equal(t, 3, cfgs["chunker"]["max_level"])
	assert.Equal(t, "概述", cfgs["title"]["placeholder"])
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newTestSettings(nil)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

type mockAIConfigValidator struct {
	embedErr error
	got      *domain.EmbeddingSettings
}

func (m *mockAIConfigValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.got = cfg
	return m.embedErr
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	service, _ := newTestSettings(nil)
	assert.NoError(t, service.ValidateEmbeddingConfig(), "nil validator skips")

	validator := &mockAIConfigValidator{embedErr: assert.AnError}
	service.aiValidator = validator
	assert.ErrorIs(t, service.ValidateEmbeddingConfig(), assert.AnError)
	require.NotNil(t, validator.got)
}
