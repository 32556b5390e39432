package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedRPM        = "embedding.requests_per_minute"
	keyEmbedMaxRetries = "embedding.max_retries"
	keySearchRRFK      = "search.rrf_k"
	keySearchLimit     = "search.default_limit"
	keySearchMultiple  = "search.candidate_multiplier"
	keyLexicalK1       = "lexical.k1"
	keyLexicalB        = "lexical.b"
	keyLexicalTitle    = "lexical.title_weight"
	keyLexicalBody     = "lexical.body_weight"
	keyChunkerMaxLevel = "chunker.max_level"
	keyTitlePlacehold  = "title.placeholder"
)

// Environment variables that override the stored embedding API key,
// checked in order.
var apiKeyEnvVars = []string{"SERCHA_KB_EMBEDDING_API_KEY", "OPENAI_API_KEY"}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
)

// settableKeys lists the keys accepted by Set and their value types.
var settableKeys = map[string]keyKind{
	keyEmbedProvider:   kindString,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyEmbedDims:       kindInt,
	keyEmbedBatchSize:  kindInt,
	keyEmbedRPM:        kindInt,
	keyEmbedMaxRetries: kindInt,
	keySearchRRFK:      kindInt,
	keySearchLimit:     kindInt,
	keySearchMultiple:  kindInt,
	keyLexicalK1:       kindFloat,
	keyLexicalB:        kindFloat,
	keyLexicalTitle:    kindFloat,
	keyLexicalBody:     kindFloat,
	keyChunkerMaxLevel: kindInt,
	keyTitlePlacehold:  kindString,
}

// SettingsService maps config.toml keys to domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// The aiValidator is optional.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings, filling unset values with
// defaults. An API key in the environment overrides the stored one.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			RRFK:                s.getInt(keySearchRRFK, d.Search.RRFK),
			DefaultLimit:        s.getInt(keySearchLimit, d.Search.DefaultLimit),
			CandidateMultiplier: s.getInt(keySearchMultiple, d.Search.CandidateMultiplier),
		},
		Lexical: domain.LexicalSettings{
			K1:          s.getFloat(keyLexicalK1, d.Lexical.K1),
			B:           s.getFloat(keyLexicalB, d.Lexical.B),
			TitleWeight: s.getFloat(keyLexicalTitle, d.Lexical.TitleWeight),
			BodyWeight:  s.getFloat(keyLexicalBody, d.Lexical.BodyWeight),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerMinute: s.getInt(keyEmbedRPM, d.Embedding.RequestsPerMinute),
			MaxRetries:        s.getInt(keyEmbedMaxRetries, d.Embedding.MaxRetries),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	for _, name := range apiKeyEnvVars {
		if v := s.getenv(name); v != "" {
			settings.Embedding.APIKey = v
			break
		}
	}

	return settings, nil
}

// Save persists application settings. An empty API key is not written so
// keys supplied through the environment never reach config.toml.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keySearchRRFK, settings.Search.RRFK},
		{keySearchLimit, settings.Search.DefaultLimit},
		{keySearchMultiple, settings.Search.CandidateMultiplier},
		{keyLexicalK1, settings.Lexical.K1},
		{keyLexicalB, settings.Lexical.B},
		{keyLexicalTitle, settings.Lexical.TitleWeight},
		{keyLexicalBody, settings.Lexical.BodyWeight},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedRPM, settings.Embedding.RequestsPerMinute},
		{keyEmbedMaxRetries, settings.Embedding.MaxRetries},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	if settings.Embedding.APIKey != "" && !s.apiKeyFromEnv() {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	return nil
}

// Set updates one setting by dotted key. Setting an empty value removes
// the key so the default applies again.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q (known: %s)",
			domain.ErrInvalidArgument, key, strings.Join(SettingKeys(), ", "))
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return s.configStore.Delete(key)
	}

	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidArgument, key)
		}
		return s.configStore.Set(key, n)
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidArgument, key)
		}
		if key == keyLexicalB && f > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrInvalidArgument, key)
		}
		return s.configStore.Set(key, f)
	default:
		if key == keyEmbedProvider && !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidArgument, value)
		}
		return s.configStore.Set(key, value)
	}
}

// SettingKeys returns the keys accepted by Set, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Keys lists the dotted keys accepted by Set.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidArgument, provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidArgument, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && !s.apiKeyFromEnv() {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidArgument, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey
	// A model switch must not keep a size override from the previous model.
	settings.Embedding.Dimensions = 0

	return s.Save(settings)
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Search.RRFK <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidArgument, keySearchRRFK)
	}
	if settings.Search.DefaultLimit <= 0 || settings.Search.DefaultLimit > domain.MaxResolveLimit {
		return fmt.Errorf("%w: %s must be between 1 and %d",
			domain.ErrInvalidArgument, keySearchLimit, domain.MaxResolveLimit)
	}
	if settings.Lexical.B < 0 || settings.Lexical.B > 1 {
		return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrInvalidArgument, keyLexicalB)
	}

	emb := settings.Embedding
	if emb.Provider == "" {
		return nil
	}
	if !emb.Provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidArgument, emb.Provider)
	}
	if emb.Provider.RequiresAPIKey() && emb.APIKey == "" {
		return fmt.Errorf("%w: embedding provider %s requires an API key", domain.ErrInvalidArgument, emb.Provider)
	}
	if emb.ResolvedDimensions() == 0 {
		return fmt.Errorf("%w: unknown dimensions for model %q, set %s",
			domain.ErrInvalidArgument, emb.Model, keyEmbedDims)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ProcessorConfigs returns per-processor pipeline configuration.
func (s *SettingsService) ProcessorConfigs() map[string]map[string]any {
	cfgs := make(map[string]map[string]any)
	if v, ok := s.configStore.Get(keyChunkerMaxLevel); ok {
		cfgs["chunker"] = map[string]any{"max_level": v}
	}
	if v := s.configStore.GetString(keyTitlePlacehold); v != "" {
		cfgs["title"] = map[string]any{"placeholder": v}
	}
	return cfgs
}

func (s *SettingsService) apiKeyFromEnv() bool {
	for _, name := range apiKeyEnvVars {
		if s.getenv(name) != "" {
			return true
		}
	}
	return false
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
