package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = common.LLMProviderGemini
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = common.LLMProviderClaude
	// ProviderOffline answers locally without a network call
	ProviderOffline ProviderType = common.LLMProviderOffline
)

// ContentRequest represents a provider-agnostic multimodal generation request
type ContentRequest struct {
	SystemInstruction string
	Text              string
	Images            []models.ImageAttachment
	Model             string
	Temperature       float32
	MaxTokens         int
}

// ContentResponse represents a provider-agnostic generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// ProviderFactory routes requests to Claude, Gemini or the offline analyzer,
// creating SDK clients lazily and pacing calls per provider.
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger
	retry        *RetryConfig

	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient *anthropic.Client
	limiters     map[ProviderType]*rate.Limiter
}

var _ interfaces.FailureAnalyzer = (*ProviderFactory)(nil)

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		logger:       logger,
		retry:        NewDefaultRetryConfig(),
		limiters: map[ProviderType]*rate.Limiter{
			ProviderClaude: newLimiter(claudeConfig.RateLimit),
			ProviderGemini: newLimiter(geminiConfig.RateLimit),
		},
	}
}

func newLimiter(minInterval string) *rate.Limiter {
	interval := common.ParseDurationOr(minInterval, 0)
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "gemini/gemini-2.5-flash" -> Gemini (with prefix)
// - "offline" -> Offline
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if !f.llmConfig.Enabled {
		return ProviderOffline
	}
	if model == "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}

	model = strings.ToLower(model)

	switch {
	case model == "offline" || strings.HasPrefix(model, "offline/"):
		return ProviderOffline
	case strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/"):
		return ProviderGemini
	case strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	return ProviderType(f.llmConfig.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/", "offline/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	if strings.EqualFold(model, "offline") {
		return ""
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.claudeConfig.Model
	case ProviderGemini:
		return f.geminiConfig.Model
	default:
		return offlineModelName
	}
}

// GetMode reports whether calls leave the machine
func (f *ProviderFactory) GetMode() interfaces.LLMMode {
	if f.DetectProvider(f.llmConfig.Model) == ProviderOffline {
		return interfaces.LLMModeOffline
	}
	return interfaces.LLMModeCloud
}

// GetGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey("gemini api_key (GEMINI_API_KEY)", f.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient() (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey("claude api_key (ANTHROPIC_API_KEY)", f.claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	f.claudeClient = &client
	return f.claudeClient, nil
}

// Analyze implements interfaces.FailureAnalyzer
func (f *ProviderFactory) Analyze(ctx context.Context, prompt *models.Prompt) (*interfaces.AnalysisResult, error) {
	start := time.Now()

	resp, err := f.GenerateContent(ctx, &ContentRequest{
		SystemInstruction: prompt.System,
		Text:              prompt.User,
		Images:            prompt.Images,
		Model:             f.llmConfig.Model,
	})
	if err != nil {
		return nil, err
	}

	return &interfaces.AnalysisResult{
		Text:     resp.Text,
		Provider: string(resp.Provider),
		Model:    resp.Model,
		Elapsed:  time.Since(start),
	}, nil
}

// GenerateContent generates content using the appropriate provider based on model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("text_length", len(request.Text)).
		Int("images", len(request.Images)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	case ProviderGemini:
		return f.generateWithGemini(ctx, request, model)
	case ProviderOffline:
		return generateOffline(request), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// withRetry paces call and retries it only on rate-limit or overload errors.
// Any other error, or a done context, ends the loop immediately.
func (f *ProviderFactory) withRetry(ctx context.Context, provider ProviderType, call func(ctx context.Context) error) error {
	limiter := f.limiters[provider]

	var apiErr error
	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		apiErr = call(ctx)
		if apiErr == nil {
			return nil
		}
		if !IsRateLimitError(apiErr) {
			return fmt.Errorf("%s API call failed: %w", provider, apiErr)
		}
		if ctx.Err() != nil || attempt == f.retry.MaxRetries {
			break
		}

		backoff := f.retry.CalculateBackoff(attempt, apiErr)
		f.logger.Warn().
			Str("provider", string(provider)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying provider API call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s API call failed after %d retries: %w", provider, f.retry.MaxRetries, apiErr)
}

// Close releases provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}
