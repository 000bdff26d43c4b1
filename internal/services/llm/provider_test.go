package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
)

func newTestFactory(mutate func(cfg *common.Config)) *ProviderFactory {
	cfg := common.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	factory := newTestFactory(nil)

	tests := []struct {
		model    string
		expected ProviderType
	}{
		{"", ProviderClaude},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-opus", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"offline", ProviderOffline},
		{"something-else", ProviderClaude},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, factory.DetectProvider(tt.model))
		})
	}
}

func TestDetectProvider_DisabledForcesOffline(t *testing.T) {
	factory := newTestFactory(func(cfg *common.Config) { cfg.LLM.Enabled = false })

	assert.Equal(t, ProviderOffline, factory.DetectProvider("claude-sonnet-4-20250514"))
	assert.Equal(t, interfaces.LLMModeOffline, factory.GetMode())
}

func TestNormalizeModel(t *testing.T) {
	factory := newTestFactory(nil)

	assert.Equal(t, "claude-sonnet-4-20250514", factory.NormalizeModel("claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("Google/gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("gemini-2.5-flash"))
	assert.Equal(t, "", factory.NormalizeModel("offline"))
}

func TestAnalyze_Offline(t *testing.T) {
	factory := newTestFactory(func(cfg *common.Config) { cfg.LLM.DefaultProvider = common.LLMProviderOffline })

	prompt := &models.Prompt{
		System: "system",
		User: "## Test\nTestCheckout\n\n## Error\n```\nelement #confirm not visible\n```\n" +
			"\n## Network\n2 requests, 1 failed or errored\n- POST https://shop.test/api/pay -> 502\n- GET https://shop.test/ -> 200\n",
		Images: []models.ImageAttachment{{MimeType: "image/png", Data: []byte("png")}},
	}

	result, err := factory.Analyze(context.Background(), prompt)
	require.NoError(t, err)

	assert.Equal(t, string(ProviderOffline), result.Provider)
	assert.Equal(t, offlineModelName, result.Model)
	assert.Contains(t, result.Text, "The test failed with: element #confirm not visible")
	assert.Contains(t, result.Text, "POST https://shop.test/api/pay -> 502")
	assert.Contains(t, result.Text, "application bug")
	assert.Contains(t, result.Text, "1 image(s)")
}

func TestAnalyze_MissingAPIKey(t *testing.T) {
	factory := newTestFactory(func(cfg *common.Config) {
		cfg.Claude.APIKey = ""
		cfg.LLM.DefaultProvider = common.LLMProviderClaude
	})

	_, err := factory.Analyze(context.Background(), &models.Prompt{User: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Anthropic API key")
}

func TestConvertRequestToClaude(t *testing.T) {
	request := &ContentRequest{
		Text: "analyse this",
		Images: []models.ImageAttachment{
			{Label: "Screenshot", MimeType: "image/png", Data: []byte("png")},
			{Label: "Frame", MimeType: "image/bmp", Data: []byte("bmp")},
		},
	}

	messages, skipped, err := convertRequestToClaude(request)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, 1, skipped)
	// label, image, prompt text
	assert.Len(t, messages[0].Content, 3)

	_, _, err = convertRequestToClaude(&ContentRequest{Text: "  "})
	assert.Error(t, err)
}

func TestConvertRequestToGemini(t *testing.T) {
	request := &ContentRequest{
		Text:   "analyse this",
		Images: []models.ImageAttachment{{Label: "Frame", MimeType: "image/jpeg", Data: []byte("jpg")}},
	}

	contents, err := convertRequestToGemini(request)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 3)
	assert.Equal(t, "image/jpeg", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, "analyse this", contents[0].Parts[2].Text)
}

func TestRetryConfig_CalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	assert.Equal(t, 2*time.Second, config.CalculateBackoff(0, errors.New("connection reset")))
	assert.Equal(t, 4*time.Second, config.CalculateBackoff(1, errors.New("connection reset")))

	rateLimited := errors.New("Error 429, Message: quota exceeded. Please retry in 3.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 5500*time.Millisecond, config.CalculateBackoff(0, rateLimited))
	assert.Equal(t, DefaultMaxBackoff, config.CalculateBackoff(10, rateLimited))

	assert.Equal(t, DefaultInitialBackoff, config.CalculateBackoff(0, errors.New("529 overloaded")))
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	factory := newTestFactory(nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := factory.withRetry(ctx, ProviderClaude, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("Error 429: too many requests")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectErr     bool
	}{
		{"success first time", nil, 1, false},
		{"bad request is not retried", []error{errors.New("400 Bad Request: invalid model")}, 1, true},
		{"unauthorized is not retried", []error{errors.New("401 Unauthorized")}, 1, true},
		{"rate limit then success", []error{errors.New("429 Too Many Requests")}, 2, false},
		{"overloaded twice then success", []error{errors.New("529 overloaded"), errors.New("529 overloaded")}, 3, false},
		{"rate limit exhausts retries", []error{
			errors.New("429"), errors.New("429"), errors.New("429"), errors.New("429"),
		}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newTestFactory(nil)
			factory.retry = &RetryConfig{
				MaxRetries:        2,
				InitialBackoff:    time.Millisecond,
				MaxBackoff:        5 * time.Millisecond,
				BackoffMultiplier: 1,
			}
			factory.limiters = nil

			calls := 0
			start := time.Now()
			err := factory.withRetry(context.Background(), ProviderGemini, func(ctx context.Context) error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			assert.Less(t, time.Since(start), 5*time.Second)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
