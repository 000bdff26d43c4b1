package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/faultlens/internal/common"
)

// claudeImageTypes lists the media types the Messages API accepts
var claudeImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// convertRequestToClaude builds a single user turn: each image preceded by
// its label, then the prompt text. Unsupported image types are skipped.
func convertRequestToClaude(request *ContentRequest) ([]anthropic.MessageParam, int, error) {
	if strings.TrimSpace(request.Text) == "" {
		return nil, 0, fmt.Errorf("request text cannot be empty")
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(request.Images)*2+1)
	skipped := 0
	for _, image := range request.Images {
		if !claudeImageTypes[image.MimeType] || len(image.Data) == 0 {
			skipped++
			continue
		}
		if image.Label != "" {
			blocks = append(blocks, anthropic.NewTextBlock(image.Label+":"))
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(image.MimeType, base64.StdEncoding.EncodeToString(image.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(request.Text))

	return []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)}, skipped, nil
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetClaudeClient()
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.claudeConfig.Model
	}

	messages, skipped, err := convertRequestToClaude(request)
	if err != nil {
		return nil, fmt.Errorf("failed to convert request: %w", err)
	}
	if skipped > 0 {
		f.logger.Debug().Int("skipped", skipped).Msg("Images with unsupported media types not sent to Claude")
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemInstruction},
		}
	}

	timeout := common.ParseDurationOr(f.claudeConfig.Timeout, 2*time.Minute)

	var resp *anthropic.Message
	err = f.withRetry(ctx, ProviderClaude, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var callErr error
		resp, callErr = client.Messages.New(callCtx, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}
