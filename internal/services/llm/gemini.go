package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/faultlens/internal/common"
	"google.golang.org/genai"
)

// convertRequestToGemini builds one user content with inline image parts
// followed by the prompt text.
func convertRequestToGemini(request *ContentRequest) ([]*genai.Content, error) {
	if strings.TrimSpace(request.Text) == "" {
		return nil, fmt.Errorf("request text cannot be empty")
	}

	parts := make([]*genai.Part, 0, len(request.Images)*2+1)
	for _, image := range request.Images {
		if len(image.Data) == 0 {
			continue
		}
		if image.Label != "" {
			parts = append(parts, genai.NewPartFromText(image.Label+":"))
		}
		parts = append(parts, genai.NewPartFromBytes(image.Data, image.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(request.Text))

	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.geminiConfig.Model
	}

	contents, err := convertRequestToGemini(request)
	if err != nil {
		return nil, fmt.Errorf("failed to convert request: %w", err)
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.geminiConfig.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	timeout := common.ParseDurationOr(f.geminiConfig.Timeout, 2*time.Minute)

	var resp *genai.GenerateContentResponse
	err = f.withRetry(ctx, ProviderGemini, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var callErr error
		resp, callErr = client.Models.GenerateContent(callCtx, model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{
		Text:     responseText,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}
