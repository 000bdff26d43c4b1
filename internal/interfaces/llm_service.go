package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/faultlens/internal/models"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates the service answers locally without network calls
	LLMModeOffline LLMMode = "offline"
)

// AnalysisResult is the model's answer for one failure prompt
type AnalysisResult struct {
	Text     string
	Provider string
	Model    string
	Elapsed  time.Duration
}

// FailureAnalyzer sends an assembled failure prompt (text plus images) to a
// multimodal language model and returns its answer.
type FailureAnalyzer interface {
	// Analyze submits the prompt. Implementations apply their own timeout,
	// rate limiting and retries.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - prompt: System instruction, user text and image attachments
	//
	// Returns:
	//   - *AnalysisResult: Model answer and provider/model identification
	//   - error: Error if no answer could be produced
	Analyze(ctx context.Context, prompt *models.Prompt) (*AnalysisResult, error)

	// GetMode returns whether the analyzer calls a cloud API
	GetMode() LLMMode

	// Close releases provider clients
	Close() error
}
