package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/ternarybob/faultlens/internal/services/prompt"
)

// Bundle file names written into each record directory
const (
	AnalysisFile = "analysis.md"
	ContextFile  = "context.json"
	PromptFile   = "prompt.md"
	DOMFile      = "dom.html"
	NetworkFile  = "network.json"
	ConsoleFile  = "console.json"
	FramesDir    = "frames"
)

// Service turns a failed test into an enrichment bundle and history record
type Service struct {
	extractor interfaces.FrameExtractor
	builder   *prompt.Builder
	analyzer  interfaces.FailureAnalyzer
	storage   interfaces.EnrichmentStorage
	frames    common.FramesConfig
	outputDir string
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewService creates the orchestrator. analyzer may be nil to skip model analysis.
func NewService(
	extractor interfaces.FrameExtractor,
	builder *prompt.Builder,
	analyzer interfaces.FailureAnalyzer,
	storage interfaces.EnrichmentStorage,
	frames common.FramesConfig,
	outputDir string,
	logger arbor.ILogger,
) *Service {
	return &Service{
		extractor: extractor,
		builder:   builder,
		analyzer:  analyzer,
		storage:   storage,
		frames:    frames,
		outputDir: outputDir,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Enrich extracts frames, asks the model for an analysis and writes the bundle.
// Only invalid input or an unwritable bundle directory is an error; frame and
// model problems are recorded on the returned record.
func (s *Service) Enrich(ctx context.Context, failure *models.FailureContext, artifacts *models.PageArtifacts) (*models.EnrichmentRecord, error) {
	start := time.Now()

	if failure == nil {
		return nil, fmt.Errorf("failure context is required")
	}
	if err := s.validate.Struct(failure); err != nil {
		return nil, fmt.Errorf("invalid failure context: %w", err)
	}
	if artifacts == nil {
		artifacts = &models.PageArtifacts{}
	}

	record := &models.EnrichmentRecord{
		ID:           common.NewEnrichmentID(),
		TestName:     failure.TestName,
		TestFile:     failure.TestFile,
		ErrorMessage: failure.ErrorMessage,
		PageURL:      artifacts.URL,
		NetworkCount: len(artifacts.Network),
		CreatedAt:    start,
	}
	record.BundleDir = filepath.Join(s.outputDir, record.ID)

	if err := os.MkdirAll(record.BundleDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bundle directory: %w", err)
	}

	s.logger.Info().
		Str("id", record.ID).
		Str("test", failure.TestName).
		Msg("Enriching test failure")

	videoFrames := s.extractFrames(ctx, failure, record)

	assembled := s.builder.Build(failure, artifacts, videoFrames)
	record.PromptChars = len(assembled.User)
	record.ImageCount = len(assembled.Images)

	if s.analyzer != nil {
		result, err := s.analyzer.Analyze(ctx, assembled)
		if err != nil {
			s.logger.Warn().Err(err).Str("id", record.ID).Msg("Failure analysis unavailable")
			record.AnalysisError = err.Error()
		} else {
			record.Analysis = result.Text
			record.Provider = result.Provider
			record.Model = result.Model
		}
	}

	record.ElapsedMillis = time.Since(start).Milliseconds()

	if err := s.writeBundle(record, failure, artifacts, assembled); err != nil {
		return nil, err
	}

	if err := s.storage.Save(ctx, record); err != nil {
		// The bundle on disk is the primary output; history is a convenience
		s.logger.Warn().Err(err).Str("id", record.ID).Msg("Failed to save enrichment history")
	}

	s.logger.Info().
		Str("id", record.ID).
		Str("bundle", record.BundleDir).
		Int("frames", len(record.Frames)).
		Bool("analysed", record.Analysis != "").
		Int64("elapsed_ms", record.ElapsedMillis).
		Msg("Enrichment complete")

	return record, nil
}

// extractFrames runs the frame pipeline into the bundle's frames directory.
// Frames on the record drop their base64 payload; the files stay on disk.
func (s *Service) extractFrames(ctx context.Context, failure *models.FailureContext, record *models.EnrichmentRecord) []models.VideoFrame {
	if failure.VideoPath == "" || s.extractor == nil {
		return nil
	}

	result := s.extractor.ExtractKeyFrames(ctx, models.ExtractionRequest{
		VideoPath:       failure.VideoPath,
		MaxFrames:       s.frames.MaxFrames,
		Interval:        s.frames.Interval,
		OutputDirectory: filepath.Join(record.BundleDir, FramesDir),
		Format:          s.frames.Format,
	})

	record.FrameReason = result.Reason
	record.Frames = make([]models.VideoFrame, len(result.Frames))
	for i, frame := range result.Frames {
		frame.EncodedImage = ""
		record.Frames[i] = frame
	}

	return result.Frames
}

func (s *Service) writeBundle(record *models.EnrichmentRecord, failure *models.FailureContext, artifacts *models.PageArtifacts, assembled *models.Prompt) error {
	write := func(name string, data []byte) error {
		if err := os.WriteFile(filepath.Join(record.BundleDir, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	}
	writeJSON := func(name string, v interface{}) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		return write(name, data)
	}

	if err := write(AnalysisFile, []byte(renderAnalysis(record))); err != nil {
		return err
	}
	if err := write(PromptFile, []byte(assembled.User)); err != nil {
		return err
	}

	bundleContext := struct {
		Record    *models.EnrichmentRecord `json:"record"`
		Failure   *models.FailureContext   `json:"failure"`
		Artifacts *models.PageArtifacts    `json:"artifacts"`
	}{record, failure, artifacts}
	if err := writeJSON(ContextFile, bundleContext); err != nil {
		return err
	}

	if artifacts.DOM != "" {
		if err := write(DOMFile, []byte(artifacts.DOM)); err != nil {
			return err
		}
	}
	if len(artifacts.Screenshot) > 0 {
		if err := write(ScreenshotFileName(artifacts.Screenshot), artifacts.Screenshot); err != nil {
			return err
		}
	}
	if len(artifacts.Network) > 0 {
		if err := writeJSON(NetworkFile, artifacts.Network); err != nil {
			return err
		}
	}
	if len(artifacts.Console) > 0 {
		if err := writeJSON(ConsoleFile, artifacts.Console); err != nil {
			return err
		}
	}
	return nil
}

// ScreenshotFileName picks the extension from the image bytes
func ScreenshotFileName(data []byte) string {
	if http.DetectContentType(data) == "image/jpeg" {
		return "screenshot.jpg"
	}
	return "screenshot.png"
}

func renderAnalysis(record *models.EnrichmentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", record.TestName)
	fmt.Fprintf(&b, "- Record: `%s`\n", record.ID)
	if record.PageURL != "" {
		fmt.Fprintf(&b, "- Page: %s\n", record.PageURL)
	}
	if record.Provider != "" {
		fmt.Fprintf(&b, "- Analysed by: %s (%s)\n", record.Provider, record.Model)
	}
	fmt.Fprintf(&b, "- Frames: %d", len(record.Frames))
	if record.FrameReason != models.AbsenceNone {
		fmt.Fprintf(&b, " (%s)", record.FrameReason)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Error\n\n```\n%s\n```\n\n", strings.TrimSpace(record.ErrorMessage))

	switch {
	case record.Analysis != "":
		b.WriteString(strings.TrimSpace(record.Analysis))
		b.WriteString("\n")
	case record.AnalysisError != "":
		fmt.Fprintf(&b, "_Analysis unavailable: %s_\n", record.AnalysisError)
	default:
		b.WriteString("_Analysis disabled._\n")
	}

	return b.String()
}
