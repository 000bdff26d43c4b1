package prompt

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/ternarybob/faultlens/internal/services/frames"
)

// SystemInstruction frames the model as a test-failure analyst
const SystemInstruction = `You are a senior QA engineer diagnosing a failed end-to-end browser test.
You are given the test failure, the page state at the moment of failure, captured network and console
activity, and still frames from the test video in chronological order.

Respond in markdown with these sections:
## Summary - one or two sentences on what went wrong.
## Likely cause - the most probable root cause, citing the evidence you used.
## Category - one of: application bug, test bug, flaky timing, environment, data.
## Suggested fix - concrete next steps for the developer.

Frames marked as placeholders contain no real video content; do not draw conclusions from them.`

// Builder assembles the model prompt for one failed test
type Builder struct {
	config    common.PromptConfig
	condenser *DOMCondenser
	logger    arbor.ILogger
}

// NewBuilder creates a prompt builder
func NewBuilder(config common.PromptConfig, logger arbor.ILogger) *Builder {
	return &Builder{
		config:    config,
		condenser: NewDOMCondenser(config.MaxDOMChars, logger),
		logger:    logger,
	}
}

// Build renders the failure context, page artifacts and frames into a prompt.
// artifacts may be nil when the failure came from a bundle without page data.
func (b *Builder) Build(failure *models.FailureContext, artifacts *models.PageArtifacts, videoFrames []models.VideoFrame) *models.Prompt {
	if artifacts == nil {
		artifacts = &models.PageArtifacts{}
	}

	var text strings.Builder

	fmt.Fprintf(&text, "## Test\n%s\n", failure.TestName)
	if failure.TestFile != "" {
		location := filepath.Base(failure.TestFile)
		if failure.TestLine > 0 {
			location = fmt.Sprintf("%s:%d", location, failure.TestLine)
		}
		fmt.Fprintf(&text, "Location: %s\n", location)
	}
	if failure.Duration > 0 {
		fmt.Fprintf(&text, "Ran for: %s\n", failure.Duration)
	}
	if len(failure.Labels) > 0 {
		keys := make([]string, 0, len(failure.Labels))
		for k := range failure.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&text, "%s: %s\n", k, failure.Labels[k])
		}
	}

	fmt.Fprintf(&text, "\n## Error\n```\n%s\n```\n", strings.TrimSpace(failure.ErrorMessage))

	if failure.StackTrace != "" {
		fmt.Fprintf(&text, "\n## Stack trace\n```\n%s\n```\n", strings.TrimSpace(failure.StackTrace))
	}

	if snippet := sourceSnippet(failure.TestFile, failure.TestLine, b.config.SourceContextLines); snippet != "" {
		fmt.Fprintf(&text, "\n## Test source\n```\n%s```\n", snippet)
	}

	if artifacts.URL != "" || artifacts.Title != "" {
		fmt.Fprintf(&text, "\n## Page\nURL: %s\nTitle: %s\n", artifacts.URL, artifacts.Title)
	}

	if console := b.consoleSection(artifacts.Console); console != "" {
		fmt.Fprintf(&text, "\n## Console\n%s", console)
	}

	if network := b.networkSection(artifacts.Network); network != "" {
		fmt.Fprintf(&text, "\n## Network\n%s", network)
	}

	if dom := b.condenser.Condense(artifacts.DOM, artifacts.URL); dom != "" {
		fmt.Fprintf(&text, "\n## DOM at failure\n%s\n", dom)
	}

	if len(artifacts.Errors) > 0 {
		fmt.Fprintf(&text, "\n## Capture problems\n- %s\n", strings.Join(artifacts.Errors, "\n- "))
	}

	if len(videoFrames) > 0 {
		text.WriteString("\n## Video frames\n")
		for i, frame := range videoFrames {
			note := ""
			if frame.IsPlaceholder {
				note = " (placeholder, no video content)"
			}
			fmt.Fprintf(&text, "%d. %s%s\n", i+1, frames.FormatTimestamp(frame.Position), note)
		}
	}

	prompt := &models.Prompt{
		System: SystemInstruction,
		User:   text.String(),
		Images: b.selectImages(artifacts.Screenshot, videoFrames),
	}

	b.logger.Debug().
		Str("test", failure.TestName).
		Int("prompt_chars", len(prompt.User)).
		Int("images", len(prompt.Images)).
		Msg("Prompt assembled")

	return prompt
}

func (b *Builder) consoleSection(entries []models.ConsoleEntry) string {
	if len(entries) == 0 || b.config.MaxConsoleEntries <= 0 {
		return ""
	}

	// Most recent entries are closest to the failure
	omitted := 0
	if len(entries) > b.config.MaxConsoleEntries {
		omitted = len(entries) - b.config.MaxConsoleEntries
		entries = entries[omitted:]
	}

	var out strings.Builder
	if omitted > 0 {
		fmt.Fprintf(&out, "(%d earlier entries omitted)\n", omitted)
	}
	for _, entry := range entries {
		fmt.Fprintf(&out, "- [%s] %s\n", entry.Level, strings.TrimSpace(entry.Text))
	}
	return out.String()
}

func (b *Builder) networkSection(requests []models.NetworkRequest) string {
	if len(requests) == 0 || b.config.MaxNetworkEntries <= 0 {
		return ""
	}

	ordered := append([]models.NetworkRequest(nil), requests...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return isProblem(ordered[i]) && !isProblem(ordered[j])
	})

	problems := 0
	for _, req := range ordered {
		if isProblem(req) {
			problems++
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%d requests, %d failed or errored\n", len(requests), problems)
	for i, req := range ordered {
		if i >= b.config.MaxNetworkEntries {
			fmt.Fprintf(&out, "(%d more requests omitted)\n", len(ordered)-i)
			break
		}
		status := "pending"
		switch {
		case req.Failed:
			status = "FAILED " + req.ErrorText
		case req.Status > 0:
			status = fmt.Sprintf("%d", req.Status)
		}
		fmt.Fprintf(&out, "- %s %s -> %s\n", req.Method, req.URL, strings.TrimSpace(status))
	}
	return out.String()
}

func isProblem(req models.NetworkRequest) bool {
	return req.Failed || req.Status >= 400
}

// selectImages returns the screenshot followed by real frames, skipping a
// frame when it is perceptually close to the previously kept one.
func (b *Builder) selectImages(screenshot []byte, videoFrames []models.VideoFrame) []models.ImageAttachment {
	images := []models.ImageAttachment{}
	limit := b.config.MaxImages

	if len(screenshot) > 0 && limit > 0 {
		images = append(images, models.ImageAttachment{
			Label:    "Screenshot at failure",
			MimeType: http.DetectContentType(screenshot),
			Data:     screenshot,
		})
	}

	var lastHash uint64
	for _, frame := range videoFrames {
		if len(images) >= limit {
			break
		}
		if frame.IsPlaceholder || frame.EncodedImage == "" {
			continue
		}
		if b.config.SimilarFrameDistance > 0 && lastHash != 0 && frame.PerceptualHash != 0 &&
			frames.HashDistance(lastHash, frame.PerceptualHash) <= b.config.SimilarFrameDistance {
			b.logger.Trace().Float64("position", frame.Position).Msg("Skipping near-duplicate frame")
			continue
		}

		data, err := base64.StdEncoding.DecodeString(frame.EncodedImage)
		if err != nil {
			b.logger.Warn().Err(err).Float64("position", frame.Position).Msg("Frame image is not valid base64")
			continue
		}

		images = append(images, models.ImageAttachment{
			Label:    "Video frame at " + frames.FormatTimestamp(frame.Position),
			MimeType: frame.MimeType,
			Data:     data,
		})
		if frame.PerceptualHash != 0 {
			lastHash = frame.PerceptualHash
		}
	}

	return images
}
