package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FailureContext describes a failed browser test as reported by the test runner.
type FailureContext struct {
	TestName     string            `json:"test_name" yaml:"test_name" validate:"required"`
	TestFile     string            `json:"test_file,omitempty" yaml:"test_file,omitempty"`
	TestLine     int               `json:"test_line,omitempty" yaml:"test_line,omitempty" validate:"gte=0"`
	ErrorMessage string            `json:"error_message" yaml:"error_message"`
	StackTrace   string            `json:"stack_trace,omitempty" yaml:"stack_trace,omitempty"`
	VideoPath    string            `json:"video_path,omitempty" yaml:"video_path,omitempty"`
	Duration     time.Duration     `json:"duration,omitempty" yaml:"duration,omitempty"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	FailedAt     time.Time         `json:"failed_at" yaml:"failed_at"`
}

// NetworkRequest is one captured browser request. The rest of the system treats
// the list as opaque context.
type NetworkRequest struct {
	RequestID    string    `json:"request_id"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	ResourceType string    `json:"resource_type,omitempty"`
	Status       int64     `json:"status,omitempty"`
	StatusText   string    `json:"status_text,omitempty"`
	MimeType     string    `json:"mime_type,omitempty"`
	EncodedBytes float64   `json:"encoded_bytes,omitempty"`
	Failed       bool      `json:"failed,omitempty"`
	ErrorText    string    `json:"error_text,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}

// ConsoleEntry is one browser console or log-domain message.
type ConsoleEntry struct {
	Level  string    `json:"level"`
	Source string    `json:"source,omitempty"`
	Text   string    `json:"text"`
	URL    string    `json:"url,omitempty"`
	At     time.Time `json:"at"`
}

// PageArtifacts is everything captured from the browser at failure time.
type PageArtifacts struct {
	URL        string           `json:"url,omitempty" yaml:"url,omitempty"`
	Title      string           `json:"title,omitempty" yaml:"title,omitempty"`
	DOM        string           `json:"-" yaml:"dom,omitempty"`
	Screenshot []byte           `json:"-" yaml:"-"`
	Network    []NetworkRequest `json:"network,omitempty" yaml:"network,omitempty"`
	Console    []ConsoleEntry   `json:"console,omitempty" yaml:"console,omitempty"`
	Errors     []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
	CapturedAt time.Time        `json:"captured_at" yaml:"captured_at"`
}

// FailureBundle is the on-disk form accepted by the enrich command.
type FailureBundle struct {
	Failure        FailureContext `json:"failure" yaml:"failure"`
	Artifacts      PageArtifacts  `json:"artifacts" yaml:"artifacts"`
	DOMFile        string         `json:"dom_file,omitempty" yaml:"dom_file,omitempty"`
	ScreenshotFile string         `json:"screenshot_file,omitempty" yaml:"screenshot_file,omitempty"`
}

// LoadFailureBundle reads a YAML or JSON failure bundle. Relative file
// references inside the bundle resolve against the bundle's directory.
func LoadFailureBundle(path string) (*FailureBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read failure bundle %s: %w", path, err)
	}

	var bundle FailureBundle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &bundle)
	default:
		err = yaml.Unmarshal(data, &bundle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse failure bundle %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	bundle.Failure.VideoPath = resolve(bundle.Failure.VideoPath)
	bundle.Failure.TestFile = resolve(bundle.Failure.TestFile)

	if bundle.DOMFile != "" {
		dom, err := os.ReadFile(resolve(bundle.DOMFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read dom file: %w", err)
		}
		bundle.Artifacts.DOM = string(dom)
	}
	if bundle.ScreenshotFile != "" {
		shot, err := os.ReadFile(resolve(bundle.ScreenshotFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read screenshot file: %w", err)
		}
		bundle.Artifacts.Screenshot = shot
	}

	if bundle.Failure.FailedAt.IsZero() {
		bundle.Failure.FailedAt = time.Now()
	}

	return &bundle, nil
}
