package models

import (
	"time"
)

// ImageAttachment is an image sent alongside the prompt text.
type ImageAttachment struct {
	Label    string `json:"label"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Prompt is the assembled model input for one failure.
type Prompt struct {
	System string            `json:"system"`
	User   string            `json:"user"`
	Images []ImageAttachment `json:"images,omitempty"`
}

// EnrichmentRecord is the persisted outcome of enriching one failed test.
type EnrichmentRecord struct {
	ID            string        `json:"id" badgerhold:"key"`
	TestName      string        `json:"test_name" badgerhold:"index"`
	TestFile      string        `json:"test_file,omitempty"`
	ErrorMessage  string        `json:"error_message"`
	PageURL       string        `json:"page_url,omitempty"`
	Provider      string        `json:"provider,omitempty"`
	Model         string        `json:"model,omitempty"`
	Analysis      string        `json:"analysis,omitempty"`
	AnalysisError string        `json:"analysis_error,omitempty"`
	PromptChars   int           `json:"prompt_chars"`
	ImageCount    int           `json:"image_count"`
	Frames        []VideoFrame  `json:"frames,omitempty"`
	FrameReason   AbsenceReason `json:"frame_reason,omitempty"`
	NetworkCount  int           `json:"network_count"`
	BundleDir     string        `json:"bundle_dir"`
	CreatedAt     time.Time     `json:"created_at"`
	ElapsedMillis int64         `json:"elapsed_ms"`
}
