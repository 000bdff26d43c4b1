package models

import (
	"strings"
)

// Default extraction parameters used when a request leaves a field unset.
const (
	DefaultMaxFrames   = 5
	DefaultFrameFormat = "jpg"
)

// VideoFrame is one still image pulled out of a test video.
// Frames are created once per extraction call and never updated.
type VideoFrame struct {
	SourcePath     string  `json:"source_path"`
	Position       float64 `json:"position"`                  // seconds into the source video, >= 0
	EncodedImage   string  `json:"encoded_image,omitempty"`   // base64 of the file at SourcePath
	MimeType       string  `json:"mime_type"`                 // derived from the requested output format
	IsPlaceholder  bool    `json:"is_placeholder"`            // true when the bytes are synthetic, possibly not an image at all
	Tool           string  `json:"tool,omitempty"`            // strategy that produced the file
	PerceptualHash uint64  `json:"perceptual_hash,omitempty"` // pHash of real frames, 0 when unknown
	Checksum       string  `json:"checksum,omitempty"`        // xxhash64 of the file bytes
}

// ExtractionRequest describes one batch extraction.
type ExtractionRequest struct {
	VideoPath       string  `json:"video_path" validate:"required"`
	MaxFrames       int     `json:"max_frames" validate:"gte=0"`
	Interval        float64 `json:"interval" validate:"gte=0"` // 0 selects key-moments mode
	OutputDirectory string  `json:"output_directory"`
	Format          string  `json:"format"`
}

// WithDefaults returns a copy with unset fields filled from the given fallbacks.
func (r ExtractionRequest) WithDefaults(outputDir, format string, maxFrames int) ExtractionRequest {
	if r.MaxFrames <= 0 {
		r.MaxFrames = maxFrames
		if r.MaxFrames <= 0 {
			r.MaxFrames = DefaultMaxFrames
		}
	}
	if r.OutputDirectory == "" {
		r.OutputDirectory = outputDir
	}
	if r.Format == "" {
		r.Format = format
		if r.Format == "" {
			r.Format = DefaultFrameFormat
		}
	}
	r.Format = strings.TrimPrefix(strings.ToLower(r.Format), ".")
	return r
}

// supportedFrameFormats are the image formats frames may be written as
var supportedFrameFormats = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"bmp":  true,
	"webp": true,
}

// IsSupportedFrameFormat reports whether format (case-insensitive, optional
// leading dot) is an image format frames may be written as. Anything else,
// including values carrying path separators, is rejected.
func IsSupportedFrameFormat(format string) bool {
	return supportedFrameFormats[strings.TrimPrefix(strings.ToLower(format), ".")]
}

// AbsenceReason explains why an extraction produced fewer frames than planned.
type AbsenceReason string

const (
	AbsenceNone          AbsenceReason = ""
	AbsenceSourceMissing AbsenceReason = "source_missing"
	AbsenceSourceEmpty   AbsenceReason = "source_empty"
	AbsenceOutputDir     AbsenceReason = "output_dir_unavailable"
	AbsenceNoFrames      AbsenceReason = "no_frames_produced"
	AbsencePartial       AbsenceReason = "partial"
	AbsenceInternal      AbsenceReason = "internal_error"
)

// ExtractionResult is the outcome of a batch extraction. Frames is never nil.
type ExtractionResult struct {
	Frames    []VideoFrame  `json:"frames"`
	Planned   []float64     `json:"planned"`
	Duration  float64       `json:"duration"`
	Reason    AbsenceReason `json:"reason,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Dropped   int           `json:"dropped"`
	Estimated bool          `json:"estimated"` // duration came from the fallback value
}

// OK reports whether every planned position yielded a frame.
func (r *ExtractionResult) OK() bool {
	return r.Reason == AbsenceNone
}

// FrameResult is the outcome of a single-position extraction. Frame is nil on total failure.
type FrameResult struct {
	Frame    *VideoFrame   `json:"frame,omitempty"`
	Position float64       `json:"position"`
	Duration float64       `json:"duration"`
	Reason   AbsenceReason `json:"reason,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// MimeTypeForFormat maps an output image format to its MIME type.
func MimeTypeForFormat(format string) string {
	switch f := strings.TrimPrefix(strings.ToLower(format), "."); f {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "bmp":
		return "image/bmp"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	case "":
		return "image/jpeg"
	default:
		return "image/" + f
	}
}
