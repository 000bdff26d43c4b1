package llm

import (
	"fmt"
	"regexp"
	"strings"
)

const offlineModelName = "heuristic"

var (
	erroredRequestRegex = regexp.MustCompile(`(?m)^- (\S+) (\S+) -> (FAILED.*|[45]\d\d)$`)
	consoleErrorRegex   = regexp.MustCompile(`(?m)^- \[(error|exception|assert)\] (.+)$`)
)

// generateOffline produces a deterministic summary from the prompt text alone.
// It is used when no provider is enabled, in air-gapped CI, and in tests.
func generateOffline(request *ContentRequest) *ContentResponse {
	errorText := section(request.Text, "## Error")
	errorText = strings.Trim(strings.TrimSpace(errorText), "`\n ")

	var out strings.Builder
	out.WriteString("## Summary\n")
	if errorText != "" {
		fmt.Fprintf(&out, "The test failed with: %s\n", firstLine(errorText))
	} else {
		out.WriteString("The test failed without an error message.\n")
	}

	lowerError := strings.ToLower(errorText)
	timedOut := strings.Contains(lowerError, "timeout") || strings.Contains(lowerError, "timed out") || strings.Contains(lowerError, "deadline")

	requests := erroredRequestRegex.FindAllStringSubmatch(request.Text, -1)
	console := consoleErrorRegex.FindAllStringSubmatch(request.Text, -1)

	out.WriteString("\n## Likely cause\n")
	switch {
	case len(requests) > 0:
		fmt.Fprintf(&out, "%d network request(s) failed or returned an error status. First: %s %s -> %s\n",
			len(requests), requests[0][1], requests[0][2], requests[0][3])
	case len(console) > 0:
		fmt.Fprintf(&out, "The page logged %d console error(s). First: %s\n", len(console), console[0][2])
	case timedOut:
		out.WriteString("The test timed out waiting for the page; the application may be slow or an element never appeared.\n")
	default:
		out.WriteString("No network or console errors were captured; the assertion itself may be out of date.\n")
	}

	category := "test bug"
	switch {
	case len(requests) > 0 || len(console) > 0:
		category = "application bug"
	case timedOut:
		category = "flaky timing"
	}
	fmt.Fprintf(&out, "\n## Category\n%s\n", category)

	fmt.Fprintf(&out, "\n## Suggested fix\nReview the attached page state and %d image(s). This analysis was produced offline without a language model.\n", len(request.Images))

	return &ContentResponse{
		Text:     out.String(),
		Provider: ProviderOffline,
		Model:    offlineModelName,
	}
}

// section returns the body of a "## Heading" block up to the next heading
func section(text, heading string) string {
	start := strings.Index(text, heading+"\n")
	if start < 0 {
		return ""
	}
	body := text[start+len(heading)+1:]
	if end := strings.Index(body, "\n## "); end >= 0 {
		body = body[:end]
	}
	return body
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
