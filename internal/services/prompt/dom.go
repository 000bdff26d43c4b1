package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// noiseSelectors are removed before conversion; they carry no visible page state
const noiseSelectors = "script, style, noscript, svg, link, meta, iframe, template"

var blankLinesRegex = regexp.MustCompile(`\n{3,}`)

// DOMCondenser turns a captured DOM into compact markdown for the prompt
type DOMCondenser struct {
	maxChars int
	logger   arbor.ILogger
}

// NewDOMCondenser creates a condenser. maxChars <= 0 disables truncation.
func NewDOMCondenser(maxChars int, logger arbor.ILogger) *DOMCondenser {
	return &DOMCondenser{maxChars: maxChars, logger: logger}
}

// Condense strips non-visible elements, converts to markdown and truncates.
// baseURL resolves relative links.
func (d *DOMCondenser) Condense(html string, baseURL string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to parse DOM, using raw HTML")
		return d.truncate(html)
	}
	doc.Find(noiseSelectors).Remove()

	cleaned, err := doc.Html()
	if err != nil {
		cleaned = html
	}

	converter := md.NewConverter(baseURL, true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil || strings.TrimSpace(markdown) == "" {
		d.logger.Debug().Err(err).Int("html_length", len(html)).Msg("Markdown conversion empty, falling back to text")
		markdown = strings.Join(strings.Fields(doc.Text()), " ")
	}

	markdown = blankLinesRegex.ReplaceAllString(strings.TrimSpace(markdown), "\n\n")

	d.logger.Trace().
		Int("html_length", len(html)).
		Int("markdown_length", len(markdown)).
		Msg("DOM condensed")

	return d.truncate(markdown)
}

func (d *DOMCondenser) truncate(s string) string {
	if d.maxChars <= 0 || utf8.RuneCountInString(s) <= d.maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:d.maxChars]) + fmt.Sprintf("\n\n[... %d more characters truncated]", len(runes)-d.maxChars)
}
