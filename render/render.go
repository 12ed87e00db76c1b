// Package render turns a classified conversation into shareable markup.
// Both renderers are pure: identical input gives byte-identical output.
package render

import (
	"fmt"
	"strings"

	"chatsnip/types"
)

// Format selects the output markup
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats
var Formats = []Format{FormatHTML, FormatMarkdown}

// ParseFormat accepts "html", "markdown" or "md" in any case. An empty string
// selects HTML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, s)
	}
}

// Render renders conv in the given format
func Render(conv types.Conversation, assistantName string, format Format) (string, error) {
	switch format {
	case FormatHTML:
		return HTML(conv.Messages, assistantName), nil
	case FormatMarkdown:
		return Markdown(conv.Messages, assistantName), nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, string(format))
	}
}

func displayName(assistantName string) string {
	if name := strings.TrimSpace(assistantName); name != "" {
		return name
	}
	return types.FallbackAssistantName
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
