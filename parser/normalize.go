package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"chatsnip/heuristics"
)

var blankRunPattern = regexp.MustCompile(`\n{3,}`)

// Normalizer cleans pasted chat text before classification
type Normalizer struct {
	labels     *LabelMatcher
	minContent int
}

// NewNormalizer creates a normalizer dropping label lines recognized by labels
// and lines shorter than t.MinContent runes
func NewNormalizer(labels *LabelMatcher, t heuristics.Thresholds) *Normalizer {
	if labels == nil {
		labels = defaultLabelMatcher
	}
	return &Normalizer{labels: labels, minContent: t.MinContent}
}

// Normalize trims the text, collapses blank-line runs to a single blank line
// and removes UI artifacts: lines holding only a speaker label and stray
// fragments below the minimum content length. A removal pass that would
// leave no content at all is skipped. Normalize is idempotent.
func (n *Normalizer) Normalize(raw string) string {
	text := canonicalizeWhitespace(raw)
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	lines = dropContentLines(lines, n.labels.IsSpeakerLabel)
	lines = dropContentLines(lines, func(line string) bool {
		return utf8.RuneCountInString(strings.TrimSpace(line)) < n.minContent
	})

	return collapseBlankRuns(strings.Join(lines, "\n"))
}

// canonicalizeWhitespace unifies line endings, strips trailing whitespace from
// every line so whitespace-only lines become blank, and collapses blank runs
func canonicalizeWhitespace(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}

	return collapseBlankRuns(strings.Join(lines, "\n"))
}

func collapseBlankRuns(text string) string {
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(text, "\n\n"))
}

// dropContentLines removes non-blank lines matching drop. Blank lines are
// paragraph separators and always survive. When every non-blank line would
// be removed the input is returned unchanged.
func dropContentLines(lines []string, drop func(string) bool) []string {
	kept := make([]string, 0, len(lines))
	content := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			kept = append(kept, line)
			continue
		}
		if drop(line) {
			continue
		}
		kept = append(kept, line)
		content++
	}

	if content == 0 {
		return lines
	}
	return kept
}
