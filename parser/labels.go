// Package parser infers who said what in a blob of text copied out of an AI
// chat interface. It normalizes the paste, then runs an ordered chain of
// strategies (explicit markers first, paragraph heuristics last) and returns
// the messages from the first strategy that applies.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"chatsnip/types"
)

// builtinSpeakerLabels are role badges that chat UIs render on their own line.
// "chatgpt" also covers "ChatGPT-<suffix>" through the pattern below.
var builtinSpeakerLabels = []string{"you", "claude", "gemini", "assistant", "ai", "user"}

// LabelMatcher recognizes lines and paragraphs that consist only of a speaker label
type LabelMatcher struct {
	linePattern *regexp.Regexp
}

// NewLabelMatcher compiles a matcher for the built-in labels, the known model
// names and any extra labels (matched literally, case-insensitive)
func NewLabelMatcher(extraLabels []string) (*LabelMatcher, error) {
	alternatives := []string{`chatgpt(?:-\S+)?`}
	seen := make(map[string]bool)

	add := func(label string) {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		alternatives = append(alternatives, regexp.QuoteMeta(label))
	}

	for _, label := range builtinSpeakerLabels {
		add(label)
	}
	for _, label := range types.KnownAssistantNames {
		add(label)
	}
	for _, label := range extraLabels {
		add(label)
	}

	pattern, err := regexp.Compile(`(?i)^(?:` + strings.Join(alternatives, "|") + `)$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile speaker label pattern: %w", err)
	}

	return &LabelMatcher{linePattern: pattern}, nil
}

// IsSpeakerLabel reports whether the trimmed line is exactly a speaker label.
// "You:" is a prefix, not a label, and does not match.
func (lm *LabelMatcher) IsSpeakerLabel(line string) bool {
	return lm.linePattern.MatchString(strings.TrimSpace(line))
}

// IsBareRoleLabel is the looser check used on paragraphs: a trailing colon is tolerated
func (lm *LabelMatcher) IsBareRoleLabel(span string) bool {
	span = strings.TrimSpace(span)
	span = strings.TrimSpace(strings.TrimSuffix(span, ":"))
	return lm.linePattern.MatchString(span)
}

// Package-level default label matcher
var defaultLabelMatcher *LabelMatcher

func init() {
	var err error
	defaultLabelMatcher, err = NewLabelMatcher(nil)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default label matcher: %v", err))
	}
}
