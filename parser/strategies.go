package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"chatsnip/heuristics"
	"chatsnip/types"
)

// Strategy names, in chain order
const (
	StrategySaidPattern        = "said_pattern"
	StrategyExplicitPrefix     = "explicit_prefix"
	StrategyDirectUICopy       = "direct_ui_copy"
	StrategyParagraphHeuristic = "paragraph_heuristic"
	StrategySaidStyleSegments  = "said_style_segments"
	StrategyParagraphFallback  = "paragraph_fallback"
	StrategySingleMessage      = "single_message"
)

// Strategy detects one shape of pasted conversation and extracts its messages.
// Extract is only called when Detect returned true and may return no messages.
type Strategy interface {
	Name() string
	Detect(text string) bool
	Extract(text string) []types.Message
}

const saidRoles = `You|ChatGPT|Claude|Gemini|AI|Assistant`

var (
	// regexp2 is needed for the lookahead split; RE2 has no lookaround
	saidMarkerPattern = regexp2.MustCompile(`\b(?:`+saidRoles+`)\s+said:`, regexp2.IgnoreCase)
	saidSplitPattern  = regexp2.MustCompile(`(?=\b(?:`+saidRoles+`)\s+said:)`, regexp2.IgnoreCase)
	saidPrefixPattern = regexp.MustCompile(`(?i)^(` + saidRoles + `)\s+said:\s*`)

	explicitPrefixPattern = regexp.MustCompile(`(?im)^(User|You|AI|Assistant|ChatGPT|Claude|Gemini):`)

	directOpenerPattern = regexp.MustCompile(`(?i)^(answer|what|how|why|when|is|can|could|would|should)\b`)

	segmentDetectPattern  = regexp.MustCompile(`You:\s+.*\n\s*ChatGPT:`)
	segmentSplitPattern   = regexp.MustCompile(`\n\s*(You|ChatGPT):\s*`)
	segmentLeadingPattern = regexp.MustCompile(`^\s*(You|ChatGPT):\s*`)

	paragraphBreakPattern = regexp.MustCompile(`\n[ \t]*\n`)
)

func init() {
	saidMarkerPattern.MatchTimeout = time.Second
	saidSplitPattern.MatchTimeout = time.Second
}

// splitParagraphs splits on blank lines and drops empty paragraphs
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphBreakPattern.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// appendMessage appends a trimmed, non-empty message
func appendMessage(messages []types.Message, isUser bool, content string) []types.Message {
	content = strings.TrimSpace(content)
	if content == "" {
		return messages
	}
	return append(messages, types.Message{IsUser: isUser, Content: content})
}

// SaidPatternStrategy handles the "You said: ... / ChatGPT said: ..." transcript
// produced by copying a whole ChatGPT page
type SaidPatternStrategy struct {
	scorer *heuristics.Scorer
	labels *LabelMatcher
}

func (s *SaidPatternStrategy) Name() string { return StrategySaidPattern }

func (s *SaidPatternStrategy) Detect(text string) bool {
	ok, err := saidMarkerPattern.MatchString(text)
	return err == nil && ok
}

func (s *SaidPatternStrategy) Extract(text string) []types.Message {
	chunks, err := splitBeforeSaidMarkers(text)
	if err != nil {
		return nil
	}

	var messages []types.Message
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		if m := saidPrefixPattern.FindStringSubmatchIndex(chunk); m != nil {
			role := chunk[m[2]:m[3]]
			messages = appendMessage(messages, strings.EqualFold(role, "you"), chunk[m[1]:])
			continue
		}

		// Only the text before the first marker can lack one
		if len([]rune(chunk)) > 3 && !s.labels.IsBareRoleLabel(chunk) {
			messages = appendMessage(messages, s.scorer.IsUserByDefault(chunk), chunk)
		}
	}
	return messages
}

// splitBeforeSaidMarkers cuts text so that every "<Role> said:" starts a new chunk.
// regexp2 reports rune offsets, so the cut happens on the rune slice.
func splitBeforeSaidMarkers(text string) ([]string, error) {
	runes := []rune(text)

	var cuts []int
	m, err := saidSplitPattern.FindRunesMatch(runes)
	for m != nil {
		if m.Index > 0 {
			cuts = append(cuts, m.Index)
		}
		m, err = saidSplitPattern.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("said marker split: %w", err)
	}

	chunks := make([]string, 0, len(cuts)+1)
	start := 0
	for _, cut := range cuts {
		chunks = append(chunks, string(runes[start:cut]))
		start = cut
	}
	chunks = append(chunks, string(runes[start:]))
	return chunks, nil
}

// ExplicitPrefixStrategy handles lines that start with "User:", "ChatGPT:" and so on
type ExplicitPrefixStrategy struct{}

func (s *ExplicitPrefixStrategy) Name() string { return StrategyExplicitPrefix }

func (s *ExplicitPrefixStrategy) Detect(text string) bool {
	return explicitPrefixPattern.MatchString(text)
}

func (s *ExplicitPrefixStrategy) Extract(text string) []types.Message {
	matches := explicitPrefixPattern.FindAllStringSubmatchIndex(text, -1)

	var messages []types.Message
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		label := strings.ToLower(text[m[2]:m[3]])
		isUser := label == "user" || label == "you"
		messages = appendMessage(messages, isUser, text[m[1]:end])
	}
	return messages
}

// DirectUICopyStrategy handles a selection that starts with the user's question
// and carries no labels at all: paragraphs strictly alternate, user first
type DirectUICopyStrategy struct {
	scorer *heuristics.Scorer
	labels *LabelMatcher
}

func (s *DirectUICopyStrategy) Name() string { return StrategyDirectUICopy }

func (s *DirectUICopyStrategy) Detect(text string) bool {
	return directOpenerPattern.MatchString(text)
}

func (s *DirectUICopyStrategy) Extract(text string) []types.Message {
	var messages []types.Message
	isUser := true
	for _, p := range splitParagraphs(text) {
		if s.labels.IsBareRoleLabel(p) || s.scorer.IsBelowMinContent(p) {
			continue
		}
		messages = appendMessage(messages, isUser, p)
		isUser = !isUser
	}
	return messages
}

// turnState is the accumulator folded over paragraphs
type turnState struct {
	messages []types.Message
	isUser   bool
}

// ParagraphHeuristicStrategy alternates turns per paragraph, letting a strong
// signal force the turn for that paragraph
type ParagraphHeuristicStrategy struct {
	scorer *heuristics.Scorer
}

func (s *ParagraphHeuristicStrategy) Name() string { return StrategyParagraphHeuristic }

func (s *ParagraphHeuristicStrategy) Detect(text string) bool {
	return len(splitParagraphs(text)) >= 2
}

func (s *ParagraphHeuristicStrategy) Extract(text string) []types.Message {
	state := turnState{isUser: true}
	for _, p := range splitParagraphs(text) {
		state = s.step(state, p)
	}
	return state.messages
}

func (s *ParagraphHeuristicStrategy) step(state turnState, paragraph string) turnState {
	// Both or neither firing keeps the current turn
	switch s.scorer.Signal(paragraph) {
	case heuristics.SignalUser:
		state.isUser = true
	case heuristics.SignalAssistant:
		state.isUser = false
	}
	return turnState{
		messages: appendMessage(state.messages, state.isUser, paragraph),
		isUser:   !state.isUser,
	}
}

// SaidStyleSegmentStrategy handles inline "You: ... ChatGPT: ..." markers that
// are not at line start
type SaidStyleSegmentStrategy struct{}

func (s *SaidStyleSegmentStrategy) Name() string { return StrategySaidStyleSegments }

func (s *SaidStyleSegmentStrategy) Detect(text string) bool {
	return segmentDetectPattern.MatchString(text)
}

func (s *SaidStyleSegmentStrategy) Extract(text string) []types.Message {
	matches := segmentSplitPattern.FindAllStringSubmatchIndex(text, -1)

	leadingEnd := len(text)
	if len(matches) > 0 {
		leadingEnd = matches[0][0]
	}

	leading := text[:leadingEnd]
	isUser := true
	if m := segmentLeadingPattern.FindStringSubmatchIndex(leading); m != nil {
		isUser = leading[m[2]:m[3]] == "You"
		leading = leading[m[1]:]
	}

	var messages []types.Message
	var pending []string
	if strings.TrimSpace(leading) != "" {
		pending = append(pending, strings.TrimSpace(leading))
	}

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		tokenIsUser := text[m[2]:m[3]] == "You"
		if tokenIsUser != isUser {
			messages = appendMessage(messages, isUser, strings.Join(pending, "\n\n"))
			pending = nil
			isUser = tokenIsUser
		}
		if segment := strings.TrimSpace(text[m[1]:end]); segment != "" {
			pending = append(pending, segment)
		}
	}

	return appendMessage(messages, isUser, strings.Join(pending, "\n\n"))
}

// paragraphRun is the accumulator for ParagraphFallbackStrategy
type paragraphRun struct {
	messages []types.Message
	current  []string
	isUser   bool
}

func (r paragraphRun) flush() paragraphRun {
	return paragraphRun{
		messages: appendMessage(r.messages, r.isUser, strings.Join(r.current, "\n\n")),
		isUser:   r.isUser,
	}
}

// ParagraphFallbackStrategy groups consecutive paragraphs into one message
// until a strong signal for the other role starts a new one
type ParagraphFallbackStrategy struct {
	scorer *heuristics.Scorer
}

func (s *ParagraphFallbackStrategy) Name() string { return StrategyParagraphFallback }

func (s *ParagraphFallbackStrategy) Detect(text string) bool {
	return strings.TrimSpace(text) != "" && paragraphBreakPattern.MatchString(text)
}

func (s *ParagraphFallbackStrategy) Extract(text string) []types.Message {
	paragraphs := splitParagraphs(text)
	signals := make([]heuristics.Signal, len(paragraphs))
	anySignal := false
	for i, p := range paragraphs {
		signals[i] = s.scorer.Signal(p)
		if signals[i] != heuristics.SignalNone {
			anySignal = true
		}
	}

	if !anySignal {
		var messages []types.Message
		for i, p := range paragraphs {
			messages = appendMessage(messages, i%2 == 0, p)
		}
		return messages
	}

	var run paragraphRun
	for i, p := range paragraphs {
		run = s.step(run, p, signals[i], i == 0)
	}
	return run.flush().messages
}

func (s *ParagraphFallbackStrategy) step(run paragraphRun, paragraph string, signal heuristics.Signal, first bool) paragraphRun {
	if first {
		run.isUser = signal != heuristics.SignalAssistant
		run.current = []string{paragraph}
		return run
	}

	if signal != heuristics.SignalNone && (signal == heuristics.SignalUser) != run.isUser {
		run = run.flush()
		run.isUser = !run.isUser
	}
	run.current = append(run.current, paragraph)
	return run
}

// SingleMessageStrategy is the terminal fallback: the whole text is one message
type SingleMessageStrategy struct {
	scorer *heuristics.Scorer
}

func (s *SingleMessageStrategy) Name() string { return StrategySingleMessage }

func (s *SingleMessageStrategy) Detect(text string) bool {
	return strings.TrimSpace(text) != ""
}

func (s *SingleMessageStrategy) Extract(text string) []types.Message {
	return appendMessage(nil, s.scorer.IsUserByDefault(text), text)
}
