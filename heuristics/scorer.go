// Package heuristics decides whether an unlabeled span of chat text reads as
// written by the human user or by the AI assistant.
//
// The two predicates are deliberately soft: both may fire for the same span,
// or neither. Callers own the tie-break policy.
package heuristics

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default thresholds, in runes
const (
	DefaultShortMessage = 100
	DefaultLongMessage  = 150
	DefaultMinContent   = 3
)

// Thresholds holds the length knobs shared by the normalizer and the scorer
type Thresholds struct {
	ShortMessage int `yaml:"shortMessage" json:"short_message"` // Spans strictly shorter than this look user-authored
	LongMessage  int `yaml:"longMessage" json:"long_message"`   // Spans strictly longer than this look assistant-authored
	MinContent   int `yaml:"minContent" json:"min_content"`     // Lines/paragraphs strictly shorter than this are UI noise
}

// DefaultThresholds returns 100 / 150 / 3
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortMessage: DefaultShortMessage,
		LongMessage:  DefaultLongMessage,
		MinContent:   DefaultMinContent,
	}
}

// Validate rejects thresholds that cannot produce sensible decisions
func (t Thresholds) Validate() error {
	if t.ShortMessage <= 0 {
		return fmt.Errorf("shortMessage must be positive, got %d", t.ShortMessage)
	}
	if t.LongMessage <= 0 {
		return fmt.Errorf("longMessage must be positive, got %d", t.LongMessage)
	}
	if t.MinContent < 0 {
		return fmt.Errorf("minContent must not be negative, got %d", t.MinContent)
	}
	return nil
}

// Signal is the outcome of combining both predicates for one span
type Signal int

const (
	SignalNone Signal = iota
	SignalUser
	SignalAssistant
)

// String returns the string representation of the Signal
func (s Signal) String() string {
	switch s {
	case SignalUser:
		return "user"
	case SignalAssistant:
		return "assistant"
	default:
		return "none"
	}
}

var (
	requestPattern     = regexp.MustCompile(`(?i)\b(i\s+want|i\s+need|please|could\s+you|can\s+you)\b`)
	discoursePattern   = regexp.MustCompile(`(?i)\b(here['’]s|i['’]d\s+be\s+happy\s+to|certainly|absolutely|to\s+answer\s+your\s+question|as\s+requested|in\s+summary|to\s+summarize)\b`)
	enumerationPattern = regexp.MustCompile(`(?i)\b(first|second|third|finally|in\s+conclusion|step\s+1|step\s+2)\b`)
)

// Scorer applies the role predicates with a fixed set of thresholds.
// The zero value is not useful; use NewScorer.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer creates a scorer. Non-positive length thresholds fall back to the defaults.
func NewScorer(t Thresholds) *Scorer {
	def := DefaultThresholds()
	if t.ShortMessage <= 0 {
		t.ShortMessage = def.ShortMessage
	}
	if t.LongMessage <= 0 {
		t.LongMessage = def.LongMessage
	}
	if t.MinContent < 0 {
		t.MinContent = def.MinContent
	}
	return &Scorer{thresholds: t}
}

// Default returns a scorer with DefaultThresholds
func Default() *Scorer {
	return NewScorer(DefaultThresholds())
}

// Thresholds returns the thresholds in use
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// LooksLikeUser reports a question, a request phrase, or a short span
func (s *Scorer) LooksLikeUser(span string) bool {
	span = strings.TrimSpace(span)
	if strings.HasSuffix(span, "?") {
		return true
	}
	if requestPattern.MatchString(span) {
		return true
	}
	return utf8.RuneCountInString(span) < s.thresholds.ShortMessage
}

// LooksLikeAssistant reports a long span, a discourse marker, or an enumeration marker
func (s *Scorer) LooksLikeAssistant(span string) bool {
	span = strings.TrimSpace(span)
	if utf8.RuneCountInString(span) > s.thresholds.LongMessage {
		return true
	}
	return discoursePattern.MatchString(span) || enumerationPattern.MatchString(span)
}

// Signal returns the role when exactly one predicate fires, SignalNone otherwise
func (s *Scorer) Signal(span string) Signal {
	user := s.LooksLikeUser(span)
	assistant := s.LooksLikeAssistant(span)
	switch {
	case user && !assistant:
		return SignalUser
	case assistant && !user:
		return SignalAssistant
	default:
		return SignalNone
	}
}

// IsUserByDefault is the single-span policy: user when LooksLikeUser, assistant otherwise
func (s *Scorer) IsUserByDefault(span string) bool {
	return s.LooksLikeUser(span)
}

// IsBelowMinContent reports whether a trimmed span is too short to be content
func (s *Scorer) IsBelowMinContent(span string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(span)) < s.thresholds.MinContent
}
