package parser

import (
	"fmt"
	"strings"

	"chatsnip/heuristics"
	"chatsnip/types"
)

// Log component and category for trace events. They match the logger
// package constants without importing it.
const (
	traceComponent = "classifier"
	traceCategory  = "classification"
)

// LogFunc receives trace events while the classifier walks its strategy chain
type LogFunc func(component, category, requestID, message string, fields map[string]interface{})

// Options configures a Classifier
type Options struct {
	Thresholds  heuristics.Thresholds
	ExtraLabels []string
}

// Result is the outcome of one classification
type Result struct {
	Messages []types.Message
	Strategy string // Name of the strategy that produced Messages
	FellBack bool   // True when the chosen strategy extracted nothing and the single-message fallback was used
}

// Conversation converts the result into the immutable conversation value
func (r Result) Conversation() types.Conversation {
	return types.Conversation{Messages: r.Messages, Strategy: r.Strategy}
}

// Classifier runs the ordered strategy chain. It holds no mutable state and is
// safe for concurrent use.
type Classifier struct {
	normalizer *Normalizer
	strategies []Strategy
	fallback   Strategy
}

// New creates a classifier with the standard strategy chain
func New(opts Options) (*Classifier, error) {
	labels, err := NewLabelMatcher(opts.ExtraLabels)
	if err != nil {
		return nil, err
	}

	thresholds := opts.Thresholds
	if thresholds == (heuristics.Thresholds{}) {
		thresholds = heuristics.DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	scorer := heuristics.NewScorer(thresholds)

	return &Classifier{
		normalizer: NewNormalizer(labels, scorer.Thresholds()),
		strategies: []Strategy{
			&SaidPatternStrategy{scorer: scorer, labels: labels},
			&ExplicitPrefixStrategy{},
			&DirectUICopyStrategy{scorer: scorer, labels: labels},
			&ParagraphHeuristicStrategy{scorer: scorer},
			&SaidStyleSegmentStrategy{},
			&ParagraphFallbackStrategy{scorer: scorer},
		},
		fallback: &SingleMessageStrategy{scorer: scorer},
	}, nil
}

// StrategyNames lists the chain in evaluation order, fallback last
func (c *Classifier) StrategyNames() []string {
	names := make([]string, 0, len(c.strategies)+1)
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return append(names, c.fallback.Name())
}

// Normalize applies the classifier's normalizer
func (c *Classifier) Normalize(raw string) string {
	return c.normalizer.Normalize(raw)
}

// Classify segments already-normalized text. Empty text yields an empty result;
// any other text yields at least one message.
func (c *Classifier) Classify(text string) Result {
	return c.ClassifyWithTrace(text, nil, "")
}

// ClassifyWithTrace is Classify with a trace callback invoked for every strategy evaluated
func (c *Classifier) ClassifyWithTrace(text string, logFunc LogFunc, requestID string) Result {
	if logFunc == nil {
		logFunc = func(component, category, requestID, message string, fields map[string]interface{}) {}
	}

	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	for i, strategy := range c.strategies {
		if !strategy.Detect(text) {
			logFunc(traceComponent, traceCategory, requestID, "Strategy not matched", map[string]interface{}{
				"strategy":       strategy.Name(),
				"strategy_index": i,
				"matched":        false,
			})
			continue
		}

		messages := strategy.Extract(text)
		logFunc(traceComponent, traceCategory, requestID, "Strategy matched", map[string]interface{}{
			"strategy":       strategy.Name(),
			"strategy_index": i,
			"matched":        true,
			"messages_count": len(messages),
		})

		if len(messages) > 0 {
			return Result{Messages: messages, Strategy: strategy.Name()}
		}

		logFunc(traceComponent, traceCategory, requestID, "Strategy extracted nothing, using single-message fallback", map[string]interface{}{
			"strategy": strategy.Name(),
		})
		return Result{Messages: c.fallback.Extract(text), Strategy: c.fallback.Name(), FellBack: true}
	}

	logFunc(traceComponent, traceCategory, requestID, "No strategy matched, using single-message fallback", map[string]interface{}{
		"strategy": c.fallback.Name(),
	})
	return Result{Messages: c.fallback.Extract(text), Strategy: c.fallback.Name()}
}

// ClassifyConversation normalizes raw text and classifies it. Empty or
// whitespace-only input returns types.ErrNoUsableText.
func (c *Classifier) ClassifyConversation(raw string) (types.Conversation, error) {
	if strings.TrimSpace(raw) == "" {
		return types.Conversation{}, types.ErrNoUsableText
	}
	return c.Classify(c.Normalize(raw)).Conversation(), nil
}

// Package-level default classifier
var defaultClassifier *Classifier

func init() {
	var err error
	defaultClassifier, err = New(Options{})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default classifier: %v", err))
	}
}

// Normalize cleans raw text with the default thresholds and labels
func Normalize(raw string) string {
	return defaultClassifier.Normalize(raw)
}

// Classify segments normalized text with the default classifier
func Classify(text string) Result {
	return defaultClassifier.Classify(text)
}

// ClassifyConversation normalizes and classifies raw text with the default classifier
func ClassifyConversation(raw string) (types.Conversation, error) {
	return defaultClassifier.ClassifyConversation(raw)
}
