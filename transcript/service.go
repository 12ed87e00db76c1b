// Package transcript composes classification and rendering into the export
// flow used by the HTTP and CLI front ends.
package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"chatsnip/config"
	"chatsnip/internal"
	"chatsnip/logger"
	"chatsnip/metrics"
	"chatsnip/parser"
	"chatsnip/render"
	"chatsnip/types"
)

// Service classifies pasted conversations and renders them. The classifier
// can be swapped by Reload while requests are in flight.
type Service struct {
	config     *config.Config
	classifier atomic.Pointer[parser.Classifier]
	obsLogger  *logger.ObservabilityLogger
	metrics    *metrics.Metrics
}

// ExportRequest is one paste-and-export action
type ExportRequest struct {
	Text        string
	Model       string // one of types.KnownAssistantNames, "Custom", or blank for the configured default
	CustomModel string
	Format      string
}

// ExportResult carries the classified conversation together with its rendering
type ExportResult struct {
	Conversation  types.Conversation
	AssistantName string
	Format        render.Format
	Output        string
}

// NewService creates a new transcript service. obs and m may be nil.
func NewService(cfg *config.Config, obs *logger.ObservabilityLogger, m *metrics.Metrics) (*Service, error) {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}

	classifier, err := parser.New(parser.Options{
		Thresholds:  cfg.Thresholds,
		ExtraLabels: cfg.ExtraSpeakerLabels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	s := &Service{
		config:    cfg,
		obsLogger: obs,
		metrics:   m,
	}
	s.classifier.Store(classifier)
	return s, nil
}

// Reload rebuilds the classifier from new heuristics. On error the current
// classifier stays in place.
func (s *Service) Reload(h config.Heuristics) error {
	classifier, err := parser.New(parser.Options{
		Thresholds:  h.Thresholds,
		ExtraLabels: h.ExtraSpeakerLabels,
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild classifier: %w", err)
	}
	s.classifier.Store(classifier)
	return nil
}

// StrategyNames lists the classifier strategies in evaluation order
func (s *Service) StrategyNames() []string {
	return s.classifier.Load().StrategyNames()
}

// Classify normalizes raw and infers its messages. Blank input returns
// types.ErrNoUsableText.
func (s *Service) Classify(ctx context.Context, raw string) (types.Conversation, error) {
	requestID := requestIDFrom(ctx)

	if strings.TrimSpace(raw) == "" {
		s.metrics.ObserveNoUsableText()
		if s.obsLogger != nil {
			s.obsLogger.Warn(logger.ComponentClassifier, logger.CategoryWarning, requestID, "No usable text provided", map[string]interface{}{
				"input_bytes": len(raw),
			})
		}
		return types.Conversation{}, types.ErrNoUsableText
	}

	classifier := s.classifier.Load()
	start := time.Now()
	normalized := classifier.Normalize(raw)
	if s.obsLogger != nil {
		s.obsLogger.Debug(logger.ComponentNormalizer, logger.CategoryClassification, requestID, "Input normalized", map[string]interface{}{
			"input_bytes":      len(raw),
			"normalized_bytes": len(normalized),
		})
	}

	var logFunc parser.LogFunc
	if s.obsLogger != nil {
		logFunc = s.obsLogger.LogFunc()
	}
	result := classifier.ClassifyWithTrace(normalized, logFunc, requestID)
	if len(result.Messages) == 0 {
		s.metrics.ObserveNoUsableText()
		return types.Conversation{}, types.ErrNoUsableText
	}

	s.metrics.ObserveClassification(result.Strategy, result.FellBack, len(result.Messages), time.Since(start))
	if s.obsLogger != nil {
		conv := result.Conversation()
		s.obsLogger.ClassificationDecision(requestID, result.Strategy, conv.Len(), result.FellBack, map[string]interface{}{
			"user_messages": conv.UserMessageCount(),
		})
	}

	return result.Conversation(), nil
}

// Render renders conv. A blank assistantName uses the configured default.
func (s *Service) Render(ctx context.Context, conv types.Conversation, assistantName string, format render.Format) (string, error) {
	requestID := requestIDFrom(ctx)

	if strings.TrimSpace(assistantName) == "" {
		assistantName = s.config.DefaultAssistantName
	}

	start := time.Now()
	output, err := render.Render(conv, assistantName, format)
	if err != nil {
		if s.obsLogger != nil {
			s.obsLogger.Warn(logger.ComponentRenderer, logger.CategoryError, requestID, "Render failed", map[string]interface{}{
				"format": string(format),
				"error":  err.Error(),
			})
		}
		return "", err
	}

	s.metrics.ObserveRender(string(format), time.Since(start))
	if s.obsLogger != nil {
		s.obsLogger.RenderCompleted(requestID, string(format), conv.Len(), len(output), map[string]interface{}{
			"assistant_name": assistantName,
		})
	}
	return output, nil
}

// Export classifies req.Text and renders it with the resolved assistant name
func (s *Service) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	format, err := render.ParseFormat(req.Format)
	if err != nil {
		return ExportResult{}, err
	}

	conv, err := s.Classify(ctx, req.Text)
	if err != nil {
		return ExportResult{}, err
	}

	name := s.AssistantName(req.Model, req.CustomModel)
	output, err := s.Render(ctx, conv, name, format)
	if err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		Conversation:  conv,
		AssistantName: name,
		Format:        format,
		Output:        output,
	}, nil
}

// AssistantName resolves a model selection. A blank selection uses the
// configured default; "Custom" with a blank custom name gives "Assistant".
func (s *Service) AssistantName(model, customModel string) string {
	if strings.TrimSpace(model) == "" {
		return s.config.DefaultAssistantName
	}
	return types.ResolveAssistantName(model, customModel)
}

func requestIDFrom(ctx context.Context) string {
	if id := internal.GetRequestID(ctx); id != "unknown" {
		return id
	}
	return ""
}
