package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// ObservabilityLogger provides structured logging using logrus.
// Every entry carries component, category and, when known, request_id.
type ObservabilityLogger struct {
	logger *logrus.Logger
	file   *os.File
}

// Component constants for consistent labeling
const (
	ComponentNormalizer = "normalizer"
	ComponentClassifier = "classifier"
	ComponentRenderer   = "renderer"
	ComponentHTTPServer = "http_server"
	ComponentConfig     = "configuration"
	ComponentCLI        = "cli"
)

// Category constants for log classification
const (
	CategoryRequest        = "request"
	CategoryClassification = "classification"
	CategoryRender         = "render"
	CategorySuccess        = "success"
	CategoryWarning        = "warning"
	CategoryError          = "error"
)

// LogFileName is the file created under Options.Dir
const LogFileName = "chatsnip.jsonl"

// Options configures NewObservabilityLogger
type Options struct {
	Level  Level
	Format Format
	// Dir, when set, sends output to Dir/chatsnip.jsonl instead of Output
	Dir string
	// Output defaults to os.Stderr
	Output io.Writer
}

// NewObservabilityLogger creates a new structured logger
func NewObservabilityLogger(opts Options) (*ObservabilityLogger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, err
		}

		f, err := os.OpenFile(filepath.Join(opts.Dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		file = f
		out = f
	}

	logger := logrus.New()
	logger.SetOutput(out)
	if opts.Format == FormatText {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			DisableColors:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}
	logger.SetLevel(opts.Level.logrusLevel())

	return &ObservabilityLogger{
		logger: logger,
		file:   file,
	}, nil
}

// Close closes the log file
func (o *ObservabilityLogger) Close() error {
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}

// createEntry creates a logrus entry with standard fields
func (o *ObservabilityLogger) createEntry(component, category, requestID string, fields map[string]interface{}) *logrus.Entry {
	entry := o.logger.WithFields(logrus.Fields{
		"service":   "chatsnip",
		"component": component,
		"category":  category,
	})

	if requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}

	if fields != nil {
		entry = entry.WithFields(fields)
	}

	return entry
}

// Debug logs a debug message
func (o *ObservabilityLogger) Debug(component, category, requestID, message string, fields map[string]interface{}) {
	o.createEntry(component, category, requestID, fields).Debug(message)
}

// Info logs an info message
func (o *ObservabilityLogger) Info(component, category, requestID, message string, fields map[string]interface{}) {
	o.createEntry(component, category, requestID, fields).Info(message)
}

// Warn logs a warning message
func (o *ObservabilityLogger) Warn(component, category, requestID, message string, fields map[string]interface{}) {
	o.createEntry(component, category, requestID, fields).Warn(message)
}

// Error logs an error message
func (o *ObservabilityLogger) Error(component, category, requestID, message string, fields map[string]interface{}) {
	o.createEntry(component, category, requestID, fields).Error(message)
}

// Request logs request-related events
func (o *ObservabilityLogger) Request(requestID, message string, fields map[string]interface{}) {
	o.Info(ComponentHTTPServer, CategoryRequest, requestID, message, fields)
}

// LogFunc exposes the logger as a trace callback. Strategy trace events are
// logged at debug level so they stay quiet by default.
func (o *ObservabilityLogger) LogFunc() func(component, category, requestID, message string, fields map[string]interface{}) {
	return func(component, category, requestID, message string, fields map[string]interface{}) {
		o.Debug(component, category, requestID, message, fields)
	}
}

// ClassificationDecision logs which strategy produced the conversation
func (o *ObservabilityLogger) ClassificationDecision(requestID, strategy string, messageCount int, fellBack bool, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["strategy"] = strategy
	fields["messages_count"] = messageCount
	fields["fell_back"] = fellBack
	o.Info(ComponentClassifier, CategoryClassification, requestID, "Conversation classified", fields)
}

// RenderCompleted logs a finished render
func (o *ObservabilityLogger) RenderCompleted(requestID, format string, messageCount, outputBytes int, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["format"] = format
	fields["messages_count"] = messageCount
	fields["output_bytes"] = outputBytes
	o.Info(ComponentRenderer, CategoryRender, requestID, "Conversation rendered", fields)
}
