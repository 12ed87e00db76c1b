package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"chatsnip/heuristics"
	"chatsnip/logger"
	"chatsnip/types"
)

// Environment keys read by LoadConfig
const (
	EnvPort                 = "PORT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvLogFormat            = "LOG_FORMAT"
	EnvLogDir               = "LOG_DIR"
	EnvDefaultAssistantName = "DEFAULT_ASSISTANT_NAME"
	EnvMaxInputBytes        = "MAX_INPUT_BYTES"
	EnvHeuristicsFile       = "HEURISTICS_FILE"
)

var envKeys = []string{
	EnvPort,
	EnvLogLevel,
	EnvLogFormat,
	EnvLogDir,
	EnvDefaultAssistantName,
	EnvMaxInputBytes,
	EnvHeuristicsFile,
}

const (
	DefaultPort           = "8787"
	DefaultMaxInputBytes  = 1 << 20
	DefaultHeuristicsFile = "heuristics.yaml"
	DefaultEnvFile        = ".env"
)

// Config holds the service configuration
type Config struct {
	Port                 string `json:"port"`
	LogLevel             string `json:"log_level"`
	LogFormat            string `json:"log_format"`
	LogDir               string `json:"log_dir"`
	DefaultAssistantName string `json:"default_assistant_name"`
	MaxInputBytes        int64  `json:"max_input_bytes"`
	HeuristicsFile       string `json:"heuristics_file"`

	// Loaded from the heuristics file
	Thresholds         heuristics.Thresholds `json:"thresholds"`
	ExtraSpeakerLabels []string              `json:"extra_speaker_labels"`

	// Which optional files were found; the caller logs these
	EnvFileLoaded    bool `json:"-"`
	HeuristicsLoaded bool `json:"-"`
}

// GetDefaultConfig returns a default configuration for testing
func GetDefaultConfig() *Config {
	return &Config{
		Port:                 DefaultPort,
		LogLevel:             logger.INFO.String(),
		LogFormat:            string(logger.FormatJSON),
		LogDir:               "", // stderr
		DefaultAssistantName: types.DefaultAssistantName,
		MaxInputBytes:        DefaultMaxInputBytes,
		HeuristicsFile:       DefaultHeuristicsFile,
		Thresholds:           heuristics.DefaultThresholds(),
		ExtraSpeakerLabels:   []string{},
	}
}

// LoadConfig builds the configuration from defaults, then the optional .env
// file at envPath, then the process environment, then the heuristics file.
func LoadConfig(envPath string) (*Config, error) {
	cfg := GetDefaultConfig()

	envVars, err := loadEnvFile(envPath)
	switch {
	case err == nil:
		cfg.EnvFileLoaded = true
	case errors.Is(err, os.ErrNotExist):
		// optional
	default:
		return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
	}

	for _, key := range envKeys {
		if value, ok := os.LookupEnv(key); ok {
			envVars[key] = value
		}
	}

	if err := cfg.apply(envVars); err != nil {
		return nil, err
	}

	h, found, err := LoadHeuristics(cfg.HeuristicsFile)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.Thresholds = h.Thresholds
		cfg.ExtraSpeakerLabels = h.ExtraSpeakerLabels
		cfg.HeuristicsLoaded = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(values map[string]string) error {
	if v, ok := values[EnvPort]; ok && v != "" {
		c.Port = v
	}
	if v, ok := values[EnvLogLevel]; ok && v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v, ok := values[EnvLogFormat]; ok && v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	if v, ok := values[EnvLogDir]; ok {
		c.LogDir = v
	}
	if v, ok := values[EnvDefaultAssistantName]; ok && strings.TrimSpace(v) != "" {
		c.DefaultAssistantName = strings.TrimSpace(v)
	}
	if v, ok := values[EnvMaxInputBytes]; ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxInputBytes, v, err)
		}
		c.MaxInputBytes = n
	}
	if v, ok := values[EnvHeuristicsFile]; ok {
		c.HeuristicsFile = v
	}
	return nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s %q: must be a number between 1 and 65535", EnvPort, c.Port)
	}
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid %s %q: must be DEBUG, INFO, WARN or ERROR", EnvLogLevel, c.LogLevel)
	}
	if c.LogFormat != string(logger.FormatJSON) && c.LogFormat != string(logger.FormatText) {
		return fmt.Errorf("invalid %s %q: must be json or text", EnvLogFormat, c.LogFormat)
	}
	if strings.TrimSpace(c.DefaultAssistantName) == "" {
		return fmt.Errorf("%s must not be blank", EnvDefaultAssistantName)
	}
	if c.MaxInputBytes <= 0 {
		return fmt.Errorf("invalid %s %d: must be positive", EnvMaxInputBytes, c.MaxInputBytes)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid heuristics in %s: %w", c.HeuristicsFile, err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Heuristics represents the structure of heuristics.yaml
type Heuristics struct {
	Thresholds         heuristics.Thresholds `yaml:"thresholds"`
	ExtraSpeakerLabels []string              `yaml:"extraSpeakerLabels"`
}

// LoadHeuristics loads scorer thresholds and extra speaker labels from path.
// A missing file is not an error; found reports whether it existed. Values
// the file leaves out keep their defaults.
func LoadHeuristics(path string) (Heuristics, bool, error) {
	h := Heuristics{Thresholds: heuristics.DefaultThresholds(), ExtraSpeakerLabels: []string{}}
	if path == "" {
		return h, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return h, false, nil
		}
		return h, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return h, true, nil
		}
		return h, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	labels := h.ExtraSpeakerLabels[:0]
	for _, label := range h.ExtraSpeakerLabels {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	h.ExtraSpeakerLabels = labels

	return h, true, nil
}

// loadEnvFile loads KEY=VALUE pairs from path. The returned map is never nil.
func loadEnvFile(path string) (map[string]string, error) {
	envVars := make(map[string]string)

	file, err := os.Open(path)
	if err != nil {
		return envVars, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if commentIndex := strings.Index(value, "#"); commentIndex != -1 {
			value = strings.TrimSpace(value[:commentIndex])
		}
		value = strings.Trim(value, `"'`)

		envVars[key] = value
	}

	return envVars, scanner.Err()
}
