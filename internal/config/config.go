package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Storage       StorageConfig       `toml:"storage"`       // Translation history settings
	Capture       CaptureConfig       `toml:"capture"`       // Microphone and utterance segmentation
	Transcription TranscriptionConfig `toml:"transcription"` // Speech-to-text settings
	Translation   TranslationConfig   `toml:"translation"`   // Primary translation backend
	Fallback      FallbackConfig      `toml:"fallback"`      // Degraded translation endpoint
	Pipeline      PipelineConfig      `toml:"pipeline"`      // Per-utterance worker pool
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port
	Host             string `toml:"host"`                  // Host address to bind to
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // 0 = no timeout
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // 0 = no timeout
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`
	StaticFilesDir   string `toml:"static_files_dir"` // Optional directory with a web front end
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains history persistence configuration
type StorageConfig struct {
	DataDir    string `toml:"data_dir"`    // Preferred directory for the history database
	DBFilename string `toml:"db_filename"` // Database file name inside the data directory
	Disabled   bool   `toml:"disabled"`    // Run without history
}

// CaptureConfig contains microphone and segmentation settings
type CaptureConfig struct {
	Device            string `toml:"device"`                    // Capture device name; empty selects the default device
	SampleRate        int    `toml:"sample_rate"`               // Capture rate in Hz (8000, 16000, 32000 or 48000)
	ListenTimeoutSecs int    `toml:"listen_timeout_seconds"`    // Give up waiting for speech after this long
	PhraseLimitSecs   int    `toml:"phrase_time_limit_seconds"` // Maximum utterance length
	PauseMs           int    `toml:"pause_ms"`                  // Trailing silence that ends an utterance
	MinSpeechMs       int    `toml:"min_speech_ms"`             // Shorter voiced segments are treated as unintelligible
	VADMode           int    `toml:"vad_mode"`                  // WebRTC VAD aggressiveness 0-3
	LoopDelayMs       int    `toml:"loop_delay_ms"`             // Pause between capture iterations
}

// TranscriptionConfig contains speech-to-text settings
type TranscriptionConfig struct {
	Provider       string `toml:"provider"`        // "openai" (any OpenAI-compatible endpoint)
	APIKey         string `toml:"api_key"`         // Falls back to OPENAI_API_KEY
	BaseURL        string `toml:"base_url"`        // Optional base URL, e.g. https://api.groq.com/openai/v1
	Model          string `toml:"model"`           // e.g. "whisper-1"
	Language       string `toml:"language"`        // Optional language hint
	TimeoutSeconds int    `toml:"timeout_seconds"` // HTTP timeout
}

// TranslationConfig contains primary translation backend settings
type TranslationConfig struct {
	Provider       string  `toml:"provider"`        // "openai", "gemini" or "none"
	APIKey         string  `toml:"api_key"`         // Falls back to OPENAI_API_KEY or GEMINI_API_KEY
	BaseURL        string  `toml:"base_url"`        // Optional base URL for OpenAI-compatible servers
	Model          string  `toml:"model"`           // Chat model
	Temperature    float64 `toml:"temperature"`     // Sampling temperature
	MaxTokens      int     `toml:"max_tokens"`      // Response token cap
	PromptPath     string  `toml:"prompt_path"`     // Optional system prompt template
	DefaultTarget  string  `toml:"default_target"`  // Target language at startup
	TimeoutSeconds int     `toml:"timeout_seconds"` // Per-request timeout
}

// FallbackConfig contains settings for the degraded HTTP translator
type FallbackConfig struct {
	Endpoint       string `toml:"endpoint"`
	ClientID       string `toml:"client_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PipelineConfig bounds per-utterance work
type PipelineConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

const (
	DefaultDBFilename       = "translation_history.db"
	DefaultTargetLanguage   = "hi"
	DefaultFallbackEndpoint = "https://translate.googleapis.com/translate_a/single"
	appDirName              = "co-translate"
)

// Default returns a configuration that runs without any file
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback tries the preferred path first, then the usual locations.
// When no file exists anywhere the defaults are returned.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		config, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return config, nil
	}

	if preferredPath != "" {
		return nil, fmt.Errorf("config file not found: %s", preferredPath)
	}

	return &Config{}, nil
}

// ApplyEnv fills secrets that are not set in the file from the environment
func (c *Config) ApplyEnv() {
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Translation.APIKey == "" {
		switch c.Translation.Provider {
		case "gemini":
			c.Translation.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai", "":
			c.Translation.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if v := os.Getenv("CO_TRANSLATE_FALLBACK_URL"); v != "" && c.Fallback.Endpoint == "" {
		c.Fallback.Endpoint = v
	}
}

// Validate fills in defaults and validates the configuration
func (c *Config) Validate() error {
	// Server
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 60
	}
	if c.Server.StaticFilesDir != "" {
		if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
		}
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Storage
	if c.Storage.DBFilename == "" {
		c.Storage.DBFilename = DefaultDBFilename
	}
	if strings.ContainsAny(c.Storage.DBFilename, `/\`) {
		return fmt.Errorf("db_filename must be a bare file name: %s", c.Storage.DBFilename)
	}

	if err := c.validateCapture(); err != nil {
		return err
	}

	// Transcription
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "openai"
	}
	if c.Transcription.Provider != "openai" {
		return fmt.Errorf("invalid transcription provider: %s (only 'openai' is supported)", c.Transcription.Provider)
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-1"
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = 30
	}

	// Translation
	if c.Translation.Provider == "" {
		c.Translation.Provider = "openai"
	}
	switch c.Translation.Provider {
	case "openai":
		if c.Translation.Model == "" {
			c.Translation.Model = "gpt-4o-mini"
		}
	case "gemini":
		if c.Translation.Model == "" {
			c.Translation.Model = "gemini-2.0-flash"
		}
	case "none":
	default:
		return fmt.Errorf("invalid translation provider: %s (must be 'openai', 'gemini' or 'none')", c.Translation.Provider)
	}
	if c.Translation.Temperature < 0 || c.Translation.Temperature > 2 {
		return fmt.Errorf("invalid translation temperature: %f", c.Translation.Temperature)
	}
	if c.Translation.MaxTokens <= 0 {
		c.Translation.MaxTokens = 1024
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = 20
	}
	if c.Translation.DefaultTarget == "" {
		c.Translation.DefaultTarget = DefaultTargetLanguage
	}
	if _, err := language.Parse(c.Translation.DefaultTarget); err != nil {
		return fmt.Errorf("invalid default_target %q: %w", c.Translation.DefaultTarget, err)
	}

	// Fallback
	if c.Fallback.Endpoint == "" {
		c.Fallback.Endpoint = DefaultFallbackEndpoint
	}
	if c.Fallback.ClientID == "" {
		c.Fallback.ClientID = "gtx"
	}
	if c.Fallback.TimeoutSeconds <= 0 {
		c.Fallback.TimeoutSeconds = 10
	}

	// Pipeline
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 1
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("invalid pipeline workers: %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize == 0 {
		c.Pipeline.QueueSize = 4
	}
	if c.Pipeline.QueueSize < 0 {
		return fmt.Errorf("invalid pipeline queue_size: %d", c.Pipeline.QueueSize)
	}

	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	switch c.Capture.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("invalid capture sample_rate: %d (must be 8000, 16000, 32000 or 48000)", c.Capture.SampleRate)
	}
	if c.Capture.ListenTimeoutSecs == 0 {
		c.Capture.ListenTimeoutSecs = 5
	}
	if c.Capture.PhraseLimitSecs == 0 {
		c.Capture.PhraseLimitSecs = 10
	}
	if c.Capture.ListenTimeoutSecs < 0 || c.Capture.PhraseLimitSecs < 0 {
		return fmt.Errorf("capture timeouts must be positive")
	}
	if c.Capture.PauseMs == 0 {
		c.Capture.PauseMs = 800
	}
	if c.Capture.MinSpeechMs == 0 {
		c.Capture.MinSpeechMs = 250
	}
	if c.Capture.PauseMs < 0 || c.Capture.MinSpeechMs < 0 {
		return fmt.Errorf("capture pause_ms and min_speech_ms must be positive")
	}
	if c.Capture.VADMode == 0 {
		c.Capture.VADMode = 3
	}
	if c.Capture.VADMode < 0 || c.Capture.VADMode > 3 {
		return fmt.Errorf("invalid capture vad_mode: %d (must be 0-3)", c.Capture.VADMode)
	}
	if c.Capture.LoopDelayMs == 0 {
		c.Capture.LoopDelayMs = 100
	}
	if c.Capture.LoopDelayMs < 0 {
		return fmt.Errorf("invalid capture loop_delay_ms: %d", c.Capture.LoopDelayMs)
	}
	return nil
}

// ListenTimeout returns the silence timeout for one capture
func (c CaptureConfig) ListenTimeout() time.Duration {
	return time.Duration(c.ListenTimeoutSecs) * time.Second
}

// PhraseLimit returns the maximum utterance length
func (c CaptureConfig) PhraseLimit() time.Duration {
	return time.Duration(c.PhraseLimitSecs) * time.Second
}

// LoopDelay returns the pause between capture iterations
func (c CaptureConfig) LoopDelay() time.Duration {
	return time.Duration(c.LoopDelayMs) * time.Millisecond
}

// ResolveDataDir returns the first writable directory among the configured
// data_dir, the per-user config directory and the temp directory. An empty
// string means no candidate was writable and history must be disabled.
func (c *Config) ResolveDataDir() string {
	var candidates []string
	if c.Storage.DataDir != "" {
		candidates = append(candidates, c.Storage.DataDir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, appDirName))
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), appDirName))

	for _, dir := range candidates {
		if writable(dir) {
			return dir
		}
	}
	return ""
}

// HistoryPath returns the full database path, or "" when history is off
func (c *Config) HistoryPath() string {
	if c.Storage.Disabled {
		return ""
	}
	dir := c.ResolveDataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, c.Storage.DBFilename)
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
