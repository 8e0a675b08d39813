// Package config provides the explicit configuration structure for the tutor.
//
// Every recognized option and its effect is enumerated here; there is no
// free-form keyword configuration. Values load from a YAML file with
// ${VAR} / ${VAR:-default} environment expansion, optionally preceded by a
// .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the tutor service.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Search    SearchConfig    `yaml:"search"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Quiz      QuizConfig      `yaml:"quiz"`
	Mail      MailConfig      `yaml:"mail"`
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// LLMConfig configures the generation model.
type LLMConfig struct {
	// APIKey for the Gemini API (required).
	APIKey string `yaml:"api_key"`

	// Model name. Default: gemini-2.0-flash.
	Model string `yaml:"model,omitempty"`

	// GraderModel is used for the single-shot decision classifiers.
	// Defaults to Model when empty.
	GraderModel string `yaml:"grader_model,omitempty"`

	// Temperature controls randomness (0-2). Default: 0.
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxTokens limits response length. Default: 2048.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout is the deadline applied to every model call.
	// Default: 60s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	// APIKey defaults to LLM.APIKey when empty.
	APIKey string `yaml:"api_key,omitempty"`

	// Model name. Default: text-embedding-004.
	Model string `yaml:"model,omitempty"`

	// Timeout is the deadline applied to every embedding call. Default: 30s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CollectionConfig names one document collection and its ensemble weight.
type CollectionConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// RetrievalConfig configures the ensemble retrieval coordinator.
type RetrievalConfig struct {
	// Collections to merge, with fixed per-collection weights.
	// Default: ip_laws 0.7, ip_laws_extended 0.2, ip_laws_hindi 0.1.
	Collections []CollectionConfig `yaml:"collections,omitempty"`

	// TopK results per collection. Default: 10.
	TopK int `yaml:"top_k,omitempty"`

	// Rerank enables the LLM reranking/compression stage. Default: false.
	Rerank bool `yaml:"rerank,omitempty"`

	// RerankKeep is how many passages survive reranking. Default: 5.
	RerankKeep int `yaml:"rerank_keep,omitempty"`

	// PersistPath for the embedded vector store. Empty keeps vectors in
	// memory only.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Timeout is the deadline applied to every retrieval. Default: 30s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SearchConfig configures the external web search capability.
type SearchConfig struct {
	// APIKey for the search API (required when search is reachable in the
	// graph; validation does not force it so offline runs still work).
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL of the search API. Default: https://api.tavily.com.
	BaseURL string `yaml:"base_url,omitempty"`

	// MaxResults per search. Default: 5.
	MaxResults int `yaml:"max_results,omitempty"`

	// Timeout is the deadline applied to every search call. Default: 30s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// WorkflowConfig configures the turn-level workflow engine.
type WorkflowConfig struct {
	// MaxGradingRetries bounds the web_search -> generate -> grade loop.
	// Counted per turn after the first generation. Default: 2.
	MaxGradingRetries int `yaml:"max_grading_retries,omitempty"`

	// MaxDocuments caps the per-execution accumulated document sequence.
	// Appending beyond the cap drops the oldest fragments. Default: 64.
	MaxDocuments int `yaml:"max_documents,omitempty"`
}

// QuizConfig configures the quiz sub-agent.
type QuizConfig struct {
	// DefaultQuestions when the request does not state a count. Default: 2.
	DefaultQuestions int `yaml:"default_questions,omitempty"`

	// DefaultDifficulty when the request does not state one explicitly.
	// Default: MEDIUM.
	DefaultDifficulty string `yaml:"default_difficulty,omitempty"`

	// MaxToolCycles bounds the act/observe loop. Default: 4.
	MaxToolCycles int `yaml:"max_tool_cycles,omitempty"`

	// ArtifactPath is the fixed location of the rendered quiz artifact,
	// overwritten on every generation. Default: outputs/quiz.txt.
	ArtifactPath string `yaml:"artifact_path,omitempty"`
}

// MailConfig configures outbound quiz delivery.
type MailConfig struct {
	// SMTPHost of the mail relay. Default: smtp.gmail.com.
	SMTPHost string `yaml:"smtp_host,omitempty"`

	// SMTPPort of the mail relay. Default: 587.
	SMTPPort int `yaml:"smtp_port,omitempty"`

	// From address, also used as the login user.
	From string `yaml:"from,omitempty"`

	// Password for SMTP auth.
	Password string `yaml:"password,omitempty"`

	// Timeout is the deadline applied to one whole send operation.
	// Default: 30s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ServerConfig configures the HTTP chat endpoint.
type ServerConfig struct {
	// Addr to listen on. Default: :8080.
	Addr string `yaml:"addr,omitempty"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty"`

	// File receives the logs; empty means stderr.
	File string `yaml:"file,omitempty"`

	// Format is "text" or "json". Default: text.
	Format string `yaml:"format,omitempty"`
}

// DefaultCollections mirror the source corpus layout and its ensemble weights.
func DefaultCollections() []CollectionConfig {
	return []CollectionConfig{
		{Name: "ip_laws", Weight: 0.7},
		{Name: "ip_laws_extended", Weight: 0.2},
		{Name: "ip_laws_hindi", Weight: 0.1},
	}
}

// SetDefaults applies default values to the whole tree.
func (c *Config) SetDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.0-flash"
	}
	if c.LLM.GraderModel == "" {
		c.LLM.GraderModel = c.LLM.Model
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}

	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = c.LLM.APIKey
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "text-embedding-004"
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 30 * time.Second
	}

	if len(c.Retrieval.Collections) == 0 {
		c.Retrieval.Collections = DefaultCollections()
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 10
	}
	if c.Retrieval.RerankKeep == 0 {
		c.Retrieval.RerankKeep = 5
	}
	if c.Retrieval.Timeout == 0 {
		c.Retrieval.Timeout = 30 * time.Second
	}

	if c.Search.BaseURL == "" {
		c.Search.BaseURL = "https://api.tavily.com"
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 5
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 30 * time.Second
	}

	if c.Workflow.MaxGradingRetries == 0 {
		c.Workflow.MaxGradingRetries = 2
	}
	if c.Workflow.MaxDocuments == 0 {
		c.Workflow.MaxDocuments = 64
	}

	if c.Quiz.DefaultQuestions == 0 {
		c.Quiz.DefaultQuestions = 2
	}
	if c.Quiz.DefaultDifficulty == "" {
		c.Quiz.DefaultDifficulty = "MEDIUM"
	}
	if c.Quiz.MaxToolCycles == 0 {
		c.Quiz.MaxToolCycles = 4
	}
	if c.Quiz.ArtifactPath == "" {
		c.Quiz.ArtifactPath = "outputs/quiz.txt"
	}

	if c.Mail.SMTPHost == "" {
		c.Mail.SMTPHost = "smtp.gmail.com"
	}
	if c.Mail.SMTPPort == 0 {
		c.Mail.SMTPPort = 587
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 30 * time.Second
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}

	var total float64
	for _, col := range c.Retrieval.Collections {
		if col.Name == "" {
			return fmt.Errorf("retrieval collection name cannot be empty")
		}
		if col.Weight <= 0 {
			return fmt.Errorf("retrieval collection %q weight must be positive", col.Name)
		}
		total += col.Weight
	}
	if total > 1.0001 {
		return fmt.Errorf("retrieval collection weights sum to %v, must not exceed 1", total)
	}

	if c.Workflow.MaxGradingRetries < 0 {
		return fmt.Errorf("workflow.max_grading_retries cannot be negative")
	}
	if c.Workflow.MaxDocuments < 1 {
		return fmt.Errorf("workflow.max_documents must be at least 1")
	}

	switch c.Quiz.DefaultDifficulty {
	case "EASY", "MEDIUM", "HARD":
	default:
		return fmt.Errorf("quiz.default_difficulty must be EASY, MEDIUM or HARD, got %q", c.Quiz.DefaultDifficulty)
	}
	if c.Quiz.MaxToolCycles < 1 {
		return fmt.Errorf("quiz.max_tool_cycles must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Logger.Level)
	}

	return nil
}

// Load reads a YAML config file, expands environment variables, applies
// defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes with env expansion, defaults and validation.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
