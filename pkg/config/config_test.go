package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{APIKey: "key"}}
	cfg.SetDefaults()

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, cfg.LLM.Model, cfg.LLM.GraderModel)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)

	assert.Equal(t, "key", cfg.Embedder.APIKey, "embedder key should fall back to the LLM key")
	assert.Equal(t, "text-embedding-004", cfg.Embedder.Model)

	require.Len(t, cfg.Retrieval.Collections, 3)
	assert.Equal(t, "ip_laws", cfg.Retrieval.Collections[0].Name)
	assert.InDelta(t, 0.7, cfg.Retrieval.Collections[0].Weight, 1e-9)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.Retrieval.RerankKeep)

	assert.Equal(t, "https://api.tavily.com", cfg.Search.BaseURL)
	assert.Equal(t, 5, cfg.Search.MaxResults)

	assert.Equal(t, 2, cfg.Workflow.MaxGradingRetries)
	assert.Equal(t, 64, cfg.Workflow.MaxDocuments)

	assert.Equal(t, 2, cfg.Quiz.DefaultQuestions)
	assert.Equal(t, "MEDIUM", cfg.Quiz.DefaultDifficulty)
	assert.Equal(t, 4, cfg.Quiz.MaxToolCycles)
	assert.Equal(t, "outputs/quiz.txt", cfg.Quiz.ArtifactPath)

	assert.Equal(t, "smtp.gmail.com", cfg.Mail.SMTPHost)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "text", cfg.Logger.Format)
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		LLM:      LLMConfig{APIKey: "key", Model: "gemini-2.5-pro", GraderModel: "gemini-2.0-flash"},
		Embedder: EmbedderConfig{APIKey: "other-key"},
		Quiz:     QuizConfig{DefaultQuestions: 7},
	}
	cfg.SetDefaults()

	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.GraderModel)
	assert.Equal(t, "other-key", cfg.Embedder.APIKey)
	assert.Equal(t, 7, cfg.Quiz.DefaultQuestions)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{LLM: LLMConfig{APIKey: "key"}}
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.LLM.APIKey = "" },
			wantErr: "llm.api_key",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.LLM.Temperature = 3 },
			wantErr: "llm.temperature",
		},
		{
			name:    "unnamed collection",
			mutate:  func(c *Config) { c.Retrieval.Collections[1].Name = "" },
			wantErr: "collection name",
		},
		{
			name:    "non-positive weight",
			mutate:  func(c *Config) { c.Retrieval.Collections[0].Weight = 0 },
			wantErr: "weight must be positive",
		},
		{
			name: "weights exceed one",
			mutate: func(c *Config) {
				c.Retrieval.Collections = []CollectionConfig{
					{Name: "a", Weight: 0.8},
					{Name: "b", Weight: 0.5},
				}
			},
			wantErr: "must not exceed 1",
		},
		{
			name:    "negative grading retries",
			mutate:  func(c *Config) { c.Workflow.MaxGradingRetries = -1 },
			wantErr: "max_grading_retries",
		},
		{
			name:    "document cap below one",
			mutate:  func(c *Config) { c.Workflow.MaxDocuments = 0 },
			wantErr: "max_documents",
		},
		{
			name:    "unknown difficulty",
			mutate:  func(c *Config) { c.Quiz.DefaultDifficulty = "IMPOSSIBLE" },
			wantErr: "default_difficulty",
		},
		{
			name:    "tool cycles below one",
			mutate:  func(c *Config) { c.Quiz.MaxToolCycles = 0 },
			wantErr: "max_tool_cycles",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logger.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
llm:
  api_key: test-key
  model: gemini-2.5-pro
retrieval:
  top_k: 3
  collections:
    - name: ip_laws
      weight: 1.0
workflow:
  max_grading_retries: 1
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	require.Len(t, cfg.Retrieval.Collections, 1)
	assert.Equal(t, 1, cfg.Workflow.MaxGradingRetries)
	// Defaults still fill untouched sections.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("llm: [not a mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestParse_ValidationFailure(t *testing.T) {
	_, err := Parse([]byte("server:\n  addr: :9090\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.api_key")
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TUTOR_TEST_API_KEY", "from-env")
	os.Unsetenv("TUTOR_TEST_MODEL")

	data := []byte(`
llm:
  api_key: ${TUTOR_TEST_API_KEY}
  model: ${TUTOR_TEST_MODEL:-gemini-2.0-flash-lite}
`)

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.LLM.Model)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TUTOR_TEST_SET", "value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no references", "plain text", "plain text"},
		{"set variable", "x: ${TUTOR_TEST_SET}", "x: value"},
		{"unset variable", "x: ${TUTOR_TEST_UNSET_XYZ}", "x: "},
		{"set with default", "x: ${TUTOR_TEST_SET:-fallback}", "x: value"},
		{"unset with default", "x: ${TUTOR_TEST_UNSET_XYZ:-fallback}", "x: fallback"},
		{"lowercase not expanded", "x: ${notavar}", "x: ${notavar}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.input))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: file-key\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TUTOR_TEST_DOTENV=loaded\n"), 0644))
	t.Setenv("TUTOR_TEST_DOTENV", "")
	os.Unsetenv("TUTOR_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("TUTOR_TEST_DOTENV"))

	// A missing file is not an error.
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}
