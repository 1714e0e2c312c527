package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docqa/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"DOCQA_RUNTIME_PATH" envDefault:".docqa"`

	// Language model
	Provider   string        `env:"LLM_PROVIDER" envDefault:"ollama"`
	Model      string        `env:"LLM_MODEL" envDefault:"gemma3:1b"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`

	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`

	// Transport Flags
	EnableTelegram   bool   `env:"ENABLE_TELEGRAM" envDefault:"false"`
	MetricsAddr      string `env:"METRICS_ADDR"`
	RecordTranscript bool   `env:"RECORD_TRANSCRIPT" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := LoadAppConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func LoadAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	c.RuntimePath = ResolveRuntimePath(c.RuntimePath)
	return c, nil
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "docqa.db")
}

// GetDownloadPath is where harvested PDFs land.
func (c AppConfig) GetDownloadPath() string {
	return filepath.Join(c.RuntimePath, "pdfs")
}

// GetDocumentsPath is where converted text documents land.
func (c AppConfig) GetDocumentsPath() string {
	return filepath.Join(c.RuntimePath, "documents")
}

func (c AppConfig) GetMetricsAddr() string {
	return c.MetricsAddr
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}

func (c AppConfig) GetProvider() string {
	return c.Provider
}

func (c AppConfig) GetModel() string {
	return c.Model
}

func (c AppConfig) GetLLMTimeout() time.Duration {
	return c.LLMTimeout
}

func (c AppConfig) GetAnthropicAPIKey() string {
	return c.AnthropicAPIKey
}

func (c AppConfig) GetOpenAIAPIKey() string {
	return c.OpenAIAPIKey
}

func (c AppConfig) GetOpenRouterAPIKey() string {
	return c.OpenRouterAPIKey
}

func (c AppConfig) GetOllamaAPIKey() string {
	return c.OllamaAPIKey
}

func (c AppConfig) GetOllamaBaseURL() string {
	return c.OllamaBaseURL
}

func (c AppConfig) GetCustomOpenAIBaseURL() string {
	return c.CustomOpenAIBaseURL
}

func (c AppConfig) GetCustomOpenAIAPIKey() string {
	return c.CustomOpenAIAPIKey
}
