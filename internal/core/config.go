package core

import "time"

type AppConfig interface {
	GetRuntimePath() string
	GetDatabasePath() string
	GetDownloadPath() string
	GetDocumentsPath() string
	GetMetricsAddr() string
}

type ProviderConfig interface {
	GetProvider() string
	GetModel() string
	GetLLMTimeout() time.Duration
	GetAnthropicAPIKey() string
	GetOpenAIAPIKey() string
	GetOpenRouterAPIKey() string
	GetOllamaAPIKey() string
	GetOllamaBaseURL() string
	GetCustomOpenAIBaseURL() string
	GetCustomOpenAIAPIKey() string
}

type EmbeddingConfig interface {
	GetEmbeddingProvider() string
	GetEmbeddingModel() string
	GetEmbeddingBaseURL() string
	GetEmbeddingAPIKey() string
	GetQueryPrefix() string
	GetPassagePrefix() string
}

type TelegramConfig interface {
	GetTelegramToken() string
	GetTelegramOwnerID() int64
}
