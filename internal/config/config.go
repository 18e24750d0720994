package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		History: HistoryConfig{
			Limit: 30,
		},
		Model: ModelConfig{
			Provider: "ollama",
			ID:       "llama3.1",
			Endpoint: "http://localhost:11434",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
