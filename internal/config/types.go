package config

// Config is the root configuration for the ezra daemon.
type Config struct {
	Socket   string        `yaml:"socket,omitempty"`   // unix socket path; empty means <base>/ezra.sock
	Database string        `yaml:"database,omitempty"` // sqlite file path; empty means <base>/data/ezra.db
	Prompt   string        `yaml:"prompt,omitempty"`   // system prompt override for new conversations
	History  HistoryConfig `yaml:"history,omitempty"`
	Model    ModelConfig   `yaml:"model,omitempty"`
	Logging  LoggingConfig `yaml:"logging,omitempty"`
}

// HistoryConfig bounds how much of a conversation is kept in play.
type HistoryConfig struct {
	Limit int `yaml:"limit,omitempty"` // newest messages hydrated and shown to the model
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	Provider string `yaml:"provider,omitempty"` // "ollama"
	ID       string `yaml:"id,omitempty"`       // model identifier, e.g. "llama3.1"
	Endpoint string `yaml:"endpoint,omitempty"` // backend base URL
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}
