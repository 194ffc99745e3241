package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main LabelSense configuration
type Config struct {
	// Gateway server
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// AI provider credentials and model settings
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Session lifecycle
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Analysis pipeline
	Pipeline PipelineConfig `json:"pipeline" mapstructure:"pipeline"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Port        int    `json:"port" mapstructure:"port"`
	Host        string `json:"host" mapstructure:"host"`
	MaxUploadMB int64  `json:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// AIConfig holds model provider configuration
type AIConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// SessionConfig holds session store settings
type SessionConfig struct {
	TTL           time.Duration `json:"ttl" mapstructure:"ttl"`
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval"`
	HistoryLimit  int           `json:"history_limit" mapstructure:"history_limit"`
}

// PipelineConfig holds analysis pipeline settings
type PipelineConfig struct {
	IngredientLimit   int      `json:"ingredient_limit" mapstructure:"ingredient_limit"`
	AllowedMediaTypes []string `json:"allowed_media_types" mapstructure:"allowed_media_types"`
	PromptDir         string   `json:"prompt_dir" mapstructure:"prompt_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			MaxUploadMB: 8,
		},
		AI: AIConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: 5 * time.Minute,
			HistoryLimit:  10,
		},
		Pipeline: PipelineConfig{
			IngredientLimit: 10,
			AllowedMediaTypes: []string{
				"image/jpeg",
				"image/png",
				"image/webp",
				"image/gif",
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
	}

	if c.AI.Provider != "anthropic" && c.AI.Provider != "openai" {
		return fmt.Errorf("invalid AI provider %q (must be: anthropic, openai)", c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI api_key is required")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("AI model is required")
	}

	v := NewValidator()
	if err := v.ValidateAPIKey(c.AI.APIKey, c.AI.Provider); err != nil {
		return err
	}
	if err := v.ValidateTemperature(c.AI.Temperature); err != nil {
		return err
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("AI max_tokens must be positive, got %d", c.AI.MaxTokens)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.Session.TTL)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep interval must be positive, got %s", c.Session.SweepInterval)
	}
	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("session history limit must be positive, got %d", c.Session.HistoryLimit)
	}

	if c.Pipeline.IngredientLimit <= 0 {
		return fmt.Errorf("pipeline ingredient limit must be positive, got %d", c.Pipeline.IngredientLimit)
	}
	if len(c.Pipeline.AllowedMediaTypes) == 0 {
		return fmt.Errorf("at least one allowed media type is required")
	}

	return nil
}
