package ai

import (
	"errors"

	"github.com/chartlyhq/chartly/internal/profile"
)

// Config represents the LLM gateway configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewConfigFromProfile creates gateway config from the server profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		APIKey:      p.OpenAIAPIKey,
		BaseURL:     p.OpenAIBaseURL,
		Model:       p.OpenAIModel,
		MaxTokens:   1000,
		Temperature: 0.7,
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	return nil
}
