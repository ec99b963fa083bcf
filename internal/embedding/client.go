package embedding

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig points the client at an OpenAI-compatible endpoint such as
// Ollama's http://localhost:11434/v1/.
type ClientConfig struct {
	BaseURL string
	APIKey  string
}

// Client wraps the OpenAI client shared by embedding and chat generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a client for the configured endpoint. Ollama ignores the
// API key but the SDK still sends one, so an empty key is rejected.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("embedding: API key is required (use any value for Ollama)")
	}

	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., study plan generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
