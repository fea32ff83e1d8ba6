package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrCompleterNotConfigured is returned by NewResponsesCompleter when no API
// key is set.
var ErrCompleterNotConfigured = errors.New("assistant completer is not configured")

// ResponsesConfig configures a completer backed by an OpenAI-compatible
// responses endpoint.
type ResponsesConfig struct {
	URL        string       `env:"WORKSPACE_ASSISTANT_RESPONSES_URL" envDefault:"https://api.openai.com/v1/responses"`
	APIKey     string       `env:"WORKSPACE_ASSISTANT_API_KEY"`
	Model      string       `env:"WORKSPACE_ASSISTANT_MODEL" envDefault:"gpt-4o-mini"`
	HTTPClient *http.Client `env:"-"`
}

// ResponsesCompleter sends prompts to a responses endpoint.
type ResponsesCompleter struct {
	cfg ResponsesConfig
}

// NewResponsesCompleter validates cfg and returns a completer.
func NewResponsesCompleter(cfg ResponsesConfig) (*ResponsesCompleter, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrCompleterNotConfigured
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("responses url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &ResponsesCompleter{cfg: cfg}, nil
}

// Complete posts prompt and returns the first output text.
func (c *ResponsesCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read completion error body: %w", err)
		}
		return "", fmt.Errorf("completion request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if text := strings.TrimSpace(payload.OutputText); text != "" {
		return text, nil
	}
	for _, item := range payload.Output {
		for _, content := range item.Content {
			if text := strings.TrimSpace(content.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("completion response missing output text")
}
