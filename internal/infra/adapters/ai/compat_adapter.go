package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIProvider = (*CompatAdapter)(nil)

// CompatAdapter talks to any OpenAI-compatible gateway (self-hosted proxy,
// alternative vendor) over plain HTTP. Chat completions path is the same as
// OpenAI: /chat/completions, Authorization: Bearer <key>.
type CompatAdapter struct {
	apiKey string
	base   string
	maxOut int
	client *http.Client
}

func NewCompatAdapter(apiKey, baseURL string, maxOutputTokens int) (*CompatAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("compat api key empty")
	}
	if baseURL == "" {
		return nil, errors.New("compat base url empty")
	}
	return &CompatAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(baseURL, "/"),
		maxOut: maxOutputTokens,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (c *CompatAdapter) Name() string { return "compat" }

func (c *CompatAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	reqBody := struct {
		Model     string            `json:"model"`
		Messages  []adapter.Message `json:"messages"`
		MaxTokens int               `json:"max_tokens,omitempty"`
	}{Model: model, Messages: messages, MaxTokens: c.maxOut}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", adapter.Usage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", adapter.Usage{}, &domain.Error{
			Kind: domain.KindTransientProvider, Provider: c.Name(),
			Msg: "compat gateway unreachable", Err: err,
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", adapter.Usage{}, &domain.Error{
			Kind: domain.KindAuth, Provider: c.Name(),
			Msg: fmt.Sprintf("compat gateway rejected the credentials (http %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode >= 300 {
		return "", adapter.Usage{}, &domain.Error{
			Kind: domain.KindTransientProvider, Provider: c.Name(),
			Msg: fmt.Sprintf("compat gateway http %d", resp.StatusCode),
		}
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", adapter.Usage{}, &domain.Error{
			Kind: domain.KindTransientProvider, Provider: c.Name(),
			Msg: "compat gateway returned malformed json", Err: err,
		}
	}
	usage := adapter.Usage{
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}
	for _, ch := range payload.Choices {
		if ch.Message.Content != "" {
			return ch.Message.Content, usage, nil
		}
	}
	return "", usage, &domain.Error{
		Kind: domain.KindTransientProvider, Provider: c.Name(),
		Msg: "compat gateway returned no choice content",
	}
}
