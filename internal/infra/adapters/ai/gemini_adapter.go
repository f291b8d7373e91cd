// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/ports/adapter"
)

var _ adapter.AIProvider = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client *genai.Client
	maxOut int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL string, maxOutputTokens int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, maxOut: maxOutputTokens}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, domain.E(domain.KindValidation, "gemini: no messages", nil)
	}
	history := toGenAIHistory(messages[:len(messages)-1])

	chat, err := g.client.Chats.Create(
		ctx,
		model,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		history,
	)
	if err != nil {
		return "", adapter.Usage{}, g.wrap(err)
	}

	last := messages[len(messages)-1]
	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return "", adapter.Usage{}, g.wrap(err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	u := adapter.Usage{}
	if resp != nil && resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if text == "" {
		return "", u, &domain.Error{
			Kind: domain.KindTransientProvider, Provider: g.Name(),
			Msg: "gemini returned no candidate text",
		}
	}
	return text, u, nil
}

func (g *GeminiAdapter) wrap(err error) error {
	return &domain.Error{
		Kind: domain.KindTransientProvider, Provider: g.Name(),
		Msg: "gemini call failed", Err: err,
	}
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			// Gemini has no separate system role in history; carry the
			// instruction as a user turn.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
