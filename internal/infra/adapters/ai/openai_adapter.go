package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIProvider = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIProvider over the official SDK's
// Chat Completions API.
type OpenAIAdapter struct {
	client openai.Client
	maxOut int
}

func NewOpenAIAdapter(apiKey string, maxOutputTokens int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		maxOut: maxOutputTokens,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(messages),
	}
	if o.maxOut > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxOut))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", adapter.Usage{}, o.classify(err)
	}

	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, usage, nil
		}
	}
	return "", usage, &domain.Error{
		Kind: domain.KindTransientProvider, Provider: o.Name(),
		Msg: "openai returned no choice content",
	}
}

func (o *OpenAIAdapter) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) && (apierr.StatusCode == 401 || apierr.StatusCode == 403) {
		return &domain.Error{Kind: domain.KindAuth, Provider: o.Name(), Msg: "openai rejected the credentials", Err: err}
	}
	return &domain.Error{Kind: domain.KindTransientProvider, Provider: o.Name(), Msg: "openai call failed", Err: err}
}

func toOpenAIMessages(messages []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
