package adapter

import (
	"context"

	"ai-coding-tasks/internal/domain/model"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single call, as reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FileContext is one repository file serialized into a request.
type FileContext struct {
	Path    string
	Content string
}

// AIRequest is the transient contract handed to the gateway. It is not
// persisted; the response content and token count end up in a Result.
type AIRequest struct {
	Type       model.TaskType
	Prompt     string
	RepoOwner  string
	RepoName   string
	Branch     string
	Files      []FileContext
	DirListing []string
}

// AIResponse is the uniform reply shape every provider is normalized into.
type AIResponse struct {
	Content  string
	Usage    Usage
	Provider string
	Model    string
}

// AIProvider is one backend adapter. Network failures and non-2xx replies
// surface as tagged transient errors carrying the provider name; the
// adapter itself never retries.
type AIProvider interface {
	Name() string
	Chat(ctx context.Context, model string, messages []Message) (string, Usage, error)
}

// AIGateway is the uniform entry point the dispatcher talks to. The
// registry behind it is built once at start-up and read-only afterwards,
// safe for concurrent use by all workers.
type AIGateway interface {
	Execute(ctx context.Context, modelID string, req *AIRequest) (*AIResponse, error)
	EstimateTokens(modelID, text string) int
}
