// File: internal/infra/adapters/ai/registry.go
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/infra/metrics"
)

var _ adapter.AIGateway = (*Registry)(nil)

// Registry maps model identifiers to provider adapters. It is built once
// at process start from the configured credentials and read-only
// thereafter, so all workers may call it concurrently without locking.
type Registry struct {
	defaultProvider string
	byProvider      map[string]adapter.AIProvider
	modelToProvider map[string]string // explicit model -> provider mapping
	estimator       *TokenEstimator
	maxOut          int
	log             *zerolog.Logger
}

func NewRegistry(
	defaultProvider string,
	providers []adapter.AIProvider,
	modelToProvider map[string]string,
	maxOutputTokens int,
	logger *zerolog.Logger,
) *Registry {
	byProvider := make(map[string]adapter.AIProvider, len(providers))
	for _, p := range providers {
		byProvider[strings.ToLower(p.Name())] = p
	}
	l := logger.With().Str("component", "ai_registry").Logger()
	return &Registry{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
		estimator:       NewTokenEstimator(),
		maxOut:          maxOutputTokens,
		log:             &l,
	}
}

func (r *Registry) resolveProvider(model string) string {
	if p := r.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt") || strings.HasPrefix(l, "o1") || strings.HasPrefix(l, "o3"):
		return "openai"
	default:
		return r.defaultProvider
	}
}

func (r *Registry) pick(model string) adapter.AIProvider {
	if p := r.byProvider[r.resolveProvider(model)]; p != nil {
		return p
	}
	// last resort: first available
	for _, p := range r.byProvider {
		if p != nil {
			return p
		}
	}
	return nil
}

// Execute builds the task-type prompt, dispatches to the provider matching
// the model and normalizes the reply. Backend failures surface as tagged
// transient errors; retrying is the dispatcher's job, not the gateway's.
func (r *Registry) Execute(ctx context.Context, modelID string, req *adapter.AIRequest) (*adapter.AIResponse, error) {
	p := r.pick(modelID)
	if p == nil {
		return nil, domain.E(domain.KindValidation, "no provider available for model "+modelID, nil)
	}

	msgs := BuildMessages(req)
	start := time.Now()
	content, usage, err := p.Chat(ctx, modelID, msgs)
	latencyMs := int(time.Since(start) / time.Millisecond)

	if err != nil {
		metrics.ObserveAIUsage(p.Name(), modelID, 0, 0, 0, latencyMs, false)
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &domain.Error{
			Kind:     domain.KindTransientProvider,
			Provider: p.Name(),
			Msg:      "ai backend call failed",
			Err:      err,
		}
	}

	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	metrics.ObserveAIUsage(p.Name(), modelID, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latencyMs, true)
	r.log.Debug().Str("provider", p.Name()).Str("model", modelID).
		Int("tokens", usage.TotalTokens).Int("latency_ms", latencyMs).Msg("ai call completed")

	return &adapter.AIResponse{
		Content:  content,
		Usage:    usage,
		Provider: p.Name(),
		Model:    modelID,
	}, nil
}

// EstimateTokens gives the pre-flight token count used to compute the
// credit estimate before dispatch.
func (r *Registry) EstimateTokens(modelID, text string) int {
	return r.estimator.Count(modelID, text)
}
