package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator counts tokens for the pre-flight credit estimate.
// Encodings are resolved per model and cached; models tiktoken does not
// know fall back to the usual four-characters-per-token heuristic.
type TokenEstimator struct {
	mu    sync.Mutex
	cache map[string]*tiktoken.Tiktoken
}

func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{cache: make(map[string]*tiktoken.Tiktoken)}
}

func (e *TokenEstimator) Count(model, text string) int {
	if text == "" {
		return 0
	}
	enc := e.encodingFor(model)
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (e *TokenEstimator) encodingFor(model string) *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()
	if enc, ok := e.cache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	e.cache[model] = enc
	return enc
}
