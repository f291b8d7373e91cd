package model

import "time"

// ModelPricing holds the per-model credit rate used both for the advisory
// pre-flight estimate and for settlement after execution.
type ModelPricing struct {
	ID                 string
	ModelName          string
	InputCreditsPer1K  int64
	OutputCreditsPer1K int64
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Cost converts token usage to credits, rounding up so fractional usage is
// never billed as zero.
func (p *ModelPricing) Cost(promptTokens, completionTokens int) int64 {
	in := int64(promptTokens) * p.InputCreditsPer1K
	out := int64(completionTokens) * p.OutputCreditsPer1K
	return (in + out + 999) / 1000
}
