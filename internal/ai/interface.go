package ai

import (
	"context"
)

// BriefProvider defines the contract for generating dispatch briefs.
// This interface allows swapping different AI providers (Gemini, OpenAI, etc.) in the future.
type BriefProvider interface {
	// TripBrief summarizes a trip and its request history into a short
	// plain-text note an approver can read before deciding.
	TripBrief(ctx context.Context, input BriefInput) (string, error)
}
