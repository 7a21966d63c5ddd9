package repositories

import "context"

// LanguageModel abstracts the external text-completion provider used for
// recommendations and analytics insights.
type LanguageModel interface {
	// Generate sends a prompt under a system instruction and returns the raw
	// model reply. The context bounds the round trip.
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
}
