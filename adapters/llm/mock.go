package llm

import (
	"context"

	"github.com/vendfleet/server/domain/repositories"
)

// MockModel is a canned-reply LanguageModel for tests and local development.
type MockModel struct {
	Reply string
	Err   error

	// Captured from the last Generate call.
	LastSystemInstruction string
	LastPrompt            string
}

// NewMockModel creates a mock model that always returns reply.
func NewMockModel(reply string) *MockModel {
	return &MockModel{Reply: reply}
}

var _ repositories.LanguageModel = (*MockModel)(nil)

// Generate implements repositories.LanguageModel.
func (m *MockModel) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	m.LastSystemInstruction = systemInstruction
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
