package factory

import (
	"fmt"

	"evidence-intel-be/pkg/llm"
	"evidence-intel-be/pkg/llm/ollama"
)

// NewLLMProvider builds the configured LLM backend. Only ollama is wired for
// now; the provider interface keeps the synthesis layer backend-agnostic.
func NewLLMProvider(provider, model, ollamaBaseURL string) (llm.LLMProvider, error) {
	switch provider {
	case "ollama", "":
		return ollama.NewOllamaProvider(ollamaBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
