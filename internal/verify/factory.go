package verify

import (
	"fmt"
	"log/slog"

	"github.com/0xknstntn/news-checker/internal/llm"
)

// NewStrategy returns the named strategy. "llm" needs a provider.
func NewStrategy(name string, provider llm.Provider, logger *slog.Logger) (Strategy, error) {
	authority := NewAuthorityClassifier(nil)
	switch name {
	case "", "heuristic":
		return NewHeuristicStrategy(authority), nil
	case "llm":
		if provider == nil {
			return nil, fmt.Errorf("strategy llm requires an llm provider")
		}
		return NewLLMStrategy(provider, authority, logger), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
