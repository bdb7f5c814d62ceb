package composer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/llm"
)

const (
	StrategyExtraction = "extraction"
	StrategyFocused    = "focused"
)

// Composer turns a retrieved document into the user-facing answer.
type Composer interface {
	// Compose returns a complete, post-processed answer.
	Compose(ctx context.Context, query, content string) (string, error)
	// Stream returns the answer as raw chunks without post-processing.
	Stream(ctx context.Context, query, content string) (llm.TokenStream, error)
	// NoMatch is the reply used when no document cleared the threshold.
	NoMatch() string
}

type LLM interface {
	Complete(ctx context.Context, p llm.Prompt) (string, error)
	Stream(ctx context.Context, p llm.Prompt) (llm.TokenStream, error)
}

// New returns the composer named by strategy.
func New(strategy string, model LLM, logger *zap.Logger) (Composer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case StrategyExtraction, "":
		return NewExtraction(model, logger), nil
	case StrategyFocused:
		return NewFocused(model, logger), nil
	default:
		return nil, fmt.Errorf("composer: unknown strategy %q", strategy)
	}
}

func userPrompt(query, content string) string {
	return fmt.Sprintf("Query: %s\nContent: %s", query, content)
}
