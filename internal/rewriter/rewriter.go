package rewriter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/llm"
)

type Completer interface {
	Complete(ctx context.Context, p llm.Prompt) (string, error)
}

const instructions = `You are a women's safety assistant. Rewrite the user's query so it focuses on women's safety while keeping its original intent.
Consider:
- Personal safety concerns
- Emergency situations
- Legal rights and support
- Safety resources and services
- Prevention strategies
Make the query clear and specific for a database search. Reply with the rewritten query only.`

// Rewriter refocuses a relevant query before it is embedded.
type Rewriter struct {
	llm    Completer
	logger *zap.Logger
}

func New(completer Completer, logger *zap.Logger) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{llm: completer, logger: logger}
}

// Rewrite returns the model's rewrite, or text unchanged when the model
// returns nothing.
func (r *Rewriter) Rewrite(ctx context.Context, text string) (string, error) {
	out, err := r.llm.Complete(ctx, llm.Prompt{
		System:      instructions,
		User:        text,
		Temperature: 0.3,
		MaxTokens:   100,
	})
	if err != nil {
		return "", fmt.Errorf("rewriter: %w", err)
	}

	rewritten := strings.TrimSpace(out)
	if rewritten == "" {
		r.logger.Warn("Empty rewrite, using original query")
		return text, nil
	}
	r.logger.Info("Query rewritten", zap.String("rewritten", rewritten))
	return rewritten, nil
}
