package composer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/llm"
)

const (
	// NoInformationSentinel is what the extraction prompt asks the model to
	// return when the content does not answer the query.
	NoInformationSentinel = "No specific information found in the database."

	TruncationSuffix = "... (Some information may be incomplete. Please ask for more specific details.)"

	extractionNoMatch = "I apologize, but I don't have any information about that in my database. Please try asking a different question about women's safety."
)

const extractionInstructions = `Extract ONLY the portions of the provided database content that directly answer the user's safety-related query.
Rules:
1. Use only text that exists in the provided content
2. Do not generate new text or explanations
3. Do not modify or rephrase the content
4. Separate multiple relevant portions with newlines
5. If nothing in the content is relevant, return "` + NoInformationSentinel + `"
6. Do not add context or commentary
7. Never cut off mid-sentence or mid-paragraph
8. Prefer the most relevant information
9. Prioritize actionable safety information and emergency procedures
10. Make sure the information is complete and not truncated`

// Extraction answers with verbatim spans of the retrieved content.
type Extraction struct {
	llm    LLM
	logger *zap.Logger
}

func NewExtraction(model LLM, logger *zap.Logger) *Extraction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extraction{llm: model, logger: logger}
}

func (e *Extraction) prompt(query, content string) llm.Prompt {
	return llm.Prompt{
		System:      extractionInstructions,
		User:        userPrompt(query, content),
		Temperature: 0,
		MaxTokens:   1000,
	}
}

func (e *Extraction) Compose(ctx context.Context, query, content string) (string, error) {
	out, err := e.llm.Complete(ctx, e.prompt(query, content))
	if err != nil {
		return "", fmt.Errorf("composer: extract: %w", err)
	}
	if out == "" {
		return NoInformationSentinel, nil
	}
	if looksTruncated(out) {
		e.logger.Warn("Extracted content appears cut off")
		return out + TruncationSuffix, nil
	}
	return out, nil
}

func (e *Extraction) Stream(ctx context.Context, query, content string) (llm.TokenStream, error) {
	stream, err := e.llm.Stream(ctx, e.prompt(query, content))
	if err != nil {
		return nil, fmt.Errorf("composer: extract stream: %w", err)
	}
	return stream, nil
}

func (e *Extraction) NoMatch() string {
	return extractionNoMatch
}

func looksTruncated(s string) bool {
	if s == "" {
		return false
	}
	return !strings.HasSuffix(s, ".") &&
		!strings.HasSuffix(s, "!") &&
		!strings.HasSuffix(s, "?") &&
		!strings.HasSuffix(s, "\n")
}
