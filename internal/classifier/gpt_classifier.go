package classifier

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

type GPTClassifier struct {
	llm                  Completer
	includeInappropriate bool
	logger               *zap.Logger
}

// NewGPTClassifier builds a classifier backed by a chat model. When
// includeInappropriate is false the model is only offered greeting,
// relevant and irrelevant labels.
func NewGPTClassifier(completer Completer, includeInappropriate bool, logger *zap.Logger) *GPTClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPTClassifier{
		llm:                  completer,
		includeInappropriate: includeInappropriate,
		logger:               logger,
	}
}

func (c *GPTClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	raw, err := c.llm.Complete(ctx, llm.Prompt{
		System:      c.instructions(),
		User:        text,
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return Unknown, fmt.Errorf("classifier: %w", err)
	}

	classification := Parse(raw)
	if classification == Unknown {
		c.logger.Warn("Unrecognized classification from model", zap.String("raw", raw))
	} else {
		c.logger.Info("Query classified", zap.Stringer("classification", classification))
	}
	return classification, nil
}

var safetyTopics = []string{
	"Personal safety and security",
	"Harassment prevention and response",
	"Emergency situations and procedures",
	"Self-defense techniques",
	"Legal rights and support",
	"Support services and resources",
	"NGOs (non-governmental organizations) and their contact numbers",
	"Safety while traveling",
	"Workplace safety",
	"Domestic violence",
	"Cybersecurity and online safety",
}

func (c *GPTClassifier) instructions() string {
	var b strings.Builder
	b.WriteString("You are a women's safety assistant. Decide which category the user's message belongs to:\n\n")
	b.WriteString("1. A greeting or casual message (such as \"hello\", \"thank you\", \"goodbye\")\n")
	b.WriteString("2. A question about women's safety, including:\n")
	for _, topic := range safetyTopics {
		b.WriteString("   - " + topic + "\n")
	}
	if c.includeInappropriate {
		b.WriteString("3. Inappropriate or harmful content\n")
		b.WriteString("4. Anything unrelated to women's safety\n")
	} else {
		b.WriteString("3. Anything unrelated to women's safety\n")
	}

	b.WriteString("\nAnswer with exactly one word:\n")
	b.WriteString("GREETING - category 1\n")
	b.WriteString("RELEVANT - category 2\n")
	if c.includeInappropriate {
		b.WriteString("INAPPROPRIATE - category 3\n")
		b.WriteString("IRRELEVANT - category 4")
	} else {
		b.WriteString("IRRELEVANT - category 3")
	}
	return b.String()
}
