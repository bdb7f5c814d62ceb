package composer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/llm"
)

// EmergencyContacts is appended to every focused answer.
const EmergencyContacts = `

Emergency Contacts:
- Police: 100
- National Emergency Number: 112
- Women Helpline: 1091
- Domestic Abuse Helpline: 181
- National Commission for Women: 7827170170`

const focusedNoMatchLead = `I couldn't find specific information about that in my database. Some general safety advice:
- Trust your instincts and move to a crowded, well-lit place if you feel unsafe.
- Share your live location with someone you trust.
- Keep your phone charged and emergency numbers on speed dial.`

const focusedInstructions = `You are a women's safety assistant. Answer the user's query using only the provided database content.
Rules:
1. Keep the answer short and focused on the query
2. Use bullet points for steps, tips or contacts
3. Do not invent facts, numbers or organizations that are not in the content
4. Lead with the most urgent, actionable advice`

// Focused answers with a short bulleted summary grounded in the retrieved
// content, always followed by the emergency contacts.
type Focused struct {
	llm    LLM
	logger *zap.Logger
}

func NewFocused(model LLM, logger *zap.Logger) *Focused {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Focused{llm: model, logger: logger}
}

func (f *Focused) prompt(query, content string) llm.Prompt {
	return llm.Prompt{
		System:      focusedInstructions,
		User:        userPrompt(query, content),
		Temperature: 0.3,
		MaxTokens:   500,
	}
}

func (f *Focused) Compose(ctx context.Context, query, content string) (string, error) {
	out, err := f.llm.Complete(ctx, f.prompt(query, content))
	if err != nil {
		return "", fmt.Errorf("composer: focused: %w", err)
	}
	return strings.TrimSpace(out) + EmergencyContacts, nil
}

func (f *Focused) Stream(ctx context.Context, query, content string) (llm.TokenStream, error) {
	stream, err := f.llm.Stream(ctx, f.prompt(query, content))
	if err != nil {
		return nil, fmt.Errorf("composer: focused stream: %w", err)
	}
	return llm.Concat(stream, llm.NewStaticStream(EmergencyContacts)), nil
}

func (f *Focused) NoMatch() string {
	return focusedNoMatchLead + EmergencyContacts
}
