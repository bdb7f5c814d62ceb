package classifier

import (
	"context"
	"strings"
)

// Classification is the intent of an inbound message.
type Classification int

const (
	Unknown Classification = iota
	Greeting
	Relevant
	Irrelevant
	Inappropriate
)

func (c Classification) String() string {
	switch c {
	case Greeting:
		return "GREETING"
	case Relevant:
		return "RELEVANT"
	case Irrelevant:
		return "IRRELEVANT"
	case Inappropriate:
		return "INAPPROPRIATE"
	default:
		return "UNKNOWN"
	}
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Parse interprets raw model output. Only the first line counts; it is
// trimmed and upper-cased. Anything outside the known labels is Unknown.
func Parse(raw string) Classification {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	label := strings.Trim(strings.ToUpper(strings.TrimSpace(line)), ".!\"'`*")

	switch label {
	case "GREETING":
		return Greeting
	case "RELEVANT":
		return Relevant
	case "IRRELEVANT":
		return Irrelevant
	case "INAPPROPRIATE":
		return Inappropriate
	default:
		return Unknown
	}
}
