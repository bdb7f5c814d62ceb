package router

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/classifier"
	"github.com/xaenox/safechat/internal/composer"
	"github.com/xaenox/safechat/internal/llm"
	"github.com/xaenox/safechat/internal/models"
)

// UnknownPolicy decides how a message with an unrecognized classification
// is handled.
type UnknownPolicy string

const (
	// FailOpen answers unknown messages as if they were relevant.
	FailOpen UnknownPolicy = "open"
	// FailClosed declines unknown messages like irrelevant ones.
	FailClosed UnknownPolicy = "closed"
)

func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch UnknownPolicy(s) {
	case FailOpen, "":
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("router: unknown policy %q", s)
	}
}

type Classifier interface {
	Classify(ctx context.Context, text string) (classifier.Classification, error)
}

type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

// Reply carries exactly one of Text or Stream. A non-nil Stream must be
// closed by the caller.
type Reply struct {
	Classification classifier.Classification
	Text           string
	Stream         llm.TokenStream
}

func (r Reply) Streaming() bool {
	return r.Stream != nil
}

type Router struct {
	classifier    Classifier
	rewriter      Rewriter
	searcher      Searcher
	composer      composer.Composer
	unknownPolicy UnknownPolicy
	pick          func(n int) int
	logger        *zap.Logger
}

type Option func(*Router)

// WithPicker replaces the random index source used for canned responses.
func WithPicker(pick func(n int) int) Option {
	return func(r *Router) {
		r.pick = pick
	}
}

func WithUnknownPolicy(p UnknownPolicy) Option {
	return func(r *Router) {
		r.unknownPolicy = p
	}
}

func New(c Classifier, rw Rewriter, s Searcher, comp composer.Composer, logger *zap.Logger, opts ...Option) (*Router, error) {
	if c == nil {
		return nil, errors.New("router: classifier must not be nil")
	}
	if rw == nil {
		return nil, errors.New("router: rewriter must not be nil")
	}
	if s == nil {
		return nil, errors.New("router: searcher must not be nil")
	}
	if comp == nil {
		return nil, errors.New("router: composer must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		classifier:    c,
		rewriter:      rw,
		searcher:      s,
		composer:      comp,
		unknownPolicy: FailOpen,
		pick:          rand.Intn,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Handle classifies msg and produces its reply. Canned and no-match replies
// are always buffered; only a composed answer to a streaming request is
// returned as a stream.
func (r *Router) Handle(ctx context.Context, msg models.ChatMessage) (Reply, error) {
	r.logger.Debug("Chat message received", zap.Bool("stream", msg.Stream))

	classification, err := r.classifier.Classify(ctx, msg.Text)
	if err != nil {
		return Reply{}, fmt.Errorf("router: classify: %w", err)
	}

	switch classification {
	case classifier.Greeting:
		return r.canned(classification, Greetings), nil
	case classifier.Irrelevant:
		return r.canned(classification, Declines), nil
	case classifier.Inappropriate:
		return r.canned(classification, Refusals), nil
	case classifier.Unknown:
		if r.unknownPolicy == FailClosed {
			r.logger.Info("Declining message with unknown classification")
			return r.canned(classification, Declines), nil
		}
	}

	return r.answer(ctx, classification, msg)
}

func (r *Router) canned(c classifier.Classification, set []string) Reply {
	r.logger.Info("Responding with canned reply", zap.Stringer("classification", c))
	return Reply{Classification: c, Text: set[r.pick(len(set))]}
}

func (r *Router) answer(ctx context.Context, c classifier.Classification, msg models.ChatMessage) (Reply, error) {
	query, err := r.rewriter.Rewrite(ctx, msg.Text)
	if err != nil {
		return Reply{}, fmt.Errorf("router: rewrite: %w", err)
	}

	result, err := r.searcher.Search(ctx, query)
	if err != nil {
		return Reply{}, fmt.Errorf("router: search: %w", err)
	}
	if result == nil {
		return Reply{Classification: c, Text: r.composer.NoMatch()}, nil
	}

	if msg.Stream {
		stream, err := r.composer.Stream(ctx, msg.Text, result.Contents)
		if err != nil {
			return Reply{}, fmt.Errorf("router: compose stream: %w", err)
		}
		return Reply{Classification: c, Stream: stream}, nil
	}

	answer, err := r.composer.Compose(ctx, msg.Text, result.Contents)
	if err != nil {
		return Reply{}, fmt.Errorf("router: compose: %w", err)
	}
	if answer == composer.NoInformationSentinel {
		r.logger.Info("No specific information found in matched document", zap.String("title", result.Title))
		return Reply{Classification: c, Text: NoInformationApology}, nil
	}
	return Reply{Classification: c, Text: answer}, nil
}
