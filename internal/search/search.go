package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/models"
)

// DefaultThreshold is the minimum cosine similarity for a document to count
// as a match.
const DefaultThreshold = 0.8

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Matcher interface {
	TopMatch(ctx context.Context, vec []float32, threshold float64) (*models.SearchResult, error)
}

type Searcher struct {
	embedder  Embedder
	store     Matcher
	threshold float64
	logger    *zap.Logger
}

// NewSearcher validates the threshold, which must lie in (0, 1]. A zero
// threshold selects DefaultThreshold.
func NewSearcher(embedder Embedder, store Matcher, threshold float64, logger *zap.Logger) (*Searcher, error) {
	if embedder == nil {
		return nil, errors.New("search: embedder must not be nil")
	}
	if store == nil {
		return nil, errors.New("search: store must not be nil")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		logger:    logger,
	}, nil
}

func ValidateThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("search: threshold %v out of range (0, 1]", threshold)
	}
	return nil
}

func (s *Searcher) Threshold() float64 {
	return s.threshold
}

// Search returns the best document for query, or nil when none clears the
// threshold. Store failures, including a missing configuration, are returned
// as errors and never reported as an empty result.
func (s *Searcher) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	result, err := s.store.TopMatch(ctx, vec, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("search: top match: %w", err)
	}
	if result == nil {
		s.logger.Info("No matching documents found above threshold", zap.Float64("threshold", s.threshold))
		return nil, nil
	}

	s.logger.Info("Found matching document",
		zap.String("title", result.Title),
		zap.Float64("similarity", result.Similarity))
	return result, nil
}
