package storage

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/xaenox/safechat/internal/models"
)

// MemoryStorage keeps documents in process and scores them with cosine
// similarity. It is meant for local runs and tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	docs []models.Document
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) TopMatch(ctx context.Context, vec []float32, threshold float64) (*models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.SearchResult
	for _, doc := range s.docs {
		sim := cosineSimilarity(vec, doc.Embedding)
		if sim <= threshold {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &models.SearchResult{
				Title:      doc.Title,
				Contents:   doc.Contents,
				Similarity: sim,
			}
		}
	}
	return best, nil
}

func (s *MemoryStorage) Insert(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("storage: document must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	stored.Embedding = append([]float32(nil), doc.Embedding...)
	s.docs = append(s.docs, stored)
	return nil
}

func (s *MemoryStorage) EnsureSchema(ctx context.Context) error {
	// Nothing to create for in-memory storage
	return nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
