package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/models"
)

// Store is the document store backing similarity search.
type Store interface {
	// TopMatch returns the single document whose cosine similarity to vec is
	// strictly greater than threshold, or nil when nothing qualifies.
	TopMatch(ctx context.Context, vec []float32, threshold float64) (*models.SearchResult, error)
	Insert(ctx context.Context, doc *models.Document) error
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the in-memory store when inMemory is set and a Postgres store
// for dsn otherwise.
func Open(dsn string, inMemory bool, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if inMemory {
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	}
	logger.Info("Using PostgreSQL storage")
	return NewPostgresStorage(dsn, logger)
}
