package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/models"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Inserter interface {
	Insert(ctx context.Context, doc *models.Document) error
}

// Indexer embeds document contents and writes them to the store.
type Indexer struct {
	embedder Embedder
	store    Inserter
	validate *validator.Validate
	logger   *zap.Logger
}

func NewIndexer(embedder Embedder, store Inserter, logger *zap.Logger) (*Indexer, error) {
	if embedder == nil {
		return nil, errors.New("documents: embedder must not be nil")
	}
	if store == nil {
		return nil, errors.New("documents: store must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

// Add embeds doc.Contents and inserts the document. A missing chunk id is
// replaced with a random UUID.
func (ix *Indexer) Add(ctx context.Context, doc models.Document) (models.Document, error) {
	doc.Title = strings.TrimSpace(doc.Title)
	doc.ChunkID = strings.TrimSpace(doc.ChunkID)
	if err := ix.validate.Struct(doc); err != nil {
		return models.Document{}, fmt.Errorf("documents: invalid document: %w", err)
	}
	if doc.ChunkID == "" {
		doc.ChunkID = uuid.NewString()
	}

	embedding, err := ix.embedder.Embed(ctx, doc.Contents)
	if err != nil {
		return models.Document{}, fmt.Errorf("documents: embed %q: %w", doc.ChunkID, err)
	}
	doc.Embedding = embedding

	if err := ix.store.Insert(ctx, &doc); err != nil {
		return models.Document{}, fmt.Errorf("documents: insert %q: %w", doc.ChunkID, err)
	}

	ix.logger.Info("Document added",
		zap.String("chunk_id", doc.ChunkID),
		zap.String("title", doc.Title))
	return doc, nil
}

// AddAll adds every document in order and stops at the first failure,
// returning how many were written.
func (ix *Indexer) AddAll(ctx context.Context, docs []models.Document) (int, error) {
	for i, doc := range docs {
		if _, err := ix.Add(ctx, doc); err != nil {
			return i, err
		}
	}
	return len(docs), nil
}
