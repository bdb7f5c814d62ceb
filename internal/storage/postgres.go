package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/apperror"
	"github.com/xaenox/safechat/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

const missingDSNDetail = "POSTGRES_URL is not set"

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStorage opens a connection pool for dsn. An empty dsn yields a
// storage whose every call fails with a database ConfigMissing error.
func NewPostgresStorage(dsn string, logger *zap.Logger) (*PostgresStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dsn == "" {
		logger.Warn("Database connection string is not configured; similarity search will fail")
		return &PostgresStorage{logger: logger}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return &PostgresStorage{db: db, logger: logger}, nil
}

func (s *PostgresStorage) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, apperror.ConfigMissing(apperror.SubsystemDatabase, missingDSNDetail)
	}
	return s.db, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return apperror.Upstream(apperror.SubsystemDatabase, fmt.Errorf("error connecting to the database: %w", err))
	}
	return nil
}

// EnsureSchema creates the vector extension and the data table if absent.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return apperror.Upstream(apperror.SubsystemDatabase, fmt.Errorf("error executing migrations: %w", err))
	}
	s.logger.Info("Database schema ensured")
	return nil
}

func (s *PostgresStorage) TopMatch(ctx context.Context, vec []float32, threshold float64) (*models.SearchResult, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT title, contents, 1 - (vector <=> $1::vector) AS similarity
		FROM data
		WHERE 1 - (vector <=> $1::vector) > $2
		ORDER BY vector <=> $1::vector
		LIMIT 1`

	result := &models.SearchResult{}
	err = db.QueryRowContext(ctx, query, pgvector.NewVector(vec), threshold).
		Scan(&result.Title, &result.Contents, &result.Similarity)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("No matching documents above threshold", zap.Float64("threshold", threshold))
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Upstream(apperror.SubsystemDatabase, fmt.Errorf("error querying similar documents: %w", err))
	}

	s.logger.Debug("Found matching document",
		zap.String("title", result.Title),
		zap.Float64("similarity", result.Similarity))
	return result, nil
}

func (s *PostgresStorage) Insert(ctx context.Context, doc *models.Document) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO data (chunk_id, title, contents, vector)
		VALUES ($1, $2, $3, $4::vector)`

	_, err = db.ExecContext(ctx, query, doc.ChunkID, doc.Title, doc.Contents, pgvector.NewVector(doc.Embedding))
	if err != nil {
		return apperror.Upstream(apperror.SubsystemDatabase, fmt.Errorf("error inserting document: %w", err))
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
