package models

// ChatMessage is one inbound chat request. It is never persisted.
type ChatMessage struct {
	Text   string `json:"message" validate:"required"`
	Stream bool   `json:"stream"`
}

// Document is a stored knowledge-base entry with its embedding.
type Document struct {
	ChunkID   string    `json:"chunk_id" yaml:"chunk_id"`
	Title     string    `json:"title" yaml:"title" validate:"required"`
	Contents  string    `json:"contents" yaml:"contents" validate:"required"`
	Embedding []float32 `json:"-" yaml:"-"`
}

// SearchResult is the single best match returned by a similarity search.
type SearchResult struct {
	Title      string  `json:"title"`
	Contents   string  `json:"contents"`
	Similarity float64 `json:"similarity"`
}
