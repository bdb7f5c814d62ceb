package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/apperror"
)

const (
	DefaultModel          = openai.GPT4oMini
	DefaultEmbeddingModel = string(openai.AdaEmbeddingV2)

	// EmbeddingDimensions is the vector width of DefaultEmbeddingModel and of
	// the stored document vectors.
	EmbeddingDimensions = 1536

	missingKeyDetail = "OPENAI_API_KEY is not set"
)

// Prompt is a single system+user exchange sent to the completion endpoint.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

// Client wraps the OpenAI API for chat completions, streamed completions and
// embeddings. A Client built without an API key is still usable: every call
// returns a ConfigMissing error so the HTTP layer can report it.
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	logger         *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		model:          strings.TrimSpace(cfg.Model),
		embeddingModel: strings.TrimSpace(cfg.EmbeddingModel),
		logger:         logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		logger.Warn("OpenAI API key is not configured; completion and embedding calls will fail")
		return c
	}
	config := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		config.BaseURL = strings.TrimRight(base, "/")
	}
	c.api = openai.NewClientWithConfig(config)
	return c
}

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool {
	return c.api != nil
}

func (c *Client) chatRequest(p Prompt, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Stream:      stream,
	}
}

// Complete returns the full text of the first choice.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	if c.api == nil {
		return "", apperror.ConfigMissing(apperror.SubsystemCompletion, missingKeyDetail)
	}

	resp, err := c.api.CreateChatCompletion(ctx, c.chatRequest(p, false))
	if err != nil {
		c.logger.Error("Failed to get completion", zap.Error(err), zap.String("model", c.model))
		return "", apperror.Upstream(apperror.SubsystemCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperror.Upstream(apperror.SubsystemCompletion, errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream starts a streamed completion. The caller owns the returned stream
// and must Close it.
func (c *Client) Stream(ctx context.Context, p Prompt) (TokenStream, error) {
	if c.api == nil {
		return nil, apperror.ConfigMissing(apperror.SubsystemCompletion, missingKeyDetail)
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, c.chatRequest(p, true))
	if err != nil {
		c.logger.Error("Failed to open completion stream", zap.Error(err), zap.String("model", c.model))
		return nil, apperror.Upstream(apperror.SubsystemCompletion, err)
	}
	return &openaiStream{stream: stream}, nil
}

// Embed converts text into a vector using the configured embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.api == nil {
		return nil, apperror.ConfigMissing(apperror.SubsystemEmbedding, missingKeyDetail)
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		c.logger.Error("Failed to generate embedding", zap.Error(err), zap.String("model", c.embeddingModel))
		return nil, apperror.Upstream(apperror.SubsystemEmbedding, err)
	}
	if len(resp.Data) == 0 {
		return nil, apperror.Upstream(apperror.SubsystemEmbedding, errors.New("no embedding in response"))
	}

	embedding := resp.Data[0].Embedding
	c.logger.Debug("Embedding generated", zap.Int("dimensions", len(embedding)))
	if len(embedding) != EmbeddingDimensions {
		return nil, apperror.Upstream(apperror.SubsystemEmbedding,
			fmt.Errorf("unexpected embedding dimensions %d, want %d", len(embedding), EmbeddingDimensions))
	}
	return embedding, nil
}
