package llm

import (
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/xaenox/safechat/internal/apperror"
)

// TokenStream is a pull-style sequence of text chunks. Recv returns io.EOF
// once the sequence is exhausted. Close releases the upstream connection and
// may be called at any point, including before exhaustion.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips deltas that carry no content (role headers, finish markers).
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", apperror.Upstream(apperror.SubsystemCompletion, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

type staticStream struct {
	chunks []string
	closed bool
}

// NewStaticStream yields the given chunks in order.
func NewStaticStream(chunks ...string) TokenStream {
	return &staticStream{chunks: chunks}
}

func (s *staticStream) Recv() (string, error) {
	if s.closed || len(s.chunks) == 0 {
		return "", io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *staticStream) Close() error {
	s.closed = true
	return nil
}

type concatStream struct {
	streams []TokenStream
}

// Concat yields every chunk of each stream in turn. Closing it closes all
// underlying streams.
func Concat(streams ...TokenStream) TokenStream {
	return &concatStream{streams: streams}
}

func (c *concatStream) Recv() (string, error) {
	for len(c.streams) > 0 {
		chunk, err := c.streams[0].Recv()
		if errors.Is(err, io.EOF) {
			_ = c.streams[0].Close()
			c.streams = c.streams[1:]
			continue
		}
		return chunk, err
	}
	return "", io.EOF
}

func (c *concatStream) Close() error {
	var errs []error
	for _, s := range c.streams {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.streams = nil
	return errors.Join(errs...)
}
