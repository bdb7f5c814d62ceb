package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/apperror"
	"github.com/xaenox/safechat/internal/llm"
	"github.com/xaenox/safechat/internal/models"
)

const (
	msgInvalidBody      = "Invalid request body"
	msgOpenAIConfig     = "OpenAI API configuration error. Please check environment variables."
	msgDatabaseConfig   = "Database configuration error. Please check environment variables."
	msgInternalError    = "Internal server error"
	msgStoreUnavailable = "unavailable"
)

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	logger := s.logger.With(zap.String("request_id", requestIDFrom(c)))

	var req models.ChatMessage
	if err := c.BodyParser(&req); err != nil {
		logger.Debug("Failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msgInvalidBody})
	}
	if err := s.validate.Struct(req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msgInvalidBody})
	}

	// The request context outlives the handler when the reply is streamed,
	// so it is not derived from fasthttp's recycled RequestCtx.
	ctx, cancel := context.WithCancel(context.Background())

	reply, err := s.responder.Handle(ctx, req)
	if err != nil {
		cancel()
		return s.writeError(c, logger, err)
	}

	if !reply.Streaming() {
		cancel()
		logger.Info("Chat reply sent", zap.Stringer("classification", reply.Classification))
		return c.JSON(chatResponse{Response: reply.Text})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(relay(reply.Stream, cancel, logger))
	return nil
}

// relay copies stream to the client chunk by chunk. It always closes the
// stream and cancels the request context when it returns.
func relay(stream llm.TokenStream, cancel context.CancelFunc, logger *zap.Logger) fasthttp.StreamWriter {
	return func(w *bufio.Writer) {
		defer cancel()
		defer func() {
			if err := stream.Close(); err != nil {
				logger.Warn("Failed to close completion stream", zap.Error(err))
			}
		}()

		chunks := 0
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				logger.Info("Chat stream finished", zap.Int("chunks", chunks))
				return
			}
			if err != nil {
				logger.Error("Chat stream failed", zap.Error(err), zap.Int("chunks", chunks))
				return
			}
			if _, err := w.WriteString(chunk); err != nil {
				logger.Info("Client went away during stream", zap.Error(err))
				return
			}
			if err := w.Flush(); err != nil {
				logger.Info("Client went away during stream", zap.Error(err))
				return
			}
			chunks++
		}
	}
}

func (s *Server) writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	appErr, ok := apperror.As(err)
	if ok && appErr.Kind == apperror.KindConfigMissing {
		logger.Error("Collaborator is not configured", zap.Error(err), zap.String("subsystem", string(appErr.Subsystem)))
		body := errorResponse{Error: msgOpenAIConfig}
		if appErr.Subsystem == apperror.SubsystemDatabase {
			body.Error = msgDatabaseConfig
		}
		if !s.cfg.App.IsProduction() && appErr.Err != nil {
			body.Details = appErr.Err.Error()
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}

	logger.Error("Failed to handle chat message", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: msgInternalError})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if err := s.store.Ping(c.UserContext()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(healthResponse{Status: msgStoreUnavailable, Error: err.Error()})
	}
	return c.JSON(healthResponse{Status: "ok"})
}
