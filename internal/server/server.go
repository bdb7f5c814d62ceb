package server

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/models"
	"github.com/xaenox/safechat/internal/router"
	"github.com/xaenox/safechat/pkg/config"
)

// Responder produces the reply for one chat message.
type Responder interface {
	Handle(ctx context.Context, msg models.ChatMessage) (router.Reply, error)
}

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	responder Responder
	store     Pinger
	validate  *validator.Validate
	logger    *zap.Logger
}

func New(cfg *config.Config, responder Responder, store Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             1 * 1024 * 1024, // 1MB
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CorsOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(requestID)

	s := &Server{
		app:       app,
		cfg:       cfg,
		responder: responder,
		store:     store,
		validate:  validator.New(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.logger.Info("Server is running", zap.String("addr", fmt.Sprintf("http://localhost:%s", s.cfg.Server.Port)))
	return s.app.Listen(":" + s.cfg.Server.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")
	api.Post("/chat", s.handleChat)
	api.Get("/health", s.handleHealth)
}

const requestIDHeader = "X-Request-ID"

func requestID(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("request_id", id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}
