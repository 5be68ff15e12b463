package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tutor/pkg/llm"
	"github.com/papercomputeco/tutor/pkg/logger"
)

// Server is the API server for the tutor.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config) (*Server, error) {
	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if config.Checkpoints == nil || config.Messages == nil {
		return nil, errors.New("checkpoint log and message store are required")
	}
	if config.Mistakes == nil || config.Profiles == nil || config.Stats == nil {
		return nil, errors.New("mistake store, profile service and stats recorder are required")
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(llm.ErrorResponse{Error: err.Error()})
		},
	})

	s := &Server{
		config: config,
		logger: config.Logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/chat", s.handleChat)

	v1.Get("/users/:id/profile", s.handleGetProfile)
	v1.Patch("/users/:id/profile", s.handleUpdateProfile)
	v1.Get("/users/:id/mistakes", s.handleListMistakes)
	v1.Get("/users/:id/stats", s.handleStats)

	v1.Get("/threads/:id/messages", s.handleListMessages)
	v1.Get("/threads/:id/checkpoints", s.handleListCheckpoints)
	v1.Get("/threads/:id/checkpoints/latest", s.handleLatestCheckpoint)
	v1.Get("/threads/:id/checkpoints/:checkpoint", s.handleGetCheckpoint)
	v1.Delete("/threads/:id", s.handleDeleteThread)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}
