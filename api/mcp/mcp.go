// Package mcp provides an MCP (Model Context Protocol) server exposing a
// learner's mistake memory and profile to agents.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/utils"
)

type Config struct {
	// Mistakes answers recurring mistake queries
	Mistakes *memory.Store

	// Profiles loads learner profiles
	Profiles *profile.Service

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the learner tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tutor",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Mistakes == nil {
			return nil, errors.New("mistake store is required")
		}
		if c.Profiles == nil {
			return nil, errors.New("profile service is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        recurringMistakesToolName,
			Description: recurringMistakesDescription,
		}, s.handleRecurringMistakes)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        learnerProfileToolName,
			Description: learnerProfileDescription,
		}, s.handleLearnerProfile)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
