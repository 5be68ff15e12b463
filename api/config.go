// Package api provides the HTTP API server for tutoring turns, learner
// profiles, mistake memory and conversation checkpoints.
package api

import (
	"log/slog"

	"github.com/papercomputeco/tutor/api/mcp"
	"github.com/papercomputeco/tutor/pipeline"
	"github.com/papercomputeco/tutor/pkg/checkpoint"
	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/stats"
	"github.com/papercomputeco/tutor/pkg/storage"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	Pipeline    *pipeline.Pipeline
	Checkpoints *checkpoint.Log
	Messages    storage.MessageStore
	Mistakes    *memory.Store
	Profiles    *profile.Service
	Stats       *stats.Recorder

	// MCP is mounted at /mcp when set.
	MCP *mcp.Server

	Logger *slog.Logger
}
