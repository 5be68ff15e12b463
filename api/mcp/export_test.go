package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// SDKServer exposes the underlying server so tests can connect an
// in-memory client.
func (s *Server) SDKServer() *mcp.Server {
	return s.mcpServer
}
