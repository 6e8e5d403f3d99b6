// Package mcp exposes a library to MCP clients as a small set of read-only
// tools.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/maestro/maestro/internal/logger"
	"github.com/maestro/maestro/maestro"
)

const (
	// ServerName is the MCP server name
	ServerName = "maestro"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the library it serves.
type Server struct {
	mcp *server.MCPServer
	lib *maestro.Library
	log zerolog.Logger
}

// NewServer creates a server answering tool calls from lib. The library is
// owned by the caller.
func NewServer(lib *maestro.Library, log zerolog.Logger) *Server {
	s := &Server{
		lib: lib,
		log: logger.Component(log, "mcp"),
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// Serve answers requests on stdio until ctx is done or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info().Msg("serving on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchLibraryTool(), s.handleSearchLibrary)
	s.mcp.AddTool(listTagsTool(), s.handleListTags)
	s.mcp.AddTool(discoverValuesTool(), s.handleDiscoverValues)
	s.mcp.AddTool(libraryStatsTool(), s.handleLibraryStats)
}
