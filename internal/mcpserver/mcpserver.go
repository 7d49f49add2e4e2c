// Package mcpserver wraps the MCP go-sdk server used by matlab-ci in --mcp mode.
package mcpserver

import (
	"context"
	"time"

	"github.com/alexandremahdhaoui/matlab-ci/internal/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Server wraps the MCP server with common functionality.
type Server struct {
	server *mcp.Server
	log    *zap.Logger
}

// New creates a new MCP server with the given name and version.
// A nil logger disables tool call logging.
func New(name, version string, log *zap.Logger) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	if log == nil {
		log = logger.Nop()
	}

	return &Server{
		server: server,
		log:    log,
	}
}

// RegisterTool registers a tool with the MCP server.
// Every call is logged with its duration and whether it reported an error.
func RegisterTool[In any](s *Server, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error)) {
	log := s.log.With(zap.String("tool", tool.Name))

	mcp.AddTool(s.server, tool, func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		log.Debug("tool call started")

		result, out, err := handler(ctx, req, input)

		log.Info("tool call finished",
			zap.Duration("duration", time.Since(start)),
			zap.Bool("isError", err != nil || (result != nil && result.IsError)),
			zap.Error(err))

		return result, out, err
	})
}

// Connect serves a single session over t. It is used with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Run starts the MCP server with stdio transport.
// It reads JSON-RPC requests from stdin and writes responses to stdout.
// All logs should go to stderr only to avoid corrupting the JSON-RPC stream.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		s.log.Error("MCP server failed", zap.Error(err))
		return err
	}
	return nil
}

// RunDefault starts the MCP server with a background context.
func (s *Server) RunDefault() error {
	return s.Run(context.Background())
}
