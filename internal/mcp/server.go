package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/tripsearch-mcp/internal/entitycache"
	"github.com/dshills/tripsearch-mcp/internal/indexer"
	"github.com/dshills/tripsearch-mcp/internal/searcher"
	"github.com/dshills/tripsearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "tripsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options holds the server's collaborators. The caller owns Storage and
// closes it after Serve returns.
type Options struct {
	Storage   storage.Storage
	Cache     entitycache.Cache
	Logger    *slog.Logger
	CacheSize int // Searcher query cache capacity
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("entity cache is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Create searcher first so the indexer can invalidate its cache
	srch := searcher.NewSearcher(opts.Storage, &searcher.Config{
		Logger:    logger,
		CacheSize: opts.CacheSize,
	})

	idx := indexer.New(opts.Storage, opts.Cache, &indexer.Config{
		Logger:      logger,
		Invalidator: srch,
	})

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  opts.Storage,
		indexer:  idx,
		searcher: srch,
		logger:   logger,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Indexer returns the server's indexer
func (s *Server) Indexer() *indexer.Indexer {
	return s.indexer
}

// Searcher returns the server's searcher
func (s *Server) Searcher() *searcher.Searcher {
	return s.searcher
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the MCP server over the given streams
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	defer func() { _ = s.searcher.Close() }()

	s.logger.Info("mcp server listening", slog.String("name", ServerName), slog.String("version", ServerVersion))
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(buildIndexTool(), s.handleBuildIndex)
	s.mcp.AddTool(rebuildAllTool(), s.handleRebuildAll)
	s.mcp.AddTool(removeCollectionTool(), s.handleRemoveCollection)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(searchGroupedTool(), s.handleSearchGrouped)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
	s.mcp.AddTool(needsRebuildTool(), s.handleNeedsRebuild)

	return nil
}
