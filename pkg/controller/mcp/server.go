// Package mcp exposes market data as MCP tools over stdio, for use as the
// agent's tool server.
package mcp

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/moneta-lab/moneta/pkg/service/market"
)

// Server is the finance tool MCP server
type Server struct {
	market   *market.Client
	chartDir string
	server   *mcpsdk.Server
}

// Option configures a Server
type Option func(*Server)

// WithChartDir sets the directory render_price_chart writes SVG files into
func WithChartDir(dir string) Option {
	return func(s *Server) {
		s.chartDir = dir
	}
}

// New creates the finance tool server
func New(client *market.Client, version string, opts ...Option) (*Server, error) {
	if client == nil {
		return nil, goerr.New("market client is required")
	}

	s := &Server{
		market:   client,
		chartDir: ".",
	}
	for _, opt := range opts {
		opt(s)
	}

	impl := &mcpsdk.Implementation{
		Name:    "moneta-finance",
		Version: version,
	}
	s.server = mcpsdk.NewServer(impl, nil)
	s.registerTools()

	return s, nil
}

// Run serves tools over stdio until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}
