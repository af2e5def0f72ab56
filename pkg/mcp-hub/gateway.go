package mcphub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Gateway serves the hub's aggregated catalog as a Streamable MCP server
// under a single HTTP endpoint. Downstream clients connect once and
// transparently reach every upstream the hub routes to.
type Gateway struct {
	hub    *Hub
	opts   Options
	logger *zap.Logger

	server        *mcp.Server
	streamHandler *mcp.StreamableHTTPHandler
	mux           *http.ServeMux
	httpHandler   http.Handler

	serverMu   sync.Mutex
	registered map[string]struct{}

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewGateway builds a Gateway over the hub. Call Sync to publish the current
// catalog before serving.
func NewGateway(hub *Hub, opts *Options) (*Gateway, error) {
	if hub == nil {
		return nil, fmt.Errorf("mcphub: hub is required")
	}
	options := opts.withDefaults()
	g := &Gateway{
		hub:        hub,
		opts:       options,
		logger:     options.Logger.Named("gateway"),
		registered: make(map[string]struct{}),
	}
	g.server = mcp.NewServer(options.Implementation, &mcp.ServerOptions{HasTools: true})
	g.streamHandler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return g.server
	}, &options.Streamable)
	g.httpHandler = g.mountHandler()
	return g, nil
}

// Sync replaces the served catalog with the hub's current aggregated view.
func (g *Gateway) Sync(ctx context.Context) error {
	ctx, cancel := g.syncContext(ctx)
	defer cancel()

	tools, err := g.hub.ListTools(ctx, "")
	if err != nil {
		return err
	}

	g.serverMu.Lock()
	defer g.serverMu.Unlock()
	if len(g.registered) > 0 {
		stale := make([]string, 0, len(g.registered))
		for name := range g.registered {
			stale = append(stale, name)
		}
		g.server.RemoveTools(stale...)
		g.registered = make(map[string]struct{}, len(tools))
	}
	for _, tool := range tools {
		if _, ok := g.registered[tool.Name]; ok {
			continue
		}
		g.server.AddTool(tool, g.makeToolHandler(tool.Name))
		g.registered[tool.Name] = struct{}{}
	}
	g.logger.Debug("catalog synchronized", zap.Int("tools", len(tools)))
	return nil
}

func (g *Gateway) makeToolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args any
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		return g.hub.CallTool(ctx, name, args, "")
	}
}

// Handler exposes the HTTP handler that serves the Streamable endpoint.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// ServeMux exposes the mux under the handler so consumers can add custom
// routes such as health checks.
func (g *Gateway) ServeMux() *http.ServeMux {
	return g.mux
}

// ListenAndServe runs an HTTP server until the provided context is cancelled
// or the server stops.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		srv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("mcphub: server already running on %s", srv.Addr)
	}
	srv := &http.Server{Addr: g.opts.Addr, Handler: g.Handler()}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.SyncTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (g *Gateway) mountHandler() http.Handler {
	mux := http.NewServeMux()
	g.mux = mux
	path := g.opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	mux.Handle(path, g.streamHandler)
	if !strings.HasSuffix(path, "/") {
		mux.Handle(path+"/", g.streamHandler)
	}
	if g.opts.CORS == nil {
		return mux
	}
	return cors.New(*g.opts.CORS).Handler(mux)
}

func (g *Gateway) syncContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if g.opts.SyncTimeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, g.opts.SyncTimeout)
}
