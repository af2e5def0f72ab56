package mcphub

import (
	"context"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/toolhubio/mcp-toolhub/pkg/upstreams"
)

// Tool _meta keys recording where an aggregated tool came from.
const (
	metaKeyUpstream   = "toolhub.upstream"
	metaKeyNativeName = "toolhub.native_name"
)

// Authorizer reports which upstream ids the caller may see. Caller identity
// travels in the context. An empty result declares no restriction, in which
// case every registered upstream is exposed.
type Authorizer interface {
	AllowedUpstreams(ctx context.Context) ([]string, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context) ([]string, error)

func (f AuthorizerFunc) AllowedUpstreams(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// HubOptions configure a Hub instance.
type HubOptions struct {
	// Factory dials upstream clients. Defaults to an SDKClientFactory.
	Factory ClientFactory
	// Authorizer restricts which upstreams a caller sees. Nil allows all.
	Authorizer Authorizer
	// Logger receives structured diagnostics.
	Logger *zap.Logger
	// ListTimeout bounds each per-upstream listing. Defaults to 30s.
	ListTimeout time.Duration
}

func (o *HubOptions) withDefaults() HubOptions {
	if o == nil {
		o = &HubOptions{}
	}
	opts := *o
	if opts.Factory == nil {
		opts.Factory = &SDKClientFactory{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = 30 * time.Second
	}
	return opts
}

// Hub aggregates the tool catalogs of every registered upstream into one
// namespaced catalog and routes invocations back to the owner.
type Hub struct {
	store       *upstreams.Store
	factory     ClientFactory
	auth        Authorizer
	index       *nameIndex
	logger      *zap.Logger
	listTimeout time.Duration
}

// NewHub builds a Hub over the given store and registers its warm-up hook so
// that loading static configuration pre-populates routing.
func NewHub(store *upstreams.Store, opts *HubOptions) *Hub {
	options := opts.withDefaults()
	h := &Hub{
		store:       store,
		factory:     options.Factory,
		auth:        options.Authorizer,
		index:       newNameIndex(),
		logger:      options.Logger.Named("mcphub"),
		listTimeout: options.ListTimeout,
	}
	store.SetWarmup(h.WarmUp)
	return h
}

// ListTools returns the aggregated catalog visible to the caller. Tools are
// renamed to their qualified form; ordering follows the allow-list, then each
// upstream's own reported order. A failing upstream contributes an empty
// result instead of aborting the aggregation.
func (h *Hub) ListTools(ctx context.Context, credential string) ([]*mcp.Tool, error) {
	ids, err := h.allowedUpstreams(ctx)
	if err != nil {
		return nil, err
	}
	results, err := h.fanOut(ctx, ids, credential)
	if err != nil {
		return nil, err
	}
	var all []*mcp.Tool
	for _, tools := range results {
		all = append(all, tools...)
	}
	return all, nil
}

// ListUpstreamTools lists one upstream's tools under their qualified names.
// An unknown id yields an empty catalog, not an error; transport faults
// propagate to the caller.
func (h *Hub) ListUpstreamTools(ctx context.Context, id, credential string) ([]*mcp.Tool, error) {
	rec, ok := h.store.ByID(id)
	if !ok {
		h.logger.Warn("upstream not found in registry", zap.String("id", id))
		return nil, nil
	}
	return h.listUpstream(ctx, rec, credential)
}

// WarmUp refreshes the name index from every registered upstream so routing
// works before the first catalog request. Output is discarded and failures
// are logged only. The store schedules it automatically after LoadStatic.
func (h *Hub) WarmUp(ctx context.Context) {
	union := h.store.Union()
	ids := make([]string, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if _, err := h.fanOut(ctx, ids, ""); err != nil {
		h.logger.Warn("catalog warm-up aborted", zap.Error(err))
	}
}

func (h *Hub) allowedUpstreams(ctx context.Context) ([]string, error) {
	if h.auth != nil {
		ids, err := h.auth.AllowedUpstreams(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
		h.logger.Debug("no upstream restriction declared, exposing all registered upstreams")
	}
	union := h.store.Union()
	ids := make([]string, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fanOut lists every resolvable upstream concurrently. Results are buffered
// by allow-list position so concatenation order is independent of completion
// order. Per-upstream faults are logged and yield empty slots; cancellation
// of ctx stops the remaining listings and is re-raised.
func (h *Hub) fanOut(ctx context.Context, ids []string, credential string) ([][]*mcp.Tool, error) {
	results := make([][]*mcp.Tool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		rec, ok := h.store.ByID(id)
		if !ok {
			h.logger.Warn("skipping unresolvable upstream id", zap.String("id", id))
			continue
		}
		g.Go(func() error {
			tools, err := h.listUpstream(gctx, rec, credential)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				h.logger.Warn("listing upstream tools failed",
					zap.String("upstream", rec.Alias), zap.Error(err))
				return nil
			}
			results[i] = tools
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// listUpstream dials one upstream, lists its tools, and records both the raw
// and qualified names in the index. The client is released on every path.
func (h *Hub) listUpstream(ctx context.Context, rec *upstreams.Record, credential string) ([]*mcp.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.listTimeout)
	defer cancel()

	client, err := h.factory.Dial(ctx, rec, credential)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	native, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	tools := make([]*mcp.Tool, 0, len(native))
	for _, tool := range native {
		if tool == nil {
			continue
		}
		qualified := QualifyToolName(rec.Alias, tool.Name)
		h.index.set(tool.Name, rec.Alias)
		h.index.set(qualified, rec.Alias)
		tools = append(tools, qualifyTool(tool, qualified, rec.Alias))
	}
	return tools, nil
}

// qualifyTool clones an upstream tool under its catalog-wide name, recording
// provenance in _meta. The input schema passes through untouched.
func qualifyTool(tool *mcp.Tool, qualified, alias string) *mcp.Tool {
	clone := *tool
	clone.Name = qualified
	meta := make(map[string]any, len(tool.Meta)+2)
	for k, v := range tool.Meta {
		meta[k] = v
	}
	meta[metaKeyUpstream] = alias
	meta[metaKeyNativeName] = tool.Name
	clone.Meta = mcp.Meta(meta)
	return &clone
}
