package mcphub

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toolhubio/mcp-toolhub/pkg/upstreams"
)

// CallTool resolves name to exactly one owning upstream and dispatches the
// call. A qualified name must claim the alias of the upstream that actually
// owns the tool; a claim naming any other upstream fails with
// ErrPrefixMismatch. Transport and invocation failures propagate verbatim —
// a single call has no partial-failure semantics to isolate.
func (h *Hub) CallTool(ctx context.Context, name string, args any, credential string) (*mcp.CallToolResult, error) {
	toolName, claimedAlias, qualified := SplitToolName(name)

	rec := h.resolveOwner(name, claimedAlias, qualified)
	if rec == nil {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if qualified && upstreams.NormalizeAlias(claimedAlias) != upstreams.NormalizeAlias(rec.Alias) {
		return nil, fmt.Errorf("%w: %q is owned by %q, prefix claims %q",
			ErrPrefixMismatch, name, rec.Alias, claimedAlias)
	}

	client, err := h.factory.Dial(ctx, rec, credential)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	// Upstreams only understand their own raw tool names.
	return client.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: args})
}

// resolveOwner consults the advisory name index with the exact name first,
// then falls back to the claimed alias prefix. Index entries whose alias no
// longer resolves in the registry are treated as misses.
func (h *Hub) resolveOwner(name, claimedAlias string, qualified bool) *upstreams.Record {
	if alias, ok := h.index.lookup(name); ok {
		if rec, ok := h.store.ByAlias(alias); ok {
			return rec
		}
	}
	if qualified {
		if rec, ok := h.store.ByAlias(claimedAlias); ok {
			return rec
		}
	}
	return nil
}
