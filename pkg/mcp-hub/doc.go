// Package mcphub aggregates the tool catalogs of every upstream registered
// in an upstreams.Store into one namespaced catalog and routes tool calls
// back to the owning upstream. Listings fan out concurrently with
// per-upstream failure isolation, so one unreachable server never empties
// the whole catalog. The package also ships an optional Gateway that serves
// the aggregated catalog as a Streamable MCP server over HTTP.
package mcphub
