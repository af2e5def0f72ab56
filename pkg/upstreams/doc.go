// Package upstreams maintains the registry of remote MCP tool providers
// known to the hub. It merges two partitions of upstream records: a static
// partition loaded once from configuration, and a dynamic partition fed by
// explicit registration calls or an optional durable store. Every record
// carries a deterministic identifier derived from its defining parameters,
// so external authorization data keyed by upstream id survives process
// restarts without any persisted state of its own.
package upstreams
