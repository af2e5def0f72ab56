package mcphub

import (
	"strings"

	"github.com/toolhubio/mcp-toolhub/pkg/upstreams"
)

// QualifyToolName composes the catalog-wide unique name for a tool owned by
// the upstream with the given alias. It is reversible under SplitToolName.
func QualifyToolName(alias, toolName string) string {
	return alias + upstreams.NameSeparator + toolName
}

// SplitToolName decomposes a possibly qualified tool name into the raw
// upstream tool name and the alias claimed by its prefix. Splitting happens
// at the first separator, so raw names containing the separator round-trip.
// Unqualified names return the input unchanged with qualified=false.
func SplitToolName(name string) (toolName, alias string, qualified bool) {
	idx := strings.Index(name, upstreams.NameSeparator)
	if idx < 0 {
		return name, "", false
	}
	return name[idx+len(upstreams.NameSeparator):], name[:idx], true
}

// IsQualifiedToolName reports whether name carries an upstream alias prefix.
func IsQualifiedToolName(name string) bool {
	return strings.Contains(name, upstreams.NameSeparator)
}
