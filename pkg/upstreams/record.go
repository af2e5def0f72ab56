package upstreams

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// TransportKind identifies how an upstream MCP server is reached.
type TransportKind string

const (
	TransportHTTP  TransportKind = "http"
	TransportSSE   TransportKind = "sse"
	TransportStdio TransportKind = "stdio"
)

// AuthKind identifies the credential scheme an upstream expects.
type AuthKind string

const (
	AuthNone   AuthKind = ""
	AuthAPIKey AuthKind = "api_key"
	AuthBearer AuthKind = "bearer_token"
	AuthBasic  AuthKind = "basic"
)

// SpecVersion tags the MCP protocol revision an upstream speaks.
type SpecVersion string

const (
	SpecVersionMar2025 SpecVersion = "2025-03-26"
	SpecVersionJun2025 SpecVersion = "2025-06-18"
)

// NameSeparator joins an upstream alias with a raw tool name in qualified
// catalog names. Aliases may not contain it.
const NameSeparator = "."

// CostInfo carries optional billing metadata attached to an upstream.
type CostInfo struct {
	DefaultCostPerQuery float64            `yaml:"default_cost_per_query"`
	ToolCosts           map[string]float64 `yaml:"tool_name_to_cost_per_query"`
}

// Record describes one remote tool provider. Command, Args, and Env are only
// meaningful for TransportStdio; Endpoint only for the HTTP transports.
type Record struct {
	ID          string
	Alias       string
	Transport   TransportKind
	Endpoint    string
	Command     string
	Args        []string
	Env         map[string]string
	Auth        AuthKind
	Credential  string
	SpecVersion SpecVersion
	Description string
	Cost        *CostInfo
}

const stableIDLength = 32

// StableID derives the identifier for an upstream from its defining
// parameters. The result is reproducible across process restarts and across
// independently configured processes, which matters because authorization
// records reference upstreams by id and must stay valid after a restart.
func StableID(alias, endpoint string, transport TransportKind, spec SpecVersion, auth AuthKind) string {
	params := strings.Join([]string{alias, endpoint, string(transport), string(spec), string(auth)}, "|")
	sum := sha256.Sum256([]byte(params))
	return hex.EncodeToString(sum[:])[:stableIDLength]
}

// NormalizeAlias folds an upstream alias for equality comparison: lower-cased,
// surrounding whitespace trimmed, interior spaces replaced by underscores.
// Aliases that normalize identically are treated as the same upstream identity
// when matching, but distinct records are never silently merged.
func NormalizeAlias(alias string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(alias)), " ", "_")
}

// ValidateAlias rejects aliases that cannot participate in qualified tool
// names.
func ValidateAlias(alias string) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("%w: alias must not be empty", ErrInvalidConfig)
	}
	if strings.Contains(alias, NameSeparator) {
		return fmt.Errorf("%w: alias %q contains reserved separator %q", ErrInvalidConfig, alias, NameSeparator)
	}
	return nil
}
