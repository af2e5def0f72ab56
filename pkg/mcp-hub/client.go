package mcphub

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toolhubio/mcp-toolhub/pkg/upstreams"
)

// ToolClient is the transport capability the hub needs from one upstream: a
// connected session that can list and invoke tools. Close releases the
// session and is safe to call more than once.
type ToolClient interface {
	ListTools(ctx context.Context) ([]*mcp.Tool, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Close() error
}

// ClientFactory builds a connected ToolClient for an upstream record. The
// credential, when non-empty, overrides the record's static credential.
type ClientFactory interface {
	Dial(ctx context.Context, rec *upstreams.Record, credential string) (ToolClient, error)
}

// SDKClientFactory dials upstreams with the official MCP go-sdk client,
// choosing the transport from the record's closed transport variant.
type SDKClientFactory struct {
	// Implementation identifies this client to upstreams during
	// initialization. Defaults to the hub's own identity.
	Implementation *mcp.Implementation
	// HTTPClient is the base client for HTTP transports; it is cloned per
	// dial so credential decoration never leaks across upstreams. Defaults
	// to http.DefaultClient.
	HTTPClient *http.Client
	// MaxRetries passes through to the Streamable transport.
	MaxRetries int
}

// Dial connects to the upstream and returns a live session.
func (f *SDKClientFactory) Dial(ctx context.Context, rec *upstreams.Record, credential string) (ToolClient, error) {
	transport, err := f.transportFor(rec, credential)
	if err != nil {
		return nil, err
	}
	client := mcp.NewClient(f.implementation(), nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %q: %v", ErrConnection, rec.Alias, err)
	}
	return &sdkToolClient{session: session}, nil
}

func (f *SDKClientFactory) implementation() *mcp.Implementation {
	if f.Implementation != nil {
		return f.Implementation
	}
	return &mcp.Implementation{Name: "mcp-toolhub", Version: "1.0.0"}
}

func (f *SDKClientFactory) transportFor(rec *upstreams.Record, credential string) (mcp.Transport, error) {
	switch rec.Transport {
	case upstreams.TransportStdio:
		if rec.Command == "" {
			return nil, fmt.Errorf("%w: command missing for %q", upstreams.ErrInvalidConfig, rec.Alias)
		}
		cmd := exec.Command(rec.Command, rec.Args...)
		if len(rec.Env) > 0 {
			env := os.Environ()
			for k, v := range rec.Env {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
			cmd.Env = env
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case upstreams.TransportSSE:
		if rec.Endpoint == "" {
			return nil, fmt.Errorf("%w: endpoint missing for %q", upstreams.ErrInvalidConfig, rec.Alias)
		}
		return &mcp.SSEClientTransport{
			Endpoint:   rec.Endpoint,
			HTTPClient: f.httpClient(rec, credential),
		}, nil
	case upstreams.TransportHTTP:
		if rec.Endpoint == "" {
			return nil, fmt.Errorf("%w: endpoint missing for %q", upstreams.ErrInvalidConfig, rec.Alias)
		}
		return &mcp.StreamableClientTransport{
			Endpoint:   rec.Endpoint,
			HTTPClient: f.httpClient(rec, credential),
			MaxRetries: f.MaxRetries,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported transport %q for %q", upstreams.ErrInvalidConfig, rec.Transport, rec.Alias)
	}
}

func (f *SDKClientFactory) httpClient(rec *upstreams.Record, credential string) *http.Client {
	base := f.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	header, value := authHeader(rec.Auth, effectiveCredential(rec, credential))
	if header == "" {
		return base
	}
	clone := *base
	clone.Transport = &authRoundTripper{
		next:   defaultRoundTripper(base.Transport),
		header: header,
		value:  value,
	}
	return &clone
}

func effectiveCredential(rec *upstreams.Record, override string) string {
	if override != "" {
		return override
	}
	return rec.Credential
}

// authHeader maps an auth kind and credential onto the request header the
// upstream expects. An empty credential disables decoration.
func authHeader(kind upstreams.AuthKind, credential string) (name, value string) {
	if credential == "" {
		return "", ""
	}
	switch kind {
	case upstreams.AuthAPIKey:
		return "X-API-Key", credential
	case upstreams.AuthBasic:
		return "Authorization", withScheme("Basic", credential)
	case upstreams.AuthBearer:
		return "Authorization", withScheme("Bearer", credential)
	case upstreams.AuthNone:
		return "", ""
	default:
		return "Authorization", credential
	}
}

func withScheme(scheme, credential string) string {
	if strings.HasPrefix(credential, scheme+" ") {
		return credential
	}
	return scheme + " " + credential
}

type authRoundTripper struct {
	next   http.RoundTripper
	header string
	value  string
}

func (rt *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get(rt.header) == "" {
		req.Header.Set(rt.header, rt.value)
	}
	return rt.next.RoundTrip(req)
}

func defaultRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next != nil {
		return next
	}
	return http.DefaultTransport
}

type sdkToolClient struct {
	session *mcp.ClientSession

	closeOnce sync.Once
	closeErr  error
}

func (c *sdkToolClient) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.Tools, nil
}

func (c *sdkToolClient) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	return c.session.CallTool(ctx, params)
}

func (c *sdkToolClient) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.session.Close() })
	return c.closeErr
}
