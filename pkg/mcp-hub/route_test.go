package mcphub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolhubio/mcp-toolhub/pkg/upstreams"
)

func TestCallToolRoutesQualifiedNameToOwner(t *testing.T) {
	factory := newFakeFactory()
	files := factory.serve("files", tool("read"))
	repo := factory.serve("repo", tool("read"), tool("search"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))
	require.True(t, store.Upsert(record("repo", "id-repo")))

	_, err := hub.ListTools(context.Background(), "")
	require.NoError(t, err)

	// Both upstreams expose a raw "read"; the prefix decides the owner and
	// the upstream sees only its own raw name.
	res, err := hub.CallTool(context.Background(), "files.read", map[string]any{"path": "/tmp/x"}, "")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"read"}, files.callNames())
	assert.Empty(t, repo.callNames())

	_, err = hub.CallTool(context.Background(), "repo.search", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"search"}, repo.callNames())
}

func TestCallToolUnqualifiedUsesIndex(t *testing.T) {
	factory := newFakeFactory()
	repo := factory.serve("repo", tool("search"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("repo", "id-repo")))

	_, err := hub.ListTools(context.Background(), "")
	require.NoError(t, err)

	_, err = hub.CallTool(context.Background(), "search", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"search"}, repo.callNames())
}

func TestCallToolNotFound(t *testing.T) {
	factory := newFakeFactory()
	hub, _ := newTestHub(t, factory, nil)

	_, err := hub.CallTool(context.Background(), "nope", nil, "")
	require.ErrorIs(t, err, ErrToolNotFound)
	assert.Empty(t, factory.dials)
}

func TestCallToolPrefixMismatch(t *testing.T) {
	factory := newFakeFactory()
	// "files" exposes a raw tool whose name happens to look like a
	// qualified name claiming "repo".
	files := factory.serve("files", tool("repo.read"))
	factory.serve("repo", tool("search"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))
	require.True(t, store.Upsert(record("repo", "id-repo")))

	_, err := hub.ListTools(context.Background(), "")
	require.NoError(t, err)

	_, err = hub.CallTool(context.Background(), "repo.read", nil, "")
	require.ErrorIs(t, err, ErrPrefixMismatch)
	assert.Empty(t, files.callNames())

	// The fully qualified form names the real owner and dispatches the raw
	// name unchanged.
	_, err = hub.CallTool(context.Background(), "files.repo.read", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"repo.read"}, files.callNames())
}

func TestCallToolQualifiedWithoutIndex(t *testing.T) {
	factory := newFakeFactory()
	files := factory.serve("files", tool("read"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))

	// No listing happened yet; the claimed prefix alone resolves the owner.
	_, err := hub.CallTool(context.Background(), "files.read", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, files.callNames())
}

func TestCallToolStaleIndexEntry(t *testing.T) {
	factory := newFakeFactory()
	factory.serve("files", tool("read"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))

	_, err := hub.ListTools(context.Background(), "")
	require.NoError(t, err)

	// The upstream disappears after being indexed.
	store.Remove("files")

	_, err = hub.CallTool(context.Background(), "files.read", nil, "")
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestCallToolDialErrorPropagates(t *testing.T) {
	factory := newFakeFactory()
	factory.dialErr["files"] = errors.New("connection refused")
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))

	_, err := hub.CallTool(context.Background(), "files.read", nil, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrToolNotFound)
}

func TestCallToolInvocationErrorPropagates(t *testing.T) {
	factory := newFakeFactory()
	files := factory.serve("files", tool("read"))
	files.callErr = errors.New("tool execution failed")
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))

	_, err := hub.CallTool(context.Background(), "files.read", nil, "")
	require.ErrorContains(t, err, "tool execution failed")
	assert.Equal(t, 1, files.closes)
}

func TestCallToolForwardsCredential(t *testing.T) {
	factory := newFakeFactory()
	factory.serve("files", tool("read"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(record("files", "id-files")))

	_, err := hub.CallTool(context.Background(), "files.read", nil, "caller-key")
	require.NoError(t, err)
	assert.Equal(t, []string{"caller-key"}, factory.creds)
}

func TestCallToolNormalizedAliasMatchesPrefix(t *testing.T) {
	factory := newFakeFactory()
	drive := factory.serve("Google Drive", tool("fetch"))
	hub, store := newTestHub(t, factory, nil)
	require.True(t, store.Upsert(&upstreams.Record{
		ID:        "id-drive",
		Alias:     "Google Drive",
		Transport: upstreams.TransportHTTP,
		Endpoint:  "https://drive.example.com/mcp",
	}))

	// The normalized form of the claimed prefix matches the owner's alias.
	_, err := hub.CallTool(context.Background(), "google_drive.fetch", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch"}, drive.callNames())
}
