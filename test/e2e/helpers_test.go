package e2e_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/formationhub/contentd/internal/app"
	"github.com/formationhub/contentd/internal/config"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/logging"
	"github.com/formationhub/contentd/internal/mcpserver"
	"github.com/formationhub/contentd/internal/render"
	"github.com/formationhub/contentd/internal/server"
)

const (
	freeUser    = "reader"
	starterUser = "founder"
	testSecret  = "e2e-test-secret-value"
)

// harness holds the full e2e test stack: real discovery over a temp
// content tree, the watcher, and the HTTP server with the API, live
// reload and MCP endpoints.
type harness struct {
	URL    string
	Root   string
	Holder *content.Holder
	Hub    *server.Hub
	Client *http.Client
}

// newHarness seeds a content tree, runs the first pass, starts the
// watcher and serves the router from an httptest server.
func newHarness(t *testing.T) *harness {
	t.Helper()

	root := t.TempDir()
	writeDoc(t, root, "blog/hello-world.md", "---\ntitle: Hello World\ndate: 2024-03-01\n---\n# Hello\n")
	writeDoc(t, root, "learn/banking/open-account.md",
		"---\ntitle: Open a Business Account\ndate: 2025-01-10\ntier: starter\n---\nBring photo ID.\n")

	hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		ContentRoot:          root,
		PostsDir:             "blog",
		TutorialsDir:         "learn",
		DefaultCategory:      "general",
		DiscoveryMode:        config.ModeLazy,
		DiscoveryConcurrency: 4,
		DiscoveryReadTimeout: time.Second,
		APIKeys:              freeUser + ":free:" + string(hash) + "," + starterUser + ":starter:" + string(hash),
	}

	logger := logging.Discard()

	c, err := app.NewContent(cfg, logger)
	require.NoError(t, err)

	keys, err := app.NewKeyStore(cfg, c.Site)
	require.NoError(t, err)

	snap, err := c.Discoverer.Discover(context.Background())
	require.NoError(t, err)

	holder := content.NewHolder(snap)
	hub := server.NewHub(logger)

	router := server.New(server.Config{
		Holder:     holder,
		Site:       c.Site,
		Renderer:   render.New(nil, logger),
		Keys:       keys,
		Hub:        hub,
		MCPHandler: mcpserver.NewHandler(holder, c.Site, "test"),
		Logger:     logger,
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = content.Watch(ctx, root, 50*time.Millisecond, logger, func(ctx context.Context) {
			app.Rediscover(ctx, c.Discoverer, holder, hub.Broadcast, logger)
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give fsnotify a moment to set up watches.
	time.Sleep(50 * time.Millisecond)

	return &harness{
		URL:    ts.URL,
		Root:   root,
		Holder: holder,
		Hub:    hub,
		Client: ts.Client(),
	}
}

func writeDoc(t *testing.T, root, rel, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
}

// token returns the bearer token for user.
func token(user string) string {
	return user + "." + testSecret
}

// getJSON performs a GET with an optional bearer token and parses the body.
func (h *harness) getJSON(t *testing.T, path, bearer string) (int, gjson.Result) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, h.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := h.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, gjson.ParseBytes(body)
}

// mcpSession connects an MCP client over streamable HTTP with a bearer
// token.
func (h *harness) mcpSession(t *testing.T, bearer string) (*mcp.ClientSession, error) {
	t.Helper()

	transport := &mcp.StreamableClientTransport{
		Endpoint: h.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{
				token: bearer,
				base:  h.Client.Transport,
			},
		},
		DisableStandaloneSSE: true,
	}

	client := mcp.NewClient(
		&mcp.Implementation{Name: "e2e-test-client", Version: "test"},
		nil,
	)

	session, err := client.Connect(t.Context(), transport, nil)
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { _ = session.Close() })

	return session, nil
}

// extractTextContent returns the text of the first content item.
func extractTextContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is not TextContent")
	return tc.Text
}

// bearerTransport is an http.RoundTripper that injects a Bearer token
// into every request's Authorization header.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (bt *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if bt.token != "" {
		req.Header.Set("Authorization", "Bearer "+bt.token)
	}

	return bt.base.RoundTrip(req)
}
