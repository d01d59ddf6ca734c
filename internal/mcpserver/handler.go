package mcpserver

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/formationhub/contentd/internal/auth"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/site"
)

// NewHandler returns the streamable HTTP handler for /mcp. It keeps one
// MCP server per subscription tier; a session is bound to the tier of the
// caller that opened it. The handler expects auth.Middleware in front.
func NewHandler(holder *content.Holder, s *site.Site, version string) http.Handler {
	servers := make(map[string]*mcp.Server, len(s.Tiers))
	for _, tier := range s.Tiers {
		servers[tier] = NewServer(Deps{Holder: holder, Site: s, Tier: tier}, version)
	}
	lowest := servers[s.LowestTier()]

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		if srv, ok := servers[auth.RequestTier(r.Context())]; ok {
			return srv
		}
		return lowest
	}, nil)
}

// NewServer returns an MCP server with the content tools registered.
func NewServer(d Deps, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "contentd", Version: version},
		nil,
	)
	RegisterTools(server, d)
	return server
}
