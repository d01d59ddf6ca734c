package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/formationhub/contentd/internal/auth"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/render"
	"github.com/formationhub/contentd/internal/resolve"
	"github.com/formationhub/contentd/internal/search"
	"github.com/formationhub/contentd/internal/site"
	"github.com/formationhub/contentd/internal/slug"
)

type handlers struct {
	holder   *content.Holder
	site     *site.Site
	renderer *render.Renderer
	logger   *slog.Logger
}

// listResponse is the body of every listing endpoint.
type listResponse struct {
	PassID    string             `json:"passId"`
	Count     int                `json:"count"`
	Documents []content.Document `json:"documents"`
}

// documentResponse is the body of a single-document lookup. Body and HTML
// are withheld when the caller's tier is below the document's.
type documentResponse struct {
	Document content.Document `json:"document"`
	Locked   bool             `json:"locked"`
	Body     string           `json:"body,omitempty"`
	HTML     string           `json:"html,omitempty"`
}

type categoryResponse struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	snap := h.holder.Load()
	if snap.PassID == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"passId":       snap.PassID,
		"mode":         snap.Mode,
		"discoveredAt": snap.DiscoveredAt.Format(time.RFC3339),
		"posts":        len(snap.Posts),
		"tutorials":    len(snap.Tutorials),
		"skipped":      len(snap.Skipped),
	})
}

func (h *handlers) listPosts(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Load()
	docs := content.Filter(snap.Posts, "", r.URL.Query().Get("tag"))
	writeJSON(w, http.StatusOK, listResponse{PassID: snap.PassID, Count: len(docs), Documents: docs})
}

func (h *handlers) listTutorials(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Load()
	category := chi.URLParam(r, "category")
	docs := content.Filter(snap.Tutorials, category, r.URL.Query().Get("tag"))

	if category != "" && len(docs) == 0 && !hasTutorials(snap, category) {
		if !isNavCategory(h.site, category) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, listResponse{PassID: snap.PassID, Count: len(docs), Documents: docs})
}

func (h *handlers) getPost(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Load()
	doc, ok := resolve.Post(snap, chi.URLParam(r, "*"))
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	h.serveDocument(w, r, snap, doc)
}

func (h *handlers) getTutorial(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Load()
	doc, ok := resolve.Tutorial(snap, chi.URLParam(r, "category"), chi.URLParam(r, "*"))
	if !ok {
		writeError(w, http.StatusNotFound, "tutorial not found")
		return
	}
	h.serveDocument(w, r, snap, doc)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	var kind content.Kind
	switch q.Get("type") {
	case "":
	case "post", "posts":
		kind = content.KindPost
	case "tutorial", "tutorials":
		kind = content.KindTutorial
	default:
		writeError(w, http.StatusBadRequest, "type must be post or tutorial")
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	tier := h.callerTier(r)

	result, err := search.Search(r.Context(), h.holder.Load(), query, search.Options{
		Limit:   limit,
		Kind:    kind,
		CanRead: func(d content.Document) bool { return h.site.Allows(tier, d.Tier) },
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "search cancelled")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// callerTier returns the authenticated tier, or the lowest tier for
// anonymous callers.
func (h *handlers) callerTier(r *http.Request) string {
	if tier := auth.RequestTier(r.Context()); tier != "" {
		return tier
	}
	return h.site.LowestTier()
}

func (h *handlers) serveDocument(w http.ResponseWriter, r *http.Request, snap *content.Snapshot, doc content.Document) {
	if tier := h.callerTier(r); !h.site.Allows(tier, doc.Tier) {
		h.logger.Debug("document locked for caller",
			slog.String("source", doc.SourceRef),
			slog.String("tier", tier),
			slog.String("required", doc.Tier),
			slog.String("ip", auth.RequestRemoteIP(r.Context())),
		)
		writeJSON(w, http.StatusOK, documentResponse{Document: doc, Locked: true})
		return
	}

	body, err := snap.Body(r.Context(), doc)
	if err != nil {
		h.logger.Warn("reading document body",
			slog.String("source", doc.SourceRef),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "document unavailable")
		return
	}

	html, err := h.renderer.HTML(r.Context(), render.Key(snap.PassID, doc.SourceRef), body)
	if err != nil {
		h.logger.Warn("rendering document",
			slog.String("source", doc.SourceRef),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "document unavailable")
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{Document: doc, Body: body, HTML: html})
}

// categories lists navigation categories first, in site order, followed
// by any category only present in content.
func (h *handlers) categories(w http.ResponseWriter, _ *http.Request) {
	snap := h.holder.Load()

	counts := make(map[string]int)
	for _, d := range snap.Tutorials {
		counts[strings.ToLower(d.Category)]++
	}

	out := make([]categoryResponse, 0, len(h.site.Categories)+len(counts))
	listed := make(map[string]bool)
	for _, c := range h.site.Categories {
		listed[c.Slug] = true
		out = append(out, categoryResponse{Slug: c.Slug, Title: c.Title, Description: c.Description, Count: counts[c.Slug]})
	}
	for _, c := range snap.Categories() {
		if listed[c] {
			continue
		}
		out = append(out, categoryResponse{Slug: c, Title: slug.Title(c), Count: counts[c]})
	}

	writeJSON(w, http.StatusOK, out)
}

func hasTutorials(snap *content.Snapshot, category string) bool {
	for _, d := range snap.Tutorials {
		if strings.EqualFold(d.Category, category) {
			return true
		}
	}
	return false
}

func isNavCategory(s *site.Site, category string) bool {
	for _, c := range s.Categories {
		if strings.EqualFold(c.Slug, category) {
			return true
		}
	}
	return false
}
