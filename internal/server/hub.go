package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/formationhub/contentd/internal/content"
)

const (
	// reloadWriteTimeout bounds a single notification write.
	reloadWriteTimeout = 5 * time.Second

	// subscriberBuffer is how many notifications a slow client may lag
	// behind before it is disconnected.
	subscriberBuffer = 4
)

// ReloadEvent is sent to live-reload clients after every discovery pass.
type ReloadEvent struct {
	Type      string `json:"type"`
	PassID    string `json:"passId"`
	Posts     int    `json:"posts"`
	Tutorials int    `json:"tutorials"`
}

// Hub fans discovery passes out to connected /ws/reload clients.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub returns an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[chan []byte]struct{})}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast notifies every client of snap. Clients whose buffer is full
// are dropped rather than blocking the pass.
func (h *Hub) Broadcast(snap *content.Snapshot) {
	data, err := json.Marshal(ReloadEvent{
		Type:      "reload",
		PassID:    snap.PassID,
		Posts:     len(snap.Posts),
		Tutorials: len(snap.Tutorials),
	})
	if err != nil {
		h.logger.Error("encoding reload event", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- data:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// ServeHTTP upgrades the request and streams reload events until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Clients never send; CloseRead handles control frames and cancels
	// ctx when the peer disconnects.
	ctx := conn.CloseRead(r.Context())

	h.logger.Debug("reload client connected", slog.Int("clients", h.Clients()))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "too slow")
				return
			}
			if err := writeTimeout(ctx, conn, data); err != nil {
				h.logger.Debug("reload write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func writeTimeout(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, reloadWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
