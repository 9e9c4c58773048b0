package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erazemk/stash/internal/model"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type subscriber struct {
	out chan []byte
}

// Hub fans events out to websocket subscribers of a stash. Slow subscribers
// lose events instead of holding up the sender.
type Hub struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[int64]map[*subscriber]struct{}
}

// NewHub creates a hub. checkOrigin may be nil to accept same-origin
// requests only.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		subs: make(map[int64]map[*subscriber]struct{}),
	}
}

// Emit sends e to every subscriber of its stash without blocking.
func (h *Hub) Emit(_ context.Context, e model.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[e.StashID] {
		select {
		case sub.out <- msg:
		default:
			slog.Warn("dropping event for slow subscriber", "stash", e.StashID, "event", e.ID)
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers of a stash.
func (h *Hub) Subscribers(stashID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[stashID])
}

// Serve upgrades the request to a websocket and streams the stash's events
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, stashID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()

	sub := &subscriber{out: make(chan []byte, sendBuffer)}
	h.add(stashID, sub)
	defer h.remove(stashID, sub)

	// Reader: only needed to notice the client closing and to handle pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-sub.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(stashID int64, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[stashID] == nil {
		h.subs[stashID] = make(map[*subscriber]struct{})
	}
	h.subs[stashID][sub] = struct{}{}
}

func (h *Hub) remove(stashID int64, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[stashID], sub)
	if len(h.subs[stashID]) == 0 {
		delete(h.subs, stashID)
	}
}
