// internal/httpserver/hub.go
//
// Live game feed over websockets.
// Clients subscribe to one game id at GET /ws/game/{id}. After every
// committed move the server publishes the game view, and the hub fans it out
// to that game's subscribers. Slow clients drop messages instead of blocking
// the hub. Idle connections get a ping message every wsIdlePingInterval.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type update struct {
	gameID string
	view   gameView
}

// Hub tracks subscribers per game.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]map[*wsClient]struct{}
	broadcast chan update
}

type wsClient struct {
	gameID string
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]map[*wsClient]struct{}),
		broadcast: make(chan update, 64),
	}
}

// Run fans out published views until done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case u := <-h.broadcast:
			msg := mustMarshal(wsMessage{Type: "game", Payload: mustMarshal(u.view)})
			h.mu.Lock()
			for c := range h.clients[u.gameID] {
				c.trySend(msg)
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a view for gameID's subscribers without blocking.
func (h *Hub) Publish(gameID string, v gameView) {
	select {
	case h.broadcast <- update{gameID: gameID, view: v}:
	default:
		log.Warn().Str("gameId", gameID).Msg("hub backlog full, dropping update")
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.gameID]
	if set == nil {
		set = make(map[*wsClient]struct{})
		h.clients[c.gameID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.gameID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.gameID)
	}
}

// Subscribers returns how many clients follow gameID.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[gameID])
}

func (c *wsClient) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleWS subscribes the connection to a game and sends the current view.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}

	c := &wsClient{gameID: sess.ID, send: make(chan []byte, 16)}
	sess.Lock()
	first := s.view(sess)
	sess.Unlock()
	c.trySend(mustMarshal(wsMessage{Type: "game", Payload: mustMarshal(first)}))
	s.hub.register(c)

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, c.send); err != nil {
			log.Debug().Err(err).Str("gameId", c.gameID).Msg("websocket write")
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.unregister(c)
			return
		}
	}
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
