package api

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"bomb-arena/internal/game"
	"bomb-arena/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096 // a player-action is well under 200 bytes
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Use the centralized origin checker
		if IsAllowedOrigin(origin) {
			return true
		}

		// Log rejected origin for security monitoring
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// GameInterface is the part of the engine a websocket session drives
type GameInterface interface {
	AddPlayer(name, connID string) (game.PlayerState, error)
	RemovePlayer(connID string) (string, bool)
	SubmitIntent(connID string, in game.Intent) error
}

// HubConfig bounds connections and per-connection input
type HubConfig struct {
	MaxConnections   int
	MaxPerIP         int
	IntentsPerSecond float64
	IntentBurst      int
}

// DefaultHubConfig returns production-safe defaults
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxConnections:   500,
		MaxPerIP:         10,
		IntentsPerSecond: 120,
		IntentBurst:      30,
	}
}

// session is one websocket connection. Its id doubles as the connection id
// the engine keys the player by.
type session struct {
	id      string
	conn    *websocket.Conn
	ip      string
	codec   protocol.Codec
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter
	joined  atomic.Bool

	closeOnce sync.Once
}

// trySend queues a frame without blocking. It reports false when the client
// is gone or too slow to keep up.
func (s *session) trySend(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		return true
	default:
		IncrementWSDropped()
		return false
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// sendEvent encodes and queues one message
func (s *session) sendEvent(event string, data interface{}) {
	frame, err := s.codec.Encode(event, data)
	if err != nil {
		log.Printf("⚠️ Encode %s for %s failed: %v", event, s.id, err)
		return
	}
	s.trySend(frame)
}

func (s *session) sendError(err error) {
	s.sendEvent(protocol.EventError, protocol.ErrorMessage{Error: err.Error()})
}

// WebSocketHub manages all player connections with DoS protection.
// It receives per-tick snapshots and presentation events from the engine.
type WebSocketHub struct {
	game     GameInterface
	cfg      HubConfig
	sessions map[string]*session
	closed   bool
	mu       sync.RWMutex

	// Connection limiting per IP
	conns *connLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(g GameInterface, cfg HubConfig) *WebSocketHub {
	def := DefaultHubConfig()
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = def.MaxPerIP
	}
	if cfg.IntentsPerSecond <= 0 {
		cfg.IntentsPerSecond = def.IntentsPerSecond
	}
	if cfg.IntentBurst <= 0 {
		cfg.IntentBurst = def.IntentBurst
	}

	return &WebSocketHub{
		game:     g,
		cfg:      cfg,
		sessions: make(map[string]*session),
		conns:    newConnLimiter(cfg.MaxPerIP),
	}
}

// IPStats reports how connections are spread over client IPs
func (h *WebSocketHub) IPStats() ConnLimitStats {
	return h.conns.Stats()
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *WebSocketHub) register(s *session) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	log.Printf("📱 Client %s connected from %s via %s (%d total)", s.id, s.ip, s.codec.Name(), count)
	UpdateWSConnections(count)
	return true
}

func (h *WebSocketHub) unregister(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	count := len(h.sessions)
	h.mu.Unlock()

	s.close()
	if !ok {
		return
	}

	// Release the connection slot for this IP
	h.conns.Release(s.ip)
	log.Printf("📱 Client %s disconnected (%d remaining)", s.id, count)
	UpdateWSConnections(count)
}

// joinedSessions copies the sessions that have a player in the arena
func (h *WebSocketHub) joinedSessions() []*session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.joined.Load() {
			out = append(out, s)
		}
	}
	return out
}

// Publish sends each joined connection its own snapshot
func (h *WebSocketHub) Publish(snaps map[string]game.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, snap := range snaps {
		s, ok := h.sessions[id]
		if !ok {
			continue
		}
		frame, err := s.codec.Encode(protocol.EventUpdate, snap)
		if err != nil {
			log.Printf("⚠️ Encode update for %s failed: %v", id, err)
			continue
		}
		if s.trySend(frame) {
			IncrementWSMessages()
		}
	}
}

// Kill announces a kill to every joined player
func (h *WebSocketHub) Kill(ev game.KillEvent) {
	h.broadcast(protocol.EventNotification, protocol.KillNotification(ev))
}

// Sound asks every joined player to play a cue
func (h *WebSocketHub) Sound(ev game.SoundEvent) {
	h.broadcast(protocol.EventSound, protocol.NewSound(ev))
}

// broadcast encodes once per codec and queues the frame on every joined session
func (h *WebSocketHub) broadcast(event string, data interface{}) {
	frames := make(map[string][]byte, 2)
	for _, s := range h.joinedSessions() {
		frame, ok := frames[s.codec.Name()]
		if !ok {
			var err error
			frame, err = s.codec.Encode(event, data)
			if err != nil {
				log.Printf("⚠️ Encode %s failed: %v", event, err)
				return
			}
			frames[s.codec.Name()] = frame
		}
		if s.trySend(frame) {
			IncrementWSMessages()
		}
	}
}

// Stop refuses new connections and closes every open one
func (h *WebSocketHub) Stop() {
	h.mu.Lock()
	h.closed = true
	open := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	for _, s := range open {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		s.close()
	}
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection.
// The codec query parameter selects the wire format ("json" or "msgpack").
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := GetClientIP(r)

	// Check total connection limit
	if total := h.ClientCount(); total >= h.cfg.MaxConnections {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.conns.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	// Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.conns.Release(ip) // Release the slot we reserved
		return
	}

	s := &session{
		id:      uuid.NewString(),
		conn:    conn,
		ip:      ip,
		codec:   protocol.ForName(r.URL.Query().Get("codec")),
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.IntentsPerSecond), h.cfg.IntentBurst),
	}

	if !h.register(s) {
		h.conns.Release(ip)
		conn.Close()
		return
	}

	go h.writePump(s)
	go h.readPump(s)
}

// writePump is the only goroutine that writes to the connection
func (h *WebSocketHub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	messageType := websocket.TextMessage
	if s.codec.Binary() {
		messageType = websocket.BinaryMessage
	}

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(messageType, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes client messages until the connection drops, then removes the player
func (h *WebSocketHub) readPump(s *session) {
	defer func() {
		if s.joined.Load() {
			h.game.RemovePlayer(s.id)
		}
		h.unregister(s)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ WebSocket read error from %s: %v", s.id, err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := s.codec.Decode(frame)
		if err != nil {
			s.sendError(err)
			continue
		}

		switch {
		case msg.NewPlayer != nil:
			h.handleNewPlayer(s, msg.NewPlayer)
		case msg.Action != nil:
			h.handleAction(s, msg.Action)
		}
	}
}

func (h *WebSocketHub) handleNewPlayer(s *session, np *protocol.NewPlayer) {
	state, err := h.game.AddPlayer(np.Name, s.id)
	if err != nil {
		if !errors.Is(err, game.ErrInvalidName) {
			log.Printf("⚠️ Join rejected for %s: %v", s.id, err)
		}
		s.sendError(err)
		return
	}

	s.joined.Store(true)
	s.sendEvent(protocol.EventJoined, protocol.Joined{ID: s.id, Player: state})
}

func (h *WebSocketHub) handleAction(s *session, action *protocol.PlayerAction) {
	if !s.joined.Load() {
		RecordIntentDropped("not_joined")
		s.sendError(game.ErrUnknownPlayer)
		return
	}

	if !s.limiter.Allow() {
		RecordIntentDropped("rate_limit")
		return
	}

	in, err := action.Intent()
	if err == nil {
		err = h.game.SubmitIntent(s.id, in)
	}
	if err != nil {
		RecordIntentDropped("invalid")
		s.sendError(err)
	}
}
