package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"bomb-arena/internal/game"

	"github.com/go-chi/chi/v5"
)

// ServerConfig wires the HTTP server to its limits and origins
type ServerConfig struct {
	CORSOrigins    []string
	RateLimit      RateLimitConfig
	Hub            HubConfig
	StaticFilesDir string
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub that carries the game.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: The engine is not attached until Start() is called.
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine *game.Engine, cfg ServerConfig) *Server {
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit = DefaultRateLimitConfig
	}
	if len(cfg.CORSOrigins) > 0 {
		SetAllowedOrigins(cfg.CORSOrigins)
	}

	s := &Server{
		engine:      engine,
		wsHub:       NewWebSocketHub(engine, cfg.Hub),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
	}

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.CORSOrigins,
		StaticFilesDir: cfg.StaticFilesDir,
	})

	// Add WebSocket routes (these need the wsHub instance)
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Hub returns the websocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Attach routes engine snapshots and events to connected clients
func (s *Server) Attach() {
	s.engine.SetPublisher(s.wsHub)
	s.engine.SetSink(s.wsHub)
}

// LimitStats reports how many clients the REST and websocket limiters track
func (s *Server) LimitStats() LimitStats {
	return LimitStats{
		HTTPClients: s.rateLimiter.Clients(),
		WebSocket:   s.wsHub.IPStats(),
	}
}

// Start attaches the hub to the engine and serves until Shutdown.
// It returns nil after a graceful shutdown, even one that came first.
func (s *Server) Start(addr string) error {
	s.Attach()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Printf("🌐 API server listening on %s", ln.Addr())
	log.Printf("🎮 Play at http://localhost%s/", addr)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes websocket sessions, then drains HTTP requests within ctx
func (s *Server) Shutdown(ctx context.Context) error {
	s.engine.SetPublisher(nil)
	s.engine.SetSink(nil)
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
