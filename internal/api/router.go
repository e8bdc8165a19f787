package api

import (
	"net/http"

	"bomb-arena/internal/game"
	"bomb-arena/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the REST API.
// This interface enables mocking for tests without spinning up the full game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// WorldState returns the latest lock-free world snapshot (nil before the first tick)
	WorldState() *game.WorldSnapshot
	// Leaderboard ranks every player and returns the top n (n <= 0 for all)
	Leaderboard(n int) []game.LeaderboardEntry
	// GetEventLogStats returns event log counters
	GetEventLogStats() map[string]interface{}
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Renderer draws /api/arena.png. If nil, a new one is created.
	Renderer *render.ArenaRenderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string

	// StaticFilesDir is the directory the browser client is served from.
	// If empty, defaults to "./public".
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine   EngineInterface
	renderer *render.ArenaRenderer
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the rate limiter's cleanup goroutine
// (pass RateLimiter to own its lifetime). No network listeners are opened.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewArenaRenderer()
	}

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: renderer,
	}

	r.Get("/health", handleHealth)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(corsHandler)

		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/arena.png", h.handleArenaImage)
	})

	// Browser client
	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./public"
	}
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}
