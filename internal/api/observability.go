package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"sync"
	"time"

	"bomb-arena/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in a simulation tick, including snapshot fan-out",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_player_count",
		Help: "Current number of joined players",
	})

	bombCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_bomb_count",
		Help: "Current number of live bombs",
	})

	explosionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_explosion_count",
		Help: "Current number of playing explosions",
	})

	detonationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_detonations_total",
		Help: "Bombs detonated",
	})

	killsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_kills_total",
		Help: "Players killed by explosions, self-inflicted included",
	})

	// Detonation broad phase, sampled on ticks that detonate
	gridOccupiedCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_broadphase_occupied_cells",
		Help: "Grid cells holding at least one player",
	})

	gridMaxPerCell = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_broadphase_max_players_per_cell",
		Help: "Most players sharing one grid cell",
	})

	// Event log metrics
	eventLogTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_dropped_total",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "WebSocket upgrades rejected by connection limits or origin check",
	}, []string{"reason"}) // Bounded: "origin", "ws_total_limit", "ws_ip_limit"

	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "REST requests seen by the rate limiter",
	}, []string{"kind", "outcome"}) // Bounded: kind "json"/"image", outcome "allowed"/"limited"

	apiLimitedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "api_ratelimit_clients",
		Help: "Client IPs holding a REST token bucket",
	})

	intentsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_intents_dropped_total",
		Help: "Player actions rejected before reaching the simulation",
	}, []string{"reason"}) // Bounded: "rate_limit", "not_joined", "invalid"

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	wsSendDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_send_dropped_total",
		Help: "Outbound messages dropped because a client was too slow",
	})

	wsClientIPs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_client_ips",
		Help: "Distinct client IPs with an open WebSocket",
	})

	wsBusiestIP = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_busiest_ip_connections",
		Help: "Most WebSocket connections held by one client IP",
	})

	wsPerIPLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_per_ip_limit",
		Help: "Configured WebSocket connections allowed per client IP",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// isLocalAddr reports whether addr binds to the loopback interface
func isLocalAddr(addr string) bool {
	return strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:")
}

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is localhost
	if !isLocalAddr(cfg.ListenAddr) {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records one simulation tick. It is meant to be the engine's OnTick hook.
func RecordTick(stats game.TickStats) {
	tickDuration.Observe(stats.Duration.Seconds())
	playerCount.Set(float64(stats.Players))
	bombCount.Set(float64(stats.Bombs))
	explosionCount.Set(float64(stats.Explosions))
	if stats.Detonations > 0 {
		detonationsTotal.Add(float64(stats.Detonations))
	}
	if stats.Kills > 0 {
		killsTotal.Add(float64(stats.Kills))
	}
	if stats.Detonations > 0 {
		gridOccupiedCells.Set(float64(stats.Grid.NonEmptyCells))
		gridMaxPerCell.Set(float64(stats.Grid.MaxInCell))
	}
}

// EventLogSource is the part of the engine that reports event log counters
type EventLogSource interface {
	GetEventLogStats() map[string]interface{}
}

// eventLogTracker turns the event log's absolute counts into counter deltas
type eventLogTracker struct {
	mu        sync.Mutex
	lastTotal uint64
	lastDrop  uint64
}

func (t *eventLogTracker) update(total, dropped uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if total > t.lastTotal {
		eventLogTotal.Add(float64(total - t.lastTotal))
		t.lastTotal = total
	}
	if dropped > t.lastDrop {
		eventLogDropped.Add(float64(dropped - t.lastDrop))
		t.lastDrop = dropped
	}
}

// LimitStats is a point-in-time view of the connection limiters
type LimitStats struct {
	HTTPClients int
	WebSocket   ConnLimitStats
}

// LimitStatsSource reports limiter occupancy
type LimitStatsSource interface {
	LimitStats() LimitStats
}

// RecordLimitStats publishes limiter occupancy as gauges
func RecordLimitStats(stats LimitStats) {
	apiLimitedClients.Set(float64(stats.HTTPClients))
	wsClientIPs.Set(float64(stats.WebSocket.IPs))
	wsBusiestIP.Set(float64(stats.WebSocket.Busiest))
	wsPerIPLimit.Set(float64(stats.WebSocket.MaxPerIP))
}

// PollStats copies event log counters and limiter occupancy into metrics
// every interval until stop closes. Either source may be nil.
func PollStats(events EventLogSource, limits LimitStatsSource, interval time.Duration, stop <-chan struct{}) {
	var tracker eventLogTracker
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if events != nil {
				stats := events.GetEventLogStats()
				total, _ := stats["total"].(uint64)
				dropped, _ := stats["dropped"].(uint64)
				tracker.update(total, dropped)
			}
			if limits != nil {
				RecordLimitStats(limits.LimitStats())
			}
		}
	}
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordAPIRequest counts a metered REST request
func RecordAPIRequest(kind, outcome string) {
	apiRequests.WithLabelValues(kind, outcome).Inc()
}

// RecordIntentDropped counts a player action that never reached the simulation
// reason must be one of: "rate_limit", "not_joined", "invalid"
func RecordIntentDropped(reason string) {
	intentsDropped.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// IncrementWSDropped counts a message dropped for a slow client
func IncrementWSDropped() {
	wsSendDropped.Inc()
}
