package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig meters REST traffic per client IP. Spectators poll the JSON
// routes; an arena image is a full render and is charged ImageCost tokens.
type RateLimitConfig struct {
	RequestsPerSecond float64       // token refill per IP
	Burst             int           // bucket size per IP
	ImageCost         int           // tokens charged for /api/arena.png
	CleanupInterval   time.Duration // buckets idle for twice this are forgotten
}

// DefaultRateLimitConfig lets a spectator poll state at 10 Hz and pull an
// image every second without tripping the limiter
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	ImageCost:         5,
	CleanupInterval:   5 * time.Minute,
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds one token bucket per client IP
type IPRateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientBucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a limiter and starts its idle sweep
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimitConfig.Burst
	}
	if cfg.ImageCost <= 0 {
		cfg.ImageCost = 1
	}
	// A cost above the bucket size could never be paid
	cfg.ImageCost = min(cfg.ImageCost, cfg.Burst)
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}

	rl := &IPRateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientBucket),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the idle sweep
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// AllowN charges cost tokens to ip and reports whether it could pay
func (rl *IPRateLimiter) AllowN(ip string, cost int) bool {
	now := time.Now()

	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	return c.limiter.AllowN(now, cost)
}

// Clients returns how many client IPs currently hold a bucket
func (rl *IPRateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now.Add(-2 * rl.cfg.CleanupInterval))
		}
	}
}

// sweep forgets every bucket not used since cutoff
func (rl *IPRateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// requestCost classifies a request for metering and metrics
func (rl *IPRateLimiter) requestCost(r *http.Request) (kind string, cost int) {
	if strings.HasSuffix(r.URL.Path, ".png") {
		return "image", rl.cfg.ImageCost
	}
	return "json", 1
}

// retryAfter is the whole seconds needed to refill cost tokens
func (rl *IPRateLimiter) retryAfter(cost int) int {
	if rl.cfg.RequestsPerSecond <= 0 {
		return 60
	}
	return max(1, int(math.Ceil(float64(cost)/rl.cfg.RequestsPerSecond)))
}

// Middleware rejects requests whose client IP has run out of tokens
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, cost := rl.requestCost(r)
		if !rl.AllowN(GetClientIP(r), cost) {
			RecordAPIRequest(kind, "limited")
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(cost)))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		RecordAPIRequest(kind, "allowed")
		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP from an HTTP request.
// X-Forwarded-For is only trustworthy behind a proxy that overwrites it.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ConnLimitStats describes websocket connections grouped by client IP
type ConnLimitStats struct {
	IPs      int // distinct IPs holding at least one connection
	Busiest  int // most connections held by a single IP
	MaxPerIP int
}

// connLimiter caps concurrent websocket connections per client IP
type connLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	maxPerIP int
}

func newConnLimiter(maxPerIP int) *connLimiter {
	return &connLimiter{perIP: make(map[string]int), maxPerIP: maxPerIP}
}

// Acquire reserves a connection slot for ip
func (c *connLimiter) Acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.perIP[ip] >= c.maxPerIP {
		return false
	}
	c.perIP[ip]++
	return true
}

// Release frees a slot taken by Acquire
func (c *connLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.perIP[ip]; n > 1 {
		c.perIP[ip] = n - 1
	} else {
		delete(c.perIP, ip)
	}
}

func (c *connLimiter) Stats() ConnLimitStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := ConnLimitStats{IPs: len(c.perIP), MaxPerIP: c.maxPerIP}
	for _, n := range c.perIP {
		stats.Busiest = max(stats.Busiest, n)
	}
	return stats
}
