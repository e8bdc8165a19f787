// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all arena and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the simulation settings shared by the engine and the API.
type SimConfig struct {
	TickRate        int     // Simulation ticks per second (also the snapshot rate)
	WorldSize       float64 // Arena spans [0, WorldSize] on both axes
	Seed            int64   // Spawn RNG seed; 0 picks one from the clock
	LeaderboardSize int     // Leaderboard rows included in each snapshot
	AimMargin       float64 // How far outside the arena an aim point may be
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:        60,
		WorldSize:       2500,
		Seed:            0,
		LeaderboardSize: 10,
		AimMargin:       2500,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if ws := getEnvFloat("WORLD_SIZE", 0); ws > 0 {
		cfg.WorldSize = ws
	}
	if seed := getEnvInt64("RNG_SEED", 0); seed != 0 {
		cfg.Seed = seed
	}
	if n := getEnvInt("SNAPSHOT_LEADERBOARD", -1); n >= 0 {
		cfg.LeaderboardSize = n
	}
	if m := getEnvFloat("AIM_MARGIN", 0); m > 0 {
		cfg.AimMargin = m
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxPlayers       int     // Hard cap on joined players
	MaxBombs         int     // Live bombs across the arena
	MaxExplosions    int     // Explosion records kept for presentation
	MaxWSConnections int     // Total websocket connections
	MaxWSPerIP       int     // Websocket connections per client IP
	IntentsPerSecond float64 // Sustained player-action rate per connection
	IntentBurst      int
	HTTPPerSecond    float64 // REST requests per IP
	HTTPBurst        int
	HTTPImageCost    int     // Tokens one arena image costs against HTTPBurst
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxPlayers:       100,
		MaxBombs:         400,
		MaxExplosions:    200,
		MaxWSConnections: 500,
		MaxWSPerIP:       10,
		IntentsPerSecond: 120, // client sends one per animation frame
		IntentBurst:      30,
		HTTPPerSecond:    20,
		HTTPBurst:        40,
		HTTPImageCost:    5,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.MaxPlayers = mp
	}
	if mb := getEnvInt("MAX_BOMBS", 0); mb > 0 {
		cfg.MaxBombs = mb
	}
	if mc := getEnvInt("MAX_WS_CONNECTIONS", 0); mc > 0 {
		cfg.MaxWSConnections = mc
	}
	if ic := getEnvInt("HTTP_IMAGE_COST", 0); ic > 0 {
		cfg.HTTPImageCost = ic
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
		CORSOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvList("CORS_ORIGINS"); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig holds metrics, profiling and event log settings.
type ObservabilityConfig struct {
	DebugEnabled bool   // Serve pprof and /metrics on DebugAddr
	DebugAddr    string // Localhost only by default
	EventLogPath string // JSONL event log; empty disables it
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugEnabled: true,
		DebugAddr:    "127.0.0.1:6060",
		EventLogPath: "",
	}
}

// ObservabilityFromEnv returns observability configuration with environment variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugEnabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	if path := os.Getenv("EVENT_LOG_PATH"); path != "" {
		cfg.EventLogPath = path
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig
	Server        ServerConfig
	Limits        ResourceLimits
	Observability ObservabilityConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:           SimFromEnv(),
		Server:        ServerFromEnv(),
		Limits:        LimitsFromEnv(),
		Observability: ObservabilityFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
