package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"bomb-arena/internal/api"
	"bomb-arena/internal/config"
	"bomb-arena/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("💣 ================================")
	log.Println("💣  BOMB ARENA - GO SERVER")
	log.Println("💣 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	simCfg := appConfig.Sim
	limits := appConfig.Limits

	engine := game.NewEngine(game.EngineConfig{
		TickRate:        simCfg.TickRate,
		WorldMin:        0,
		WorldMax:        simCfg.WorldSize,
		Seed:            simCfg.Seed,
		AimMargin:       simCfg.AimMargin,
		LeaderboardSize: simCfg.LeaderboardSize,
		Limits: game.ResourceLimits{
			MaxPlayers:    limits.MaxPlayers,
			MaxBombs:      limits.MaxBombs,
			MaxExplosions: limits.MaxExplosions,
		},
	})
	engine.OnTick = api.RecordTick

	log.Printf("🎮 Config: %d TPS, arena %.0fx%.0f, seed %d", simCfg.TickRate, simCfg.WorldSize, simCfg.WorldSize, simCfg.Seed)
	log.Printf("🛡️ Resource limits: %d players, %d bombs, %d explosions, %d sockets (%d per IP)",
		limits.MaxPlayers, limits.MaxBombs, limits.MaxExplosions, limits.MaxWSConnections, limits.MaxWSPerIP)

	// Start event log
	if path := appConfig.Observability.EventLogPath; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.Enabled = appConfig.Observability.DebugEnabled
	debugCfg.ListenAddr = appConfig.Observability.DebugAddr
	debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
	if err := api.StartDebugServer(debugCfg); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	server := api.NewServer(engine, api.ServerConfig{
		CORSOrigins: appConfig.Server.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: limits.HTTPPerSecond,
			Burst:             limits.HTTPBurst,
			ImageCost:         limits.HTTPImageCost,
		},
		Hub: api.HubConfig{
			MaxConnections:   limits.MaxWSConnections,
			MaxPerIP:         limits.MaxWSPerIP,
			IntentsPerSecond: limits.IntentsPerSecond,
			IntentBurst:      limits.IntentBurst,
		},
		StaticFilesDir: os.Getenv("STATIC_DIR"),
	})

	// Start game engine
	engine.Start()
	log.Println("✅ Game Engine started")

	stopPolling := make(chan struct{})
	go api.PollStats(engine, server, 5*time.Second, stopPolling)

	// Start API server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(":" + strconv.Itoa(appConfig.Server.Port))
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			log.Printf("❌ Server failed: %v", err)
		}
	}

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}

	engine.Stop()
	close(stopPolling)
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}
