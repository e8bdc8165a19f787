package game

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"
)

// =============================================================================
// STRESS TEST SUITE: ARENA UNDER LOAD
// Run with: go test -v -run=TestStress -timeout=60s ./internal/game/...
// =============================================================================

// StressTestResult contains metrics from stress tests
type StressTestResult struct {
	TotalTicks      int
	AvgTickTime     time.Duration
	MaxTickTime     time.Duration
	P99TickTime     time.Duration
	IntentsHandled  int
	PeakPlayers     int
	PeakBombs       int
	TotalDetonation int
}

// StressTestConfig configures stress test parameters
type StressTestConfig struct {
	Ticks            int
	TickStep         time.Duration // simulated time per tick
	InitialPlayers   int
	JoinLeaveRate    float64 // probability of a join or leave per tick
	ThrowRate        float64 // probability a player clicks on a tick
	LatencyThreshold time.Duration
}

// DefaultStressConfig returns a busy-arena config
func DefaultStressConfig() StressTestConfig {
	return StressTestConfig{
		Ticks:            600,
		TickStep:         time.Second / 60,
		InitialPlayers:   60,
		JoinLeaveRate:    0.1,
		ThrowRate:        0.2,
		LatencyThreshold: 10 * time.Millisecond,
	}
}

// -----------------------------------------------------------------------------
// STRESS TEST: SUSTAINED LOAD
// -----------------------------------------------------------------------------

func TestStress_SustainedLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	cfg := DefaultStressConfig()
	result := runStressTest(t, cfg)

	if result.AvgTickTime > cfg.LatencyThreshold {
		t.Errorf("Average tick time %v exceeds threshold %v", result.AvgTickTime, cfg.LatencyThreshold)
	}
	if result.TotalDetonation == 0 {
		t.Error("Expected bombs to detonate under load")
	}

	t.Logf("Stress Test Results:")
	t.Logf("  Total Ticks: %d", result.TotalTicks)
	t.Logf("  Avg Tick Time: %v", result.AvgTickTime)
	t.Logf("  Max Tick Time: %v", result.MaxTickTime)
	t.Logf("  P99 Tick Time: %v", result.P99TickTime)
	t.Logf("  Intents Handled: %d", result.IntentsHandled)
	t.Logf("  Peak Players: %d", result.PeakPlayers)
	t.Logf("  Peak Bombs: %d", result.PeakBombs)
}

// -----------------------------------------------------------------------------
// STRESS TEST: INVARIANTS UNDER CHURN
// -----------------------------------------------------------------------------

// TestStress_InvariantsHold checks health bounds and world bounds every tick
func TestStress_InvariantsHold(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	cfg := DefaultStressConfig()
	cfg.Ticks = 300
	cfg.ThrowRate = 0.5

	engine := newTestEngine()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 30; i++ {
		engine.AddPlayer(fmt.Sprintf("P%d", i), fmt.Sprintf("c%02d", i))
	}

	for tick := 0; tick < cfg.Ticks; tick++ {
		for i := 0; i < 30; i++ {
			engine.SubmitIntent(fmt.Sprintf("c%02d", i), randomIntent(rng, cfg.ThrowRate))
		}
		engine.Tick(at(time.Duration(tick)*cfg.TickStep), nil)

		ws := engine.WorldState()
		for _, p := range ws.Players {
			if p.Health < 0 || p.Health > MaxHealth {
				t.Fatalf("Tick %d: health out of range for %s: %d", tick, p.ID, p.Health)
			}
			if p.Dead != (p.Health == 0) {
				t.Fatalf("Tick %d: dead flag disagrees with health for %s", tick, p.ID)
			}
			if !engine.World().Contains(Vec2{p.X, p.Y}) {
				t.Fatalf("Tick %d: %s outside world at (%f,%f)", tick, p.ID, p.X, p.Y)
			}
		}
		for _, b := range ws.Bombs {
			if b.Fuse <= 0 {
				t.Fatalf("Tick %d: expired bomb %d still live", tick, b.ID)
			}
		}
	}
}

func randomIntent(rng *rand.Rand, throwRate float64) Intent {
	return Intent{
		Move: Movement{
			Up:    rng.Intn(2) == 0,
			Down:  rng.Intn(2) == 0,
			Left:  rng.Intn(2) == 0,
			Right: rng.Intn(2) == 0,
		},
		Aim:   Vec2{rng.Float64() * WorldMax, rng.Float64() * WorldMax},
		Throw: rng.Float64() < throwRate,
	}
}

// -----------------------------------------------------------------------------
// HELPER: RUN STRESS TEST
// -----------------------------------------------------------------------------

func runStressTest(t *testing.T, cfg StressTestConfig) StressTestResult {
	engine := newTestEngine()
	rng := rand.New(rand.NewSource(1))

	conns := make([]string, 0, cfg.InitialPlayers)
	nextConn := 0
	join := func() {
		conn := fmt.Sprintf("conn-%d", nextConn)
		nextConn++
		if _, err := engine.AddPlayer(fmt.Sprintf("Player%d", nextConn), conn); err == nil {
			conns = append(conns, conn)
		}
	}
	for i := 0; i < cfg.InitialPlayers; i++ {
		join()
	}

	var result StressTestResult
	tickTimes := make([]time.Duration, 0, cfg.Ticks)
	var total time.Duration

	for tick := 0; tick < cfg.Ticks; tick++ {
		if rng.Float64() < cfg.JoinLeaveRate {
			if rng.Float64() < 0.5 || len(conns) == 0 {
				join()
			} else {
				i := rng.Intn(len(conns))
				engine.RemovePlayer(conns[i])
				conns = append(conns[:i], conns[i+1:]...)
			}
		}

		for _, conn := range conns {
			engine.SubmitIntent(conn, randomIntent(rng, cfg.ThrowRate))
			result.IntentsHandled++
		}

		start := time.Now()
		stats := engine.Tick(at(time.Duration(tick)*cfg.TickStep), nil)
		elapsed := time.Since(start)

		tickTimes = append(tickTimes, elapsed)
		total += elapsed
		result.TotalTicks++
		result.TotalDetonation += stats.Detonations
		if elapsed > result.MaxTickTime {
			result.MaxTickTime = elapsed
		}
		if stats.Players > result.PeakPlayers {
			result.PeakPlayers = stats.Players
		}
		if stats.Bombs > result.PeakBombs {
			result.PeakBombs = stats.Bombs
		}
	}

	result.AvgTickTime = total / time.Duration(result.TotalTicks)
	sort.Slice(tickTimes, func(i, j int) bool { return tickTimes[i] < tickTimes[j] })
	result.P99TickTime = tickTimes[len(tickTimes)*99/100]
	return result
}
