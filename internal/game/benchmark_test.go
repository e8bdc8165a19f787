package game

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// =============================================================================
// BENCHMARK SUITE: CRITICAL PATH PERFORMANCE TESTS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

func seededEngine(playerCount int) *Engine {
	engine := newTestEngine()
	for i := 0; i < playerCount; i++ {
		engine.AddPlayer(fmt.Sprintf("Player%d", i), fmt.Sprintf("c%d", i))
	}
	return engine
}

// -----------------------------------------------------------------------------
// ENGINE TICK BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkEngineTick_10Players(b *testing.B)  { benchmarkEngineTick(b, 10) }
func BenchmarkEngineTick_50Players(b *testing.B)  { benchmarkEngineTick(b, 50) }
func BenchmarkEngineTick_100Players(b *testing.B) { benchmarkEngineTick(b, 100) }

func benchmarkEngineTick(b *testing.B, playerCount int) {
	engine := seededEngine(playerCount)
	rng := rand.New(rand.NewSource(1))
	step := time.Second / 60

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		for j := 0; j < playerCount; j++ {
			engine.SubmitIntent(fmt.Sprintf("c%d", j), randomIntent(rng, 0.05))
		}
		engine.Tick(at(time.Duration(i)*step), nil)
	}
}

// -----------------------------------------------------------------------------
// SNAPSHOT GENERATION BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkSnapshots_10Players(b *testing.B)  { benchmarkSnapshots(b, 10) }
func BenchmarkSnapshots_50Players(b *testing.B)  { benchmarkSnapshots(b, 50) }
func BenchmarkSnapshots_100Players(b *testing.B) { benchmarkSnapshots(b, 100) }

func benchmarkSnapshots(b *testing.B, playerCount int) {
	engine := seededEngine(playerCount)
	engine.Tick(t0, nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.Snapshots(t0)
	}
}

// -----------------------------------------------------------------------------
// DETONATION BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkExplode_100Players(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	players := make([]*Player, 100)
	for i := range players {
		players[i] = NewPlayer(fmt.Sprintf("c%d", i), "P", Vec2{rng.Float64() * 300, rng.Float64() * 300})
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		bomb := NewBomb(Vec2{150, 150}, Vec2{150, 150}, BombFuse, "c0", t0)
		bomb.Explode(t0, players, nil, NopSink{})
		for _, p := range players {
			p.Health = MaxHealth
			p.Dead = false
		}
	}
}

func BenchmarkRankPlayers_100(b *testing.B) {
	engine := seededEngine(100)
	for i, p := range engine.roster {
		p.Kills = i % 7
		p.Deaths = i % 3
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RankPlayers(engine.roster, 10)
	}
}
