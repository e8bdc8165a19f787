package game

import (
	"math"
	"time"
)

// ResourceLimits defines hard caps to prevent DoS attacks
type ResourceLimits struct {
	MaxPlayers    int // Hard cap on connected players
	MaxBombs      int // Live bombs across the arena
	MaxExplosions int // Explosion records kept for presentation
}

// DefaultLimits provides production-safe default limits
var DefaultLimits = ResourceLimits{
	MaxPlayers:    100,
	MaxBombs:      400,
	MaxExplosions: 200,
}

// PlayerState is an immutable copy of a player for the wire
type PlayerState struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Size        float64 `json:"size"`
	Health      int     `json:"health"`
	MaxHealth   int     `json:"maxHealth"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Orientation float64 `json:"orientation"`
	Cooldown    float64 `json:"cooldown"` // seconds until the next throw
	Dead        bool    `json:"dead"`
}

// BombState is an immutable copy of a live bomb
type BombState struct {
	ID      uint64  `json:"id"`
	OwnerID string  `json:"ownerId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Fuse    float64 `json:"fuse"` // seconds remaining
}

// ExplosionState is an immutable copy of a playing explosion
type ExplosionState struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Size        float64 `json:"size"`
	Frame       int     `json:"frame"`
	TotalFrames int     `json:"totalFrames"`
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// Snapshot is the per-connection view sent once per tick
type Snapshot struct {
	Tick        uint64             `json:"tick"`
	Self        PlayerState        `json:"self"`
	Players     []PlayerState      `json:"players"`
	Bombs       []BombState        `json:"bombs"`
	Explosions  []ExplosionState   `json:"explosions"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// WorldSnapshot is the unfiltered world published after every tick for
// lock-free readers (REST handlers, spectator image)
type WorldSnapshot struct {
	Tick        uint64             `json:"tick"`
	Timestamp   time.Time          `json:"timestamp"`
	WorldMin    Vec2               `json:"worldMin"`
	WorldMax    Vec2               `json:"worldMax"`
	Players     []PlayerState      `json:"players"`
	Bombs       []BombState        `json:"bombs"`
	Explosions  []ExplosionState   `json:"explosions"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`

	PlayerCount      int `json:"playerCount"`
	AliveCount       int `json:"aliveCount"`
	TotalKills       int `json:"totalKills"`
	TotalDetonations int `json:"totalDetonations"`
}

// State copies the player for a snapshot
func (p *Player) State(now time.Time) PlayerState {
	return PlayerState{
		ID:          p.ID,
		Name:        p.Name,
		Color:       p.Color,
		X:           p.Position.X,
		Y:           p.Position.Y,
		VX:          p.Velocity.X,
		VY:          p.Velocity.Y,
		Size:        p.Radius,
		Health:      p.Health,
		MaxHealth:   MaxHealth,
		Kills:       p.Kills,
		Deaths:      p.Deaths,
		Orientation: p.Orientation,
		Cooldown:    p.CooldownRemaining(now).Seconds(),
		Dead:        p.Dead,
	}
}

// State copies the bomb for a snapshot
func (b *Bomb) State() BombState {
	return BombState{
		ID:      b.ID,
		OwnerID: b.OwnerID,
		X:       b.Position.X,
		Y:       b.Position.Y,
		Size:    b.Radius,
		Fuse:    math.Max(0, b.Fuse.Seconds()),
	}
}

// State copies the explosion for a snapshot
func (e *Explosion) State() ExplosionState {
	return ExplosionState{
		X:           e.Position.X,
		Y:           e.Position.Y,
		Size:        e.Radius,
		Frame:       e.Frame,
		TotalFrames: e.TotalFrames,
	}
}
