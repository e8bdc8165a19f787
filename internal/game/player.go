package game

import (
	"math"
	"math/rand"
	"time"
)

// Player tuning
const (
	MaxHealth     = 10
	MovementSpeed = 200.0 // units per second per axis
	PlayerSize    = 50.0
	ThrowCooldown = 500 * time.Millisecond
	RespawnDelay  = 3 * time.Second
	MaxNameLength = 19
)

var playerColors = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4",
	"#ffeaa7", "#dfe6e9", "#fd79a8", "#00b894",
	"#6c5ce7", "#fdcb6e", "#e17055", "#00cec9",
}

// Player is a connected participant. It is keyed by its connection ID.
type Player struct {
	Body

	ID          string
	Name        string
	Color       string
	Health      int
	Kills       int
	Deaths      int
	Orientation float64 // radians toward the last aim point
	Speed       float64
	Dead        bool

	lastThrow      time.Time
	respawnPending bool
}

// NewPlayer creates a player at spawn with full health
func NewPlayer(id, name string, spawn Vec2) *Player {
	return &Player{
		Body:   NewBody(spawn, PlayerSize),
		ID:     id,
		Name:   name,
		Color:  playerColors[rand.Intn(len(playerColors))],
		Health: MaxHealth,
		Speed:  MovementSpeed,
	}
}

// ApplyIntent moves the player, re-aims, and throws a bomb if the cooldown allows.
// Dead players ignore intent entirely. The returned bomb, if any, belongs to the caller.
func (p *Player) ApplyIntent(in Intent, now time.Time) *Bomb {
	if p.Dead {
		return nil
	}

	// Diagonals are deliberately not normalised.
	step := p.Speed * p.Elapsed(now)
	if in.Move.Up {
		p.Position.Y -= step
	}
	if in.Move.Down {
		p.Position.Y += step
	}
	if in.Move.Left {
		p.Position.X -= step
	}
	if in.Move.Right {
		p.Position.X += step
	}

	p.Orientation = math.Atan2(in.Aim.Y-p.Position.Y, in.Aim.X-p.Position.X)

	if !in.Throw || p.CooldownRemaining(now) > 0 {
		return nil
	}
	p.lastThrow = now
	return NewBomb(p.Position, in.Aim, BombFuse, p.ID, now)
}

// CooldownRemaining returns how long until the next throw is allowed
func (p *Player) CooldownRemaining(now time.Time) time.Duration {
	if p.lastThrow.IsZero() {
		return 0
	}
	left := ThrowCooldown - now.Sub(p.lastThrow)
	if left < 0 {
		return 0
	}
	return left
}

// Update advances a live player and keeps it inside the world.
// A dead player instead asks respawns for a single deferred respawn.
func (p *Player) Update(now time.Time, world *World, respawns RespawnScheduler) {
	if p.Dead {
		if !p.respawnPending && respawns != nil {
			p.respawnPending = respawns.ScheduleRespawn(p.ID, now.Add(RespawnDelay))
		}
		return
	}

	p.Integrate(now)
	p.Position = world.Clamp(p.Position)
}

// Damage subtracts health, clamped to [0, MaxHealth].
// It returns true only when this call killed the player.
func (p *Player) Damage(amount int) bool {
	if p.Dead || amount <= 0 {
		return false
	}
	p.Health -= amount
	if p.Health > 0 {
		return false
	}
	p.Health = 0
	p.die()
	return true
}

func (p *Player) die() {
	p.Dead = true
	p.Deaths++
	p.Stop()
}

// Respawn restores the player to full health at point
func (p *Player) Respawn(point Vec2) {
	p.Body = NewBody(point, PlayerSize)
	p.Health = MaxHealth
	p.Dead = false
	p.respawnPending = false
}

// RespawnPending reports whether a respawn has been scheduled and not yet fired
func (p *Player) RespawnPending() bool {
	return p.respawnPending
}
