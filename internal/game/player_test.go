package game

import (
	"testing"
	"time"
)

// TestNewPlayer tests player creation with defaults
func TestNewPlayer(t *testing.T) {
	player := NewPlayer("conn-1", "TestPlayer", Vec2{100, 200})

	if player == nil {
		t.Fatal("NewPlayer returned nil")
	}
	if player.Name != "TestPlayer" {
		t.Errorf("Expected name 'TestPlayer', got '%s'", player.Name)
	}
	if player.ID != "conn-1" {
		t.Errorf("Expected ID 'conn-1', got '%s'", player.ID)
	}
	if player.Health != MaxHealth {
		t.Errorf("Expected health %d, got %d", MaxHealth, player.Health)
	}
	if player.Radius != PlayerSize {
		t.Errorf("Expected size %f, got %f", PlayerSize, player.Radius)
	}
	if player.Position != (Vec2{100, 200}) {
		t.Errorf("Expected position (100,200), got %v", player.Position)
	}
	if player.Color == "" {
		t.Error("Expected a color")
	}
	if player.Dead {
		t.Error("New player should be alive")
	}
}

// TestPlayerMovement verifies each direction moves by speed·dt and diagonals are not normalised
func TestPlayerMovement(t *testing.T) {
	tests := []struct {
		name string
		move Movement
		want Vec2
	}{
		{"idle", Movement{}, Vec2{500, 500}},
		{"up", Movement{Up: true}, Vec2{500, 300}},
		{"down", Movement{Down: true}, Vec2{500, 700}},
		{"left", Movement{Left: true}, Vec2{300, 500}},
		{"right", Movement{Right: true}, Vec2{700, 500}},
		{"diagonal", Movement{Up: true, Right: true}, Vec2{700, 300}},
		{"opposed", Movement{Left: true, Right: true}, Vec2{500, 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := restingPlayer("p1", Vec2{500, 500})

			p.ApplyIntent(Intent{Move: tt.move, Aim: Vec2{600, 500}}, at(time.Second))

			if !approxEqual(p.Position.X, tt.want.X) || !approxEqual(p.Position.Y, tt.want.Y) {
				t.Errorf("Expected %v, got %v", tt.want, p.Position)
			}
		})
	}
}

// TestPlayerOrientation verifies the player faces its aim point
func TestPlayerOrientation(t *testing.T) {
	p := restingPlayer("p1", Vec2{500, 500})

	p.ApplyIntent(Intent{Aim: Vec2{500, 600}}, t0)

	if !approxEqual(p.Orientation, 1.5707963267948966) {
		t.Errorf("Expected orientation π/2, got %f", p.Orientation)
	}
}

// TestPlayerThrowCooldown verifies at most one bomb per cooldown window
func TestPlayerThrowCooldown(t *testing.T) {
	p := restingPlayer("p1", Vec2{500, 500})
	throw := Intent{Aim: Vec2{600, 500}, Throw: true}

	first := p.ApplyIntent(throw, t0)
	if first == nil {
		t.Fatal("First throw should produce a bomb")
	}
	if first.OwnerID != "p1" {
		t.Errorf("Expected owner 'p1', got '%s'", first.OwnerID)
	}
	if first.Position != p.Position {
		t.Errorf("Bomb should start at the player, got %v", first.Position)
	}

	if b := p.ApplyIntent(throw, at(100*time.Millisecond)); b != nil {
		t.Error("Throw inside the cooldown should be refused")
	}
	if got := p.CooldownRemaining(at(100 * time.Millisecond)); got != 400*time.Millisecond {
		t.Errorf("Expected 400ms cooldown remaining, got %v", got)
	}

	if b := p.ApplyIntent(throw, at(ThrowCooldown)); b == nil {
		t.Error("Throw after the cooldown should be allowed")
	}

	if b := p.ApplyIntent(Intent{Aim: Vec2{600, 500}}, at(2*ThrowCooldown)); b != nil {
		t.Error("No bomb without a throw request")
	}
}

// TestDeadPlayerIgnoresIntent verifies a dead player neither moves nor throws
func TestDeadPlayerIgnoresIntent(t *testing.T) {
	p := restingPlayer("p1", Vec2{500, 500})
	p.Damage(MaxHealth)

	b := p.ApplyIntent(Intent{Move: Movement{Up: true}, Aim: Vec2{0, 0}, Throw: true}, at(time.Second))

	if b != nil {
		t.Error("Dead player should not throw")
	}
	if p.Position != (Vec2{500, 500}) {
		t.Errorf("Dead player should not move, got %v", p.Position)
	}
}

// TestPlayerDamage tests damage clamping and death
func TestPlayerDamage(t *testing.T) {
	p := NewPlayer("p1", "Victim", Vec2{})

	if p.Damage(3) {
		t.Error("Non-lethal damage should not report a death")
	}
	if p.Health != 7 {
		t.Errorf("Expected health 7, got %d", p.Health)
	}

	if !p.Damage(25) {
		t.Error("Lethal damage should report a death")
	}
	if p.Health != 0 {
		t.Errorf("Expected health clamped to 0, got %d", p.Health)
	}
	if !p.Dead || p.Deaths != 1 {
		t.Errorf("Expected dead with 1 death, got dead=%v deaths=%d", p.Dead, p.Deaths)
	}

	if p.Damage(5) {
		t.Error("Damaging a dead player should not kill again")
	}
	if p.Deaths != 1 {
		t.Errorf("Expected deaths to stay 1, got %d", p.Deaths)
	}
}

// TestPlayerUpdateClampsToWorld verifies a pushed player stays inside the arena
func TestPlayerUpdateClampsToWorld(t *testing.T) {
	w := NewWorld(0, 2500, 1)
	p := restingPlayer("p1", Vec2{10, 2490})
	p.Velocity = Vec2{-1000, 1000}

	p.Update(at(time.Second), w, nil)

	if p.Position != (Vec2{0, 2500}) {
		t.Errorf("Expected clamped to (0,2500), got %v", p.Position)
	}
}

// TestPlayerRespawnScheduling verifies a dead player schedules exactly one respawn
func TestPlayerRespawnScheduling(t *testing.T) {
	w := NewWorld(0, 2500, 1)
	q := newRespawnQueue()
	p := restingPlayer("p1", Vec2{500, 500})
	p.Damage(MaxHealth)

	p.Update(at(time.Second), w, q)
	p.Update(at(2*time.Second), w, q)

	if !p.RespawnPending() {
		t.Fatal("Expected respawn pending")
	}
	if q.Len() != 1 {
		t.Fatalf("Expected 1 queued respawn, got %d", q.Len())
	}
	if due := q.PopDue(at(3 * time.Second)); len(due) != 0 {
		t.Errorf("Respawn fired early: %v", due)
	}
	due := q.PopDue(at(time.Second + RespawnDelay))
	if len(due) != 1 || due[0] != "p1" {
		t.Fatalf("Expected p1 due, got %v", due)
	}

	p.Respawn(Vec2{1000, 1000})
	if p.Dead || p.Health != MaxHealth {
		t.Errorf("Expected alive at full health, got dead=%v health=%d", p.Dead, p.Health)
	}
	if p.RespawnPending() {
		t.Error("Respawn should clear the pending flag")
	}
	if p.Deaths != 1 {
		t.Errorf("Respawn should keep the death count, got %d", p.Deaths)
	}
	if p.Velocity != (Vec2{}) || p.Position != (Vec2{1000, 1000}) {
		t.Errorf("Expected at rest at spawn, got pos=%v vel=%v", p.Position, p.Velocity)
	}
}

// TestRespawnQueueOrdering verifies due entries come back sorted and only once
func TestRespawnQueueOrdering(t *testing.T) {
	q := newRespawnQueue()
	q.ScheduleRespawn("c", t0)
	q.ScheduleRespawn("a", t0)
	q.ScheduleRespawn("b", at(time.Hour))

	if q.ScheduleRespawn("a", at(time.Second)) {
		t.Error("Scheduling twice should be refused")
	}

	due := q.PopDue(t0)
	if len(due) != 2 || due[0] != "a" || due[1] != "c" {
		t.Errorf("Expected [a c], got %v", due)
	}
	if !q.Pending("b") || q.Pending("a") {
		t.Error("Only b should remain pending")
	}

	q.Cancel("b")
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

// TestIntentBufferKeepsThrow verifies a later intent cannot swallow an earlier click
func TestIntentBufferKeepsThrow(t *testing.T) {
	buf := NewIntentBuffer()

	buf.Put("p1", Intent{Aim: Vec2{1, 1}, Throw: true})
	buf.Put("p1", Intent{Move: Movement{Left: true}, Aim: Vec2{2, 2}})
	buf.Put("p2", Intent{Aim: Vec2{3, 3}})

	if buf.Len() != 2 {
		t.Fatalf("Expected 2 pending, got %d", buf.Len())
	}

	got := buf.Drain()
	in := got["p1"]
	if !in.Throw {
		t.Error("Throw should survive a later intent")
	}
	if in.Aim != (Vec2{2, 2}) || !in.Move.Left {
		t.Errorf("Expected latest movement and aim, got %+v", in)
	}

	if buf.Drain() != nil {
		t.Error("Second drain should be empty")
	}

	buf.Put("p3", Intent{})
	buf.Discard("p3")
	if buf.Len() != 0 {
		t.Error("Discard should drop the intent")
	}
}
