package game

import (
	"math"
	"time"
)

// Bomb tuning
const (
	BombRadius      = 15.0
	BombFuse        = 1500 * time.Millisecond
	BombStopTime    = 500 * time.Millisecond // bombs come to rest this long after the throw
	BombTravelTime  = 0.5                    // seconds a throw takes to reach its target, ignoring friction
	ExplosionRadius = 150.0                  // detonation reach
	ExplosionForce  = 20000.0                // force at distance zero
	DamageScale     = 0.0004                 // health lost per unit of force
)

// Bomb is a thrown, time-fused explosive
type Bomb struct {
	Body

	ID      uint64
	OwnerID string
	Fuse    time.Duration // remaining

	createdAt time.Time
	stopped   bool
	exists    bool
	detonated bool
}

// NewBomb creates a bomb at origin moving in a straight line so that, without
// friction, it would reach target after BombTravelTime
func NewBomb(origin, target Vec2, fuse time.Duration, ownerID string, now time.Time) *Bomb {
	b := &Bomb{
		Body:      NewBody(origin, BombRadius),
		OwnerID:   ownerID,
		Fuse:      fuse,
		createdAt: now,
		exists:    true,
	}
	b.Velocity = target.Sub(origin).Scale(1 / BombTravelTime)
	return b
}

// Update integrates the bomb and counts down its fuse.
// It returns true only on the tick the fuse runs out.
func (b *Bomb) Update(now time.Time) bool {
	if !b.exists {
		return false
	}

	step := b.ElapsedDuration(now)
	b.Integrate(now)

	b.Fuse -= step
	if b.Fuse < 0 {
		b.Fuse = 0
	}

	if !b.stopped && now.Sub(b.createdAt) >= BombStopTime {
		b.stopped = true
		b.Stop()
	}

	if b.Fuse == 0 {
		b.exists = false
		return true
	}
	return false
}

// Exists reports whether the bomb is still live
func (b *Bomb) Exists() bool {
	return b.exists
}

// Stopped reports whether the post-throw deceleration window has elapsed
func (b *Bomb) Stopped() bool {
	return b.stopped
}

// Detonated reports whether Explode has already run for this bomb
func (b *Bomb) Detonated() bool {
	return b.detonated
}

// ExplosionMagnitude is the linear falloff force law: ExplosionForce at the
// centre, zero at and beyond ExplosionRadius
func ExplosionMagnitude(distance float64) float64 {
	if distance >= ExplosionRadius || distance < 0 {
		return 0
	}
	return ExplosionForce * (ExplosionRadius - distance) / ExplosionRadius
}

// ExplosionDamage converts a force magnitude into whole health points
func ExplosionDamage(magnitude float64) int {
	return int(math.Round(magnitude * DamageScale))
}

// Explode resolves the detonation against the live players and the other live
// bombs, then returns the explosion record. A bomb only ever detonates once;
// later calls return nil.
func (b *Bomb) Explode(now time.Time, players []*Player, bombs []*Bomb, sink EventSink) *Explosion {
	if b.detonated {
		return nil
	}
	b.detonated = true
	b.exists = false

	if sink == nil {
		sink = NopSink{}
	}
	origin := b.Position

	for _, other := range bombs {
		if other == b || !other.exists {
			continue
		}
		d := origin.DistanceTo(other.Position)
		if mag := ExplosionMagnitude(d); mag > 0 {
			if dir, ok := unitFrom(origin, other.Position, d); ok {
				other.ApplyForce(dir.Scale(mag))
			}
		}
	}

	var owner *Player
	for _, p := range players {
		if p.ID == b.OwnerID {
			owner = p
			break
		}
	}

	for _, p := range players {
		if p.Dead {
			continue
		}
		d := origin.DistanceTo(p.Position)
		mag := ExplosionMagnitude(d)
		if mag == 0 {
			continue
		}
		if dir, ok := unitFrom(origin, p.Position, d); ok {
			p.ApplyForce(dir.Scale(mag))
		}

		if !p.Damage(ExplosionDamage(mag)) {
			continue
		}

		kill := KillEvent{VictimID: p.ID, VictimName: p.Name}
		if p.ID == b.OwnerID {
			kill.SelfInflicted = true
			kill.KillerID = p.ID
			kill.KillerName = p.Name
		} else if owner != nil {
			owner.Kills++
			kill.KillerID = owner.ID
			kill.KillerName = owner.Name
		}
		sink.Kill(kill)
		sink.Sound(SoundEvent{Cue: SoundDeath, Position: p.Position, Volume: 1})
	}

	sink.Sound(SoundEvent{Cue: SoundExplosion, Position: origin, Volume: 1})
	return NewExplosion(origin, ExplosionDisplayRadius, now, ExplosionDuration, 1)
}

// unitFrom returns the unit vector pointing from origin to target.
// A target sitting exactly on the origin has no direction.
func unitFrom(origin, target Vec2, distance float64) (Vec2, bool) {
	if distance == 0 {
		return Vec2{}, false
	}
	return target.Sub(origin).Scale(1 / distance), true
}
