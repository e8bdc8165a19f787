package game

// SoundCue names a sound the client should play
type SoundCue string

const (
	SoundShoot     SoundCue = "shoot"
	SoundExplosion SoundCue = "explosion"
	SoundDeath     SoundCue = "death"
)

// KillEvent is emitted when a detonation drops a player to zero health.
// KillerID is empty when the bomb's owner has already disconnected.
type KillEvent struct {
	KillerID      string
	KillerName    string
	VictimID      string
	VictimName    string
	SelfInflicted bool
}

// SoundEvent asks the presentation layer to play a cue at a world position
type SoundEvent struct {
	Cue      SoundCue
	Position Vec2
	Volume   float64 // 0..1
}

// EventSink receives presentation events produced during a tick.
// Implementations must not block: the simulation never waits on them.
type EventSink interface {
	Kill(KillEvent)
	Sound(SoundEvent)
}

// NopSink discards every event
type NopSink struct{}

func (NopSink) Kill(KillEvent)   {}
func (NopSink) Sound(SoundEvent) {}

// bufferedSink collects events so they can be delivered after the engine lock is released
type bufferedSink struct {
	kills  []KillEvent
	sounds []SoundEvent
}

func (b *bufferedSink) Kill(e KillEvent)   { b.kills = append(b.kills, e) }
func (b *bufferedSink) Sound(e SoundEvent) { b.sounds = append(b.sounds, e) }

// flush forwards collected events to dst and resets the buffer
func (b *bufferedSink) flush(dst EventSink) {
	for _, k := range b.kills {
		dst.Kill(k)
	}
	for _, s := range b.sounds {
		dst.Sound(s)
	}
	b.kills = b.kills[:0]
	b.sounds = b.sounds[:0]
}
