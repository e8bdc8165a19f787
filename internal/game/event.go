package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeThrow
	EventTypeDetonation
	EventTypeKill
	EventTypeRespawn
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is one line of the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // simulation time, unix nano
	Sequence  uint64          `json:"sequence"`
	TickNum   uint64          `json:"tickNum"`
	PlayerID  string          `json:"playerId"` // source player, used for rate limiting
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeThrow:
		return "throw"
	case EventTypeDetonation:
		return "detonation"
	case EventTypeKill:
		return "kill"
	case EventTypeRespawn:
		return "respawn"
	default:
		return "unknown"
	}
}

// MarshalText lets the log carry readable type names
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	PlayerCount    int `json:"playerCount"`
	BombCount      int `json:"bombCount"`
	ExplosionCount int `json:"explosionCount"`
}

// PlayerJoinPayload contains player join details
type PlayerJoinPayload struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	SpawnX     float64 `json:"spawnX"`
	SpawnY     float64 `json:"spawnY"`
}

// PlayerLeavePayload contains player leave details
type PlayerLeavePayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Kills      int    `json:"kills"`
	Deaths     int    `json:"deaths"`
}

// ThrowPayload records a bomb leaving a player's hand
type ThrowPayload struct {
	BombID  uint64  `json:"bombId"`
	OwnerID string  `json:"ownerId"`
	FromX   float64 `json:"fromX"`
	FromY   float64 `json:"fromY"`
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
}

// DetonationPayload records where a bomb went off
type DetonationPayload struct {
	BombID  uint64  `json:"bombId"`
	OwnerID string  `json:"ownerId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// KillPayload contains kill event details
type KillPayload struct {
	KillerID      string `json:"killerId"`
	VictimID      string `json:"victimId"`
	SelfInflicted bool   `json:"selfInflicted"`
}

// RespawnPayload contains respawn event details
type RespawnPayload struct {
	PlayerID string  `json:"playerId"`
	SpawnX   float64 `json:"spawnX"`
	SpawnY   float64 `json:"spawnY"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the simulation time it happened at
func NewEvent(eventType EventType, at time.Time, tickNum uint64, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: at.UnixNano(),
		TickNum:   tickNum,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
