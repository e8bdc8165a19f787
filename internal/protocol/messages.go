// Package protocol defines the websocket messages exchanged with clients and
// the codecs that frame them.
package protocol

import (
	"errors"
	"math"

	"bomb-arena/internal/game"
)

// Event names. Every frame is an envelope {"event": name, "data": payload}.
const (
	// Inbound
	EventNewPlayer    = "new-player"
	EventPlayerAction = "player-action"

	// Outbound
	EventJoined       = "joined"
	EventUpdate       = "update"
	EventNotification = "notification"
	EventSound        = "sound"
	EventError        = "error"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrMalformed    = errors.New("malformed message")
)

// NewPlayer is sent once by a client to join the arena
type NewPlayer struct {
	Name string `json:"name"`
}

// KeyboardState is the set of held movement keys
type KeyboardState struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// PlayerAction is the client's input, sent every client frame
type PlayerAction struct {
	KeyboardState KeyboardState `json:"keyboardState"`
	Mouse         []float64     `json:"mouse"` // [x, y] in world coordinates
	Click         bool          `json:"click"`
	Timestamp     int64         `json:"timestamp"` // client clock, ms; informational only
}

// Intent converts the action into simulation input
func (a PlayerAction) Intent() (game.Intent, error) {
	if len(a.Mouse) != 2 {
		return game.Intent{}, ErrMalformed
	}
	return game.Intent{
		Move: game.Movement{
			Up:    a.KeyboardState.Up,
			Down:  a.KeyboardState.Down,
			Left:  a.KeyboardState.Left,
			Right: a.KeyboardState.Right,
		},
		Aim:   game.Vec2{X: a.Mouse[0], Y: a.Mouse[1]},
		Throw: a.Click,
	}, nil
}

// ClientMessage is a decoded inbound frame. Exactly one payload is set.
type ClientMessage struct {
	Event     string
	NewPlayer *NewPlayer
	Action    *PlayerAction
}

// Joined acknowledges a successful new-player
type Joined struct {
	ID     string           `json:"id"`
	Player game.PlayerState `json:"player"`
}

// Notification is a short toast shown to the player
type Notification struct {
	Message string `json:"message"`
}

// Sound asks the client to play a cue
type Sound struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ErrorMessage reports a rejected request to the client
type ErrorMessage struct {
	Error string `json:"error"`
}

// NewSound converts a simulation sound event
func NewSound(ev game.SoundEvent) Sound {
	return Sound{
		Name:   string(ev.Cue),
		Volume: math.Max(0, math.Min(1, ev.Volume)),
		X:      ev.Position.X,
		Y:      ev.Position.Y,
	}
}

// KillNotification renders a kill as toast text
func KillNotification(k game.KillEvent) Notification {
	switch {
	case k.SelfInflicted:
		return Notification{Message: k.VictimName + " blew themselves up"}
	case k.KillerName == "":
		return Notification{Message: k.VictimName + " was killed"}
	default:
		return Notification{Message: k.KillerName + " killed " + k.VictimName}
	}
}
