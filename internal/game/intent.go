package game

import "sync"

// Movement holds the held direction keys
type Movement struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Intent is one client's input for a tick
type Intent struct {
	Move  Movement
	Aim   Vec2 // world coordinates
	Throw bool
}

// IntentBuffer collects client intents between ticks.
// Network readers write to it without waiting on the simulation; the tick
// drains it in one swap so it never sees a half-written set.
type IntentBuffer struct {
	mu      sync.Mutex
	pending map[string]Intent
}

// NewIntentBuffer creates an empty buffer
func NewIntentBuffer() *IntentBuffer {
	return &IntentBuffer{pending: make(map[string]Intent)}
}

// Put stores the latest intent for a connection. A throw request survives being
// overwritten by a later intent in the same tick so a click is never lost.
func (b *IntentBuffer) Put(connID string, in Intent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.pending[connID]; ok && prev.Throw {
		in.Throw = true
	}
	b.pending[connID] = in
}

// Drain returns every pending intent and empties the buffer
func (b *IntentBuffer) Drain() map[string]Intent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = make(map[string]Intent, len(out))
	return out
}

// Discard drops a connection's pending intent
func (b *IntentBuffer) Discard(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, connID)
}

// Len returns the number of connections with a pending intent
func (b *IntentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
