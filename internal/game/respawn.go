package game

import (
	"sort"
	"time"
)

// RespawnScheduler defers a player's respawn. It returns false if one is already pending.
type RespawnScheduler interface {
	ScheduleRespawn(playerID string, at time.Time) bool
}

// respawnQueue holds pending respawns in simulated time, keyed by connection ID.
// The engine cancels an entry when its player leaves; a due entry whose player
// is already gone is dropped when it fires.
type respawnQueue struct {
	due map[string]time.Time
}

func newRespawnQueue() *respawnQueue {
	return &respawnQueue{due: make(map[string]time.Time)}
}

func (q *respawnQueue) ScheduleRespawn(playerID string, at time.Time) bool {
	if _, ok := q.due[playerID]; ok {
		return false
	}
	q.due[playerID] = at
	return true
}

// Cancel drops any pending respawn for playerID
func (q *respawnQueue) Cancel(playerID string) {
	delete(q.due, playerID)
}

// Pending reports whether playerID has a respawn queued
func (q *respawnQueue) Pending(playerID string) bool {
	_, ok := q.due[playerID]
	return ok
}

// PopDue removes and returns every entry due at or before now, in ID order
func (q *respawnQueue) PopDue(now time.Time) []string {
	var ids []string
	for id, at := range q.due {
		if !at.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(q.due, id)
	}
	return ids
}

func (q *respawnQueue) Len() int {
	return len(q.due)
}
