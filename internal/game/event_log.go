package game

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Queued events before dropping
	MaxEventsPerSec      = 2000                   // Global rate limit
	MaxEventsPerPlayer   = 50                     // Per-player rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	PlayerLimiterCleanup = 5 * time.Minute        // Cleanup interval for player limiters
)

// EventLog is a bounded, rate-limited, append-only JSONL log of simulation events.
// Emit never blocks the tick: under pressure events are dropped and counted.
type EventLog struct {
	queue chan Event

	// Rate limiting for DoS protection
	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out    *bufio.Writer
	closer io.Closer

	sequence     atomic.Uint64
	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

// playerLimiterEntry tracks per-player rate limiting
type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewEventLog creates a stopped event log; Emit is a no-op until Start
func NewEventLog() *EventLog {
	return &EventLog{
		queue:         make(chan Event, EventBufferSize),
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	el.StartWriter(file)
	el.closer = file
	return nil
}

// StartWriter begins the async writer on an arbitrary destination
func (el *EventLog) StartWriter(w io.Writer) {
	if el.running.Swap(true) {
		return
	}
	el.out = bufio.NewWriter(w)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
}

// Stop flushes what is queued and closes the destination
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()
		if el.closer != nil {
			el.closer.Close()
		}
	})
}

// Emit queues an event. It returns false when the log is stopped, the event
// was rate limited, or the queue is full.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if event.PlayerID != "" && !el.getPlayerLimiter(event.PlayerID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	event.Sequence = el.sequence.Add(1)
	select {
	case el.queue <- event:
		el.totalCount.Add(1)
		return true
	default:
		el.droppedCount.Add(1)
		return false
	}
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, at time.Time, tickNum uint64, playerID string, payload interface{}) bool {
	if !el.running.Load() {
		return false
	}
	return el.Emit(NewEvent(eventType, at, tickNum, playerID, payload))
}

// getPlayerLimiter returns/creates a per-player rate limiter
func (el *EventLog) getPlayerLimiter(playerID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.playerLimiters.Load(playerID); ok {
		e := entry.(*playerLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &playerLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerPlayer, MaxEventsPerPlayer/5),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

// writerLoop batches queued events to the destination
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	enc := json.NewEncoder(el.out)
	pending := 0

	for {
		select {
		case ev := <-el.queue:
			enc.Encode(ev)
			pending++
			if pending >= BatchFlushSize {
				el.out.Flush()
				pending = 0
			}

		case <-ticker.C:
			if pending > 0 {
				el.out.Flush()
				pending = 0
			}

		case <-el.stopChan:
			for {
				select {
				case ev := <-el.queue:
					enc.Encode(ev)
				default:
					el.out.Flush()
					return
				}
			}
		}
	}
}

// cleanupLoop removes stale player limiters to prevent memory leak
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(PlayerLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-PlayerLimiterCleanup).UnixNano()
			el.playerLimiters.Range(func(key, value interface{}) bool {
				if value.(*playerLimiterEntry).lastUsed.Load() < cutoff {
					el.playerLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

// GetStats returns metrics for DoS monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": len(el.queue),
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return el.droppedCount.Load()
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return el.totalCount.Load()
}
