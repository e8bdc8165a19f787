package game

import (
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"bomb-arena/internal/game/spatial"
)

// EngineConfig configures the simulation
type EngineConfig struct {
	TickRate        int     // ticks per second
	WorldMin        float64 // arena spans [WorldMin, WorldMax] on both axes
	WorldMax        float64
	Seed            int64   // spawn RNG seed
	AimMargin       float64 // how far outside the arena an aim point may lie
	LeaderboardSize int     // entries included in each snapshot; 0 disables
	Limits          ResourceLimits
}

// DefaultEngineConfig returns the standard 60 Hz arena
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:        60,
		WorldMin:        WorldMin,
		WorldMax:        WorldMax,
		Seed:            time.Now().UnixNano(),
		AimMargin:       WorldMax - WorldMin,
		LeaderboardSize: 10,
		Limits:          DefaultLimits,
	}
}

// SnapshotPublisher delivers per-connection snapshots after a tick.
// Publish is called outside the engine lock and must not block for long.
type SnapshotPublisher interface {
	Publish(snapshots map[string]Snapshot)
}

// TickStats summarises one tick for metrics
type TickStats struct {
	Tick        uint64
	Duration    time.Duration
	Players     int
	Bombs       int
	Explosions  int
	Detonations int
	Kills       int
	Grid        spatial.GridStats // player broad phase, filled on ticks that detonate
}

// Engine is the authoritative simulation. It exclusively owns players, bombs
// and explosions; all mutation happens inside Tick or under the engine lock.
type Engine struct {
	mu sync.Mutex

	cfg        EngineConfig
	world      *World
	players    map[string]*Player
	roster     []*Player // join order, for deterministic iteration
	bombs      []*Bomb
	explosions []*Explosion

	intents  *IntentBuffer
	respawns *respawnQueue

	// Detonation broad phase, rebuilt on ticks that have expired bombs
	playerGrid  *spatial.SpatialGrid
	bombGrid    *spatial.SpatialGrid
	nearIdx     []uint32
	nearPlayers []*Player
	nearBombs   []*Bomb

	nextBombID       uint64
	tickCount        uint64
	lastTick         time.Time
	totalKills       int
	totalDetonations int

	latest   atomic.Pointer[WorldSnapshot]
	eventLog *EventLog

	// Loop state
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	doneChan  chan struct{}
	sink      EventSink
	publisher SnapshotPublisher
	pending   bufferedSink

	// OnTick is called after every loop tick, outside the lock
	OnTick func(TickStats)
}

// NewEngine creates an engine with an empty arena
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.WorldMax <= cfg.WorldMin {
		cfg.WorldMin, cfg.WorldMax = WorldMin, WorldMax
	}
	if cfg.AimMargin <= 0 {
		cfg.AimMargin = cfg.WorldMax - cfg.WorldMin
	}
	if cfg.Limits.MaxPlayers <= 0 {
		cfg.Limits.MaxPlayers = DefaultLimits.MaxPlayers
	}
	if cfg.Limits.MaxBombs <= 0 {
		cfg.Limits.MaxBombs = DefaultLimits.MaxBombs
	}
	if cfg.Limits.MaxExplosions <= 0 {
		cfg.Limits.MaxExplosions = DefaultLimits.MaxExplosions
	}

	e := &Engine{
		cfg:        cfg,
		world:      NewWorld(cfg.WorldMin, cfg.WorldMax, cfg.Seed),
		players:    make(map[string]*Player),
		bombs:      make([]*Bomb, 0, cfg.Limits.MaxBombs),
		explosions: make([]*Explosion, 0, cfg.Limits.MaxExplosions),
		intents:    NewIntentBuffer(),
		respawns:   newRespawnQueue(),
		eventLog:   NewEventLog(),
		sink:       NopSink{},
	}
	e.playerGrid = spatial.NewSpatialGrid(cfg.WorldMin, cfg.WorldMin, cfg.WorldMax, cfg.WorldMax,
		ExplosionRadius, cfg.Limits.MaxPlayers)
	e.bombGrid = spatial.NewSpatialGrid(cfg.WorldMin, cfg.WorldMin, cfg.WorldMax, cfg.WorldMax,
		ExplosionRadius, cfg.Limits.MaxBombs)
	e.latest.Store(&WorldSnapshot{WorldMin: e.world.Min, WorldMax: e.world.Max})
	return e
}

// World returns the arena policy
func (e *Engine) World() *World {
	return e.world
}

// Config returns the effective configuration
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// SetSink sets where kill and sound events from the loop are delivered
func (e *Engine) SetSink(sink EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sink == nil {
		sink = NopSink{}
	}
	e.sink = sink
}

// SetPublisher sets who receives per-connection snapshots from the loop
func (e *Engine) SetPublisher(p SnapshotPublisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publisher = p
}

// Start begins the fixed-rate game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	e.stopChan = make(chan struct{})
	e.doneChan = make(chan struct{})
	ticker, stop, done := e.ticker, e.stopChan, e.doneChan
	e.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case now := <-ticker.C:
				e.runTick(now)
			case <-stop:
				return
			}
		}
	}()

	cols, rows, cell := e.playerGrid.Dimensions()
	log.Printf("🎮 Simulation started at %d TPS (broad phase %dx%d cells of %.0f)", e.cfg.TickRate, cols, rows, cell)
}

// Stop stops the game loop and waits for the current tick to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.doneChan
	e.mu.Unlock()

	<-done
	log.Println("🛑 Simulation stopped")
}

// runTick is one loop iteration: step, then deliver events and snapshots unlocked
func (e *Engine) runTick(now time.Time) {
	start := time.Now()

	e.mu.Lock()
	stats := e.step(now, &e.pending)
	sink, publisher := e.sink, e.publisher
	var snaps map[string]Snapshot
	if publisher != nil {
		snaps = e.buildSnapshotsLocked(now)
	}
	e.mu.Unlock()

	e.pending.flush(sink)
	if publisher != nil {
		publisher.Publish(snaps)
	}

	stats.Duration = time.Since(start)
	if e.OnTick != nil {
		e.OnTick(stats)
	}
}

// AddPlayer admits a new player on connID at a random spawn point
func (e *Engine) AddPlayer(name, connID string) (PlayerState, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return PlayerState{}, ErrInvalidName
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.players[connID]; ok {
		return PlayerState{}, fmt.Errorf("%w: %s", ErrPlayerExists, connID)
	}
	if len(e.players) >= e.cfg.Limits.MaxPlayers {
		log.Printf("⚠️ Player limit reached (%d), rejecting: %s", e.cfg.Limits.MaxPlayers, name)
		return PlayerState{}, ErrServerFull
	}

	p := NewPlayer(connID, name, e.world.RandomSpawnPoint())
	e.players[connID] = p
	e.roster = append(e.roster, p)

	e.eventLog.EmitSimple(EventTypePlayerJoin, time.Now(), e.tickCount, connID,
		PlayerJoinPayload{PlayerID: connID, PlayerName: name, SpawnX: p.Position.X, SpawnY: p.Position.Y})

	log.Printf("👤 Player joined: %s (%s)", name, connID)
	return p.State(time.Time{}), nil
}

// RemovePlayer removes the player on connID and returns its name.
// Any pending respawn and buffered intent for the connection are dropped.
func (e *Engine) RemovePlayer(connID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[connID]
	if !ok {
		return "", false
	}
	delete(e.players, connID)

	n := 0
	for _, other := range e.roster {
		if other != p {
			e.roster[n] = other
			n++
		}
	}
	e.roster[n] = nil
	e.roster = e.roster[:n]

	e.respawns.Cancel(connID)
	e.intents.Discard(connID)

	e.eventLog.EmitSimple(EventTypePlayerLeave, time.Now(), e.tickCount, connID,
		PlayerLeavePayload{PlayerID: connID, PlayerName: p.Name, Kills: p.Kills, Deaths: p.Deaths})

	log.Printf("👋 Player left: %s (%s)", p.Name, connID)
	return p.Name, true
}

// HasPlayer reports whether connID has joined
func (e *Engine) HasPlayer(connID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.players[connID]
	return ok
}

// SubmitIntent validates and buffers a client's intent for the next tick.
// Intents for connections that have not joined are dropped when the tick runs.
func (e *Engine) SubmitIntent(connID string, in Intent) error {
	if !in.Aim.IsFinite() {
		return ErrInvalidAim
	}
	m := e.cfg.AimMargin
	if in.Aim.X < e.world.Min.X-m || in.Aim.X > e.world.Max.X+m ||
		in.Aim.Y < e.world.Min.Y-m || in.Aim.Y > e.world.Max.Y+m {
		return fmt.Errorf("%w: (%.0f, %.0f)", ErrInvalidAim, in.Aim.X, in.Aim.Y)
	}
	e.intents.Put(connID, in)
	return nil
}

// Tick advances the simulation to now. Events produced during the tick go to sink.
func (e *Engine) Tick(now time.Time, sink EventSink) TickStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sink == nil {
		sink = NopSink{}
	}
	return e.step(now, sink)
}

// step runs one tick. Caller holds e.mu.
func (e *Engine) step(now time.Time, sink EventSink) TickStats {
	e.tickCount++
	e.lastTick = now
	counted := &countingSink{engine: e, dst: sink, now: now}

	e.fireRespawns(now)
	e.applyIntents(now, counted)

	for _, p := range e.roster {
		p.Update(now, e.world, e.respawns)
	}

	// Sweep bombs: keep live ones in place, queue expired ones for detonation.
	var expired []*Bomb
	n := 0
	for _, b := range e.bombs {
		if b.Update(now) {
			expired = append(expired, b)
			continue
		}
		e.bombs[n] = b
		n++
	}
	for i := n; i < len(e.bombs); i++ {
		e.bombs[i] = nil
	}
	e.bombs = e.bombs[:n]

	var grid spatial.GridStats
	if len(expired) > 0 {
		e.indexForDetonations()
		grid = e.playerGrid.Stats()
	}
	for _, b := range expired {
		ex := e.detonate(b, now, counted)
		if ex == nil {
			continue
		}
		e.totalDetonations++
		e.eventLog.EmitSimple(EventTypeDetonation, now, e.tickCount, b.OwnerID,
			DetonationPayload{BombID: b.ID, OwnerID: b.OwnerID, X: b.Position.X, Y: b.Position.Y})
		e.recordExplosion(ex)
	}

	n = 0
	for _, ex := range e.explosions {
		ex.Update(now)
		if ex.Exists() {
			e.explosions[n] = ex
			n++
		}
	}
	for i := n; i < len(e.explosions); i++ {
		e.explosions[i] = nil
	}
	e.explosions = e.explosions[:n]

	e.eventLog.EmitSimple(EventTypeTick, now, e.tickCount, "",
		TickPayload{PlayerCount: len(e.roster), BombCount: len(e.bombs), ExplosionCount: len(e.explosions)})

	e.publishWorldLocked(now)

	return TickStats{
		Tick:        e.tickCount,
		Players:     len(e.roster),
		Bombs:       len(e.bombs),
		Explosions:  len(e.explosions),
		Detonations: len(expired),
		Kills:       counted.kills,
		Grid:        grid,
	}
}

// recordExplosion appends ex, evicting the oldest explosion at MaxExplosions.
// Explosions share one duration, so the oldest is always first.
func (e *Engine) recordExplosion(ex *Explosion) {
	if len(e.explosions) >= e.cfg.Limits.MaxExplosions {
		copy(e.explosions, e.explosions[1:])
		e.explosions[len(e.explosions)-1] = nil
		e.explosions = e.explosions[:len(e.explosions)-1]
	}
	e.explosions = append(e.explosions, ex)
}

// indexForDetonations buckets live players and bombs by position. Explosions
// only push, so positions hold for the rest of the tick.
func (e *Engine) indexForDetonations() {
	e.playerGrid.Clear()
	for i, p := range e.roster {
		e.playerGrid.Insert(uint32(i), p.Position.X, p.Position.Y)
	}
	e.bombGrid.Clear()
	for i, b := range e.bombs {
		e.bombGrid.Insert(uint32(i), b.Position.X, b.Position.Y)
	}
}

// detonate explodes b against the players and bombs within reach. Candidates
// keep roster order, so kill events come out as a full scan would emit them.
func (e *Engine) detonate(b *Bomb, now time.Time, sink EventSink) *Explosion {
	pos := b.Position
	owner := e.players[b.OwnerID]
	ownerNear := false

	e.nearPlayers = e.nearPlayers[:0]
	for _, i := range e.sortedNear(e.playerGrid, pos) {
		p := e.roster[i]
		ownerNear = ownerNear || p == owner
		e.nearPlayers = append(e.nearPlayers, p)
	}
	// Kill credit goes to the owner wherever they stand
	if owner != nil && !ownerNear {
		e.nearPlayers = append(e.nearPlayers, owner)
	}

	e.nearBombs = e.nearBombs[:0]
	for _, i := range e.sortedNear(e.bombGrid, pos) {
		e.nearBombs = append(e.nearBombs, e.bombs[i])
	}

	return b.Explode(now, e.nearPlayers, e.nearBombs, sink)
}

func (e *Engine) sortedNear(g *spatial.SpatialGrid, pos Vec2) []uint32 {
	e.nearIdx = append(e.nearIdx[:0], g.QueryRadius(pos.X, pos.Y, ExplosionRadius)...)
	slices.Sort(e.nearIdx)
	return e.nearIdx
}

// fireRespawns brings back every player whose respawn delay has passed
func (e *Engine) fireRespawns(now time.Time) {
	for _, id := range e.respawns.PopDue(now) {
		p, ok := e.players[id]
		if !ok {
			log.Printf("⚠️ Respawn for departed player %s ignored", id)
			continue
		}
		p.Respawn(e.world.RandomSpawnPoint())
		e.eventLog.EmitSimple(EventTypeRespawn, now, e.tickCount, id,
			RespawnPayload{PlayerID: id, SpawnX: p.Position.X, SpawnY: p.Position.Y})
	}
}

// applyIntents applies every buffered intent once, in connection ID order
func (e *Engine) applyIntents(now time.Time, sink EventSink) {
	pending := e.intents.Drain()
	if len(pending) == 0 {
		return
	}
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p, ok := e.players[id]
		if !ok {
			continue
		}
		in := pending[id]
		// A throw refused at the bomb cap keeps the player's cooldown
		if len(e.bombs) >= e.cfg.Limits.MaxBombs {
			in.Throw = false
		}
		bomb := p.ApplyIntent(in, now)
		if bomb == nil {
			continue
		}
		e.nextBombID++
		bomb.ID = e.nextBombID
		e.bombs = append(e.bombs, bomb)

		sink.Sound(SoundEvent{Cue: SoundShoot, Position: bomb.Position, Volume: 0.5})
		e.eventLog.EmitSimple(EventTypeThrow, now, e.tickCount, id,
			ThrowPayload{BombID: bomb.ID, OwnerID: id, FromX: bomb.Position.X, FromY: bomb.Position.Y,
				TargetX: in.Aim.X, TargetY: in.Aim.Y})
	}
}

// countingSink tallies kills and records them before forwarding
type countingSink struct {
	engine *Engine
	dst    EventSink
	now    time.Time
	kills  int
}

func (s *countingSink) Kill(k KillEvent) {
	e := s.engine
	s.kills++
	if !k.SelfInflicted && k.KillerID != "" {
		e.totalKills++
	}

	switch {
	case k.SelfInflicted:
		log.Printf("💥 %s blew themselves up", k.VictimName)
	case k.KillerID == "":
		log.Printf("💀 %s killed by an orphaned bomb", k.VictimName)
	default:
		log.Printf("💀 %s killed by %s", k.VictimName, k.KillerName)
	}

	e.eventLog.EmitSimple(EventTypeKill, s.now, e.tickCount, k.KillerID,
		KillPayload{KillerID: k.KillerID, VictimID: k.VictimID, SelfInflicted: k.SelfInflicted})
	s.dst.Kill(k)
}

func (s *countingSink) Sound(ev SoundEvent) {
	s.dst.Sound(ev)
}

// BuildSnapshot returns the view for connID: itself, everyone else, and the
// live bombs and explosions
func (e *Engine) BuildSnapshot(connID string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	self, ok := e.players[connID]
	if !ok {
		return Snapshot{}, false
	}
	bombs, explosions, board := e.sharedStateLocked()
	return e.snapshotForLocked(self, e.lastTick, bombs, explosions, board), true
}

// Snapshots returns one snapshot per connected player
func (e *Engine) Snapshots(now time.Time) map[string]Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buildSnapshotsLocked(now)
}

func (e *Engine) buildSnapshotsLocked(now time.Time) map[string]Snapshot {
	bombs, explosions, board := e.sharedStateLocked()
	out := make(map[string]Snapshot, len(e.roster))
	for _, p := range e.roster {
		out[p.ID] = e.snapshotForLocked(p, now, bombs, explosions, board)
	}
	return out
}

func (e *Engine) sharedStateLocked() ([]BombState, []ExplosionState, []LeaderboardEntry) {
	bombs := make([]BombState, len(e.bombs))
	for i, b := range e.bombs {
		bombs[i] = b.State()
	}
	explosions := make([]ExplosionState, len(e.explosions))
	for i, ex := range e.explosions {
		explosions[i] = ex.State()
	}
	var board []LeaderboardEntry
	if e.cfg.LeaderboardSize > 0 {
		board = RankPlayers(e.roster, e.cfg.LeaderboardSize)
	}
	return bombs, explosions, board
}

// snapshotForLocked filters self out of the others list by identity
func (e *Engine) snapshotForLocked(self *Player, now time.Time, bombs []BombState, explosions []ExplosionState, board []LeaderboardEntry) Snapshot {
	others := make([]PlayerState, 0, len(e.roster))
	for _, p := range e.roster {
		if p == self {
			continue
		}
		others = append(others, p.State(now))
	}
	return Snapshot{
		Tick:        e.tickCount,
		Self:        self.State(now),
		Players:     others,
		Bombs:       bombs,
		Explosions:  explosions,
		Leaderboard: board,
	}
}

// publishWorldLocked stores an unfiltered copy of the world for lock-free readers
func (e *Engine) publishWorldLocked(now time.Time) {
	bombs, explosions, _ := e.sharedStateLocked()
	snap := &WorldSnapshot{
		Tick:             e.tickCount,
		Timestamp:        now,
		WorldMin:         e.world.Min,
		WorldMax:         e.world.Max,
		Players:          make([]PlayerState, len(e.roster)),
		Bombs:            bombs,
		Explosions:       explosions,
		Leaderboard:      RankPlayers(e.roster, 0),
		PlayerCount:      len(e.roster),
		TotalKills:       e.totalKills,
		TotalDetonations: e.totalDetonations,
	}
	for i, p := range e.roster {
		snap.Players[i] = p.State(now)
		if !p.Dead {
			snap.AliveCount++
		}
	}
	e.latest.Store(snap)
}

// WorldState returns the world as of the last tick without taking the engine lock
func (e *Engine) WorldState() *WorldSnapshot {
	return e.latest.Load()
}

// Leaderboard returns the top n players right now
func (e *Engine) Leaderboard(n int) []LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RankPlayers(e.roster, n)
}

// PlayerCount returns the number of connected players
func (e *Engine) PlayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.roster)
}

// TickCount returns the number of ticks run so far
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
