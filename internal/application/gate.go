package application

import "sync"

// Gate bounds the number of in-flight requests per guild. Admission is
// advisory capacity control, not a queue: a full guild refuses immediately.
//
// Each guild gets its own lazily created mutex so the read-modify-write of
// its counter is serialized without contending with other guilds. Lock
// entries are never evicted; tenant cardinality is expected to stay small,
// so this is intentional bounded growth rather than a leak.
type Gate struct {
	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	inflight map[int64]int
}

func NewGate() *Gate {
	return &Gate{
		locks:    make(map[int64]*sync.Mutex),
		inflight: make(map[int64]int),
	}
}

func (g *Gate) lockFor(guildID int64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.locks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[guildID] = lock
	}
	return lock
}

// Acquire reserves one in-flight slot for the guild, refusing without any
// state change when the ceiling is already reached.
func (g *Gate) Acquire(guildID int64, ceiling int) bool {
	lock := g.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight[guildID] >= ceiling {
		return false
	}
	g.inflight[guildID]++
	return true
}

// Release returns a slot. The counter entry disappears once it reaches
// zero so idle guilds cost nothing.
func (g *Gate) Release(guildID int64) {
	lock := g.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.inflight[guildID] - 1
	if n <= 0 {
		delete(g.inflight, guildID)
		return
	}
	g.inflight[guildID] = n
}

// InFlight reports the current in-flight count for a guild.
func (g *Gate) InFlight(guildID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[guildID]
}
