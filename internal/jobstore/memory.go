// Package jobstore implements the Job Store & Lifecycle component (spec
// §4.4): a two-tier store (in-memory hot tier over a durable Postgres
// tier), TTL/LRU eviction, and the background sweeper.
package jobstore

import (
	"container/list"
	"sync"
	"time"

	"github.com/soochol/skillsmith/internal/domain"
)

type memEntry struct {
	job        *domain.Job
	expiresAt  time.Time
	lruElement *list.Element
}

// Memory is the hot in-memory tier. Capacity-bounded with LRU eviction
// (spec explicitly requires LRU; the teacher's own MemoryRunRepository is
// FIFO — this is the one deliberate divergence from the teacher's exact
// algorithm, keeping its two-tier shape but meeting spec's named invariant).
// Every accessor (Get/Set/Exists) refreshes the entry's access time per
// spec §4.4.
type Memory struct {
	mu       sync.Mutex
	maxSize  int
	ttl      time.Duration
	entries  map[string]*memEntry
	lru      *list.List // front = most recently used
}

// NewMemory constructs an empty Memory tier with the given capacity and TTL.
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	return &Memory{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*memEntry),
		lru:     list.New(),
	}
}

// Set inserts or updates job, refreshing its expiry and LRU position, then
// evicts least-recently-used entries until under capacity (spec §4.4: "Over
// capacity → evict least-recently-accessed until under").
func (m *Memory) Set(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(job)
}

func (m *Memory) setLocked(job *domain.Job) {
	if e, ok := m.entries[job.ID]; ok {
		e.job = job
		e.expiresAt = time.Now().Add(m.ttl)
		m.lru.MoveToFront(e.lruElement)
		return
	}
	el := m.lru.PushFront(job.ID)
	m.entries[job.ID] = &memEntry{job: job, expiresAt: time.Now().Add(m.ttl), lruElement: el}

	for m.lru.Len() > m.maxSize {
		back := m.lru.Back()
		if back == nil {
			break
		}
		id := back.Value.(string)
		delete(m.entries, id)
		m.lru.Remove(back)
	}
}

// Get returns (job, true) if id is present and unexpired, refreshing its
// access time. Expired entries are removed lazily on the next sweep, not
// on read, so a read between sweeps still returns a soon-to-expire value —
// matching spec §4.4's "background sweeper runs every 5 minutes".
func (m *Memory) Get(id string) (*domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	m.lru.MoveToFront(e.lruElement)
	e.expiresAt = time.Now().Add(m.ttl)
	return e.job, true
}

// Exists reports presence without returning the job, still refreshing
// access time per spec §4.4's "all accessor operations... refresh".
func (m *Memory) Exists(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Delete removes id from the memory tier (used on eviction/expiry and
// terminal-job cleanup), independent of the durable tier.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return
	}
	m.lru.Remove(e.lruElement)
	delete(m.entries, id)
}

// Len reports the current entry count. Testable property (spec §8
// invariant 5): never exceeds N_max+1 at any observable point.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Snapshot returns every non-expired entry at the moment of the call (spec
// §4.4: "Iteration yields a snapshot").
func (m *Memory) Snapshot() []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := make([]*domain.Job, 0, len(m.entries))
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			out = append(out, e.job)
		}
	}
	return out
}

// sweepExpired removes every entry whose expiry has passed, returning the
// removed job IDs. The durable copy is untouched (spec §4.4: "expired
// entries remain in the durable tier").
func (m *Memory) sweepExpired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var removed []string
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			m.lru.Remove(e.lruElement)
			delete(m.entries, id)
			removed = append(removed, id)
		}
	}
	return removed
}
