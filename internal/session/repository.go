// Package session implements the Session Repository spec §3 names for the
// interactive (conversational) variant: "Sessions are owned by a Session
// Repository mirrored to durable storage." Unlike the Job Store's two-tier
// hot/cold split (spec §4.4, with LRU eviction and a TTL sweeper), a
// session's durable row is always the repository's primary copy; the
// in-memory map is a plain read-through mirror for the process actively
// driving one conversation, not an eviction-bounded cache.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soochol/skillsmith/internal/domain"
)

// durableTier is the persistence contract a Session Repository needs:
// upsert, lookup, delete by id — the same shape as jobstore's durableTier,
// scoped down to what sessions require (no enumeration by status; spec §6
// has no session-status listing operation).
type durableTier interface {
	Upsert(ctx context.Context, sess *domain.ConversationSession) error
	Get(ctx context.Context, id string) (*domain.ConversationSession, error)
	Delete(ctx context.Context, id string) error
}

// Repository is the Session Repository: durable-first writes mirrored into
// an in-memory map for read-through, the ownership split spec §3 assigns
// to conversation sessions (distinct from the Job Store's ownership of
// Job records).
type Repository struct {
	durable durableTier

	mu    sync.RWMutex
	cache map[string]*domain.ConversationSession
}

// New constructs a Repository backed by durable.
func New(durable durableTier) *Repository {
	return &Repository{durable: durable, cache: make(map[string]*domain.ConversationSession)}
}

// Save upserts sess durably, then refreshes the in-memory mirror. A
// durable failure is rejected and the mirror is left unchanged, the same
// write discipline as jobstore.Store.Save.
func (r *Repository) Save(ctx context.Context, sess *domain.ConversationSession) error {
	if err := r.durable.Upsert(ctx, sess); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache[sess.ID] = sess
	r.mu.Unlock()
	return nil
}

// Get returns a session by id, checking the in-memory mirror first and
// falling back to the durable tier on miss (the same read-through shape as
// jobstore.Store.Get, minus LRU/TTL bookkeeping).
func (r *Repository) Get(ctx context.Context, id string) (*domain.ConversationSession, error) {
	r.mu.RLock()
	sess, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return sess, nil
	}

	loaded, err := r.durable.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[id] = loaded
	r.mu.Unlock()
	return loaded, nil
}

// Delete removes id from both the mirror and the durable tier.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
	return r.durable.Delete(ctx, id)
}

// NewSession constructs a fresh ConversationSession for userID, expiring
// after ttl (zero means no expiry). An empty id is minted as a random UUID,
// the same uuid.New().String() call the teacher uses to mint unique names
// for its own generated artifacts (internal/llmutil/response.go).
func NewSession(id, userID string, ttl time.Duration) *domain.ConversationSession {
	if id == "" {
		id = uuid.New().String()
	}
	sess := &domain.ConversationSession{ID: id, UserID: userID, State: domain.SessionGathering}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		sess.ExpiresAt = &expires
	}
	return sess
}
