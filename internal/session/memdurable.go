package session

import (
	"context"
	"sync"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
)

// MemDurable is an in-process durableTier fake, the session-package
// counterpart of jobstore.MemDurable: a mutex-guarded map satisfying the
// same upsert/get/delete contract *Durable offers over Postgres, used by
// tests and by any process running without a configured database.
type MemDurable struct {
	mu       sync.Mutex
	sessions map[string]*domain.ConversationSession
}

// NewMemDurable returns an empty MemDurable.
func NewMemDurable() *MemDurable {
	return &MemDurable{sessions: make(map[string]*domain.ConversationSession)}
}

func cloneSession(sess *domain.ConversationSession) *domain.ConversationSession {
	c := *sess
	return &c
}

func (d *MemDurable) Upsert(ctx context.Context, sess *domain.ConversationSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (d *MemDurable) Get(ctx context.Context, id string) (*domain.ConversationSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, ok := d.sessions[id]
	if !ok {
		return nil, apierr.Newf(apierr.NotFound, "session %q not found", id)
	}
	return cloneSession(sess), nil
}

func (d *MemDurable) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, id)
	return nil
}
