package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/pgdb"
)

// Schema is the conversation sessions table (spec §6 "Persisted state
// layout: Conversation sessions table: id, user_id, state enum, messages
// JSON, multi-skill queue, expires_at"), in the same
// migration-SQL-as-a-constant style as jobstore.Schema.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    state       TEXT NOT NULL,
    messages    JSONB NOT NULL,
    queue       JSONB NOT NULL,
    expires_at  TIMESTAMPTZ
);
`

// Durable is the Postgres durableTier implementation.
type Durable struct {
	db *pgdb.DB
}

// NewDurable wraps db.
func NewDurable(db *pgdb.DB) *Durable {
	return &Durable{db: db}
}

func (d *Durable) Upsert(ctx context.Context, sess *domain.ConversationSession) error {
	messagesJSON, err := json.Marshal(sess.Messages)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "marshal session messages", err)
	}
	queueJSON, err := json.Marshal(sess.Queue)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "marshal session queue", err)
	}

	_, err = d.db.Pool.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, state, messages, queue, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			state = EXCLUDED.state,
			messages = EXCLUDED.messages,
			queue = EXCLUDED.queue,
			expires_at = EXCLUDED.expires_at
	`, sess.ID, sess.UserID, string(sess.State), messagesJSON, queueJSON, sess.ExpiresAt)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "upsert session", err)
	}
	return nil
}

func (d *Durable) Get(ctx context.Context, id string) (*domain.ConversationSession, error) {
	row := d.db.Pool.QueryRowContext(ctx, `
		SELECT id, user_id, state, messages, queue, expires_at FROM sessions WHERE id = $1
	`, id)

	var (
		stateStr     string
		messagesJSON []byte
		queueJSON    []byte
		expiresAt    sql.NullTime
	)
	loaded := &domain.ConversationSession{}
	if err := row.Scan(&loaded.ID, &loaded.UserID, &stateStr, &messagesJSON, &queueJSON, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Newf(apierr.NotFound, "session %q not found", id)
		}
		return nil, apierr.Wrap(apierr.PersistenceError, "scan session row", err)
	}
	loaded.State = domain.SessionState(stateStr)
	if err := json.Unmarshal(messagesJSON, &loaded.Messages); err != nil {
		return nil, apierr.Wrap(apierr.PersistenceError, "unmarshal session messages", err)
	}
	if err := json.Unmarshal(queueJSON, &loaded.Queue); err != nil {
		return nil, apierr.Wrap(apierr.PersistenceError, "unmarshal session queue", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		loaded.ExpiresAt = &t
	}
	return loaded, nil
}

func (d *Durable) Delete(ctx context.Context, id string) error {
	_, err := d.db.Pool.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "delete session", err)
	}
	return nil
}
