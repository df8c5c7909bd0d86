package taxonomy

import (
	"context"
	"fmt"

	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/pgdb"
)

// MirrorSchema is the optional analytics mirror's table (spec §6: "no
// global skills table required by the core (optional mirror for
// analytics)"). Denormalizes metadata.json for querying, never authoritative.
const MirrorSchema = `
CREATE TABLE IF NOT EXISTS skills (
    skill_id     TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL,
    version      TEXT,
    type         TEXT,
    weight       TEXT,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// mirror is the optional Postgres-backed analytics mirror. A nil *mirror
// (via NewMirror(nil)) makes every method a no-op, matching
// internal/repository/persistent.go's pattern of wrapping a possibly-absent
// durable tier behind the same interface as a present one.
type mirror struct {
	db *pgdb.DB
}

// NewMirror wraps db. Pass nil to get a no-op mirror.
func NewMirror(db *pgdb.DB) *mirror {
	return &mirror{db: db}
}

func (m *mirror) upsert(meta domain.SkillMetadata) error {
	if m == nil || m.db == nil {
		return nil
	}
	_, err := m.db.Pool.ExecContext(context.Background(), `
		INSERT INTO skills (skill_id, name, description, version, type, weight, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (skill_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			version = EXCLUDED.version,
			type = EXCLUDED.type,
			weight = EXCLUDED.weight,
			updated_at = now()
	`, meta.SkillID, meta.Name, meta.Description, meta.Version, string(meta.Type), string(meta.Weight))
	if err != nil {
		return fmt.Errorf("mirror upsert: %w", err)
	}
	return nil
}
