package taxonomy

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
)

const artifactFilename = "SKILL.md"

// Manager resolves, loads, lists, and writes skill artifacts under Root.
type Manager struct {
	Root   string
	mirror *mirror // optional Postgres analytics mirror; nil is a valid no-op
}

// NewManager constructs a Manager rooted at root. mirror may be nil, in which
// case the analytics mirror is a no-op (spec §6: "optional mirror for
// analytics", not required by the core).
func NewManager(root string, mirror *mirror) *Manager {
	return &Manager{Root: root, mirror: mirror}
}

// LoadSkill reads and parses the artifact at id.
func (m *Manager) LoadSkill(id string) (domain.SkillMetadata, string, error) {
	dir, err := ResolveWithinRoot(m.Root, id)
	if err != nil {
		return domain.SkillMetadata{}, "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, artifactFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SkillMetadata{}, "", apierr.Newf(apierr.NotFound, "skill %q not found", id)
		}
		return domain.SkillMetadata{}, "", apierr.Wrap(apierr.PersistenceError, "read skill artifact", err)
	}
	return ParseArtifact(string(data))
}

// ListSkills walks the tree rooted at Root and yields every directory
// containing a valid artifact. Load failures for one skill never abort the
// bulk enumeration (spec §4.1 failure policy) — they're logged and skipped.
func (m *Manager) ListSkills() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(m.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() != artifactFilename {
			return nil
		}
		rel, relErr := filepath.Rel(m.Root, filepath.Dir(path))
		if relErr != nil {
			return nil
		}
		id := filepath.ToSlash(rel)
		if _, _, loadErr := m.LoadSkill(id); loadErr != nil {
			slog.Warn("taxonomy: skipping unreadable skill during enumeration", "id", id, "err", loadErr)
			return nil
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.PersistenceError, "walk taxonomy root", err)
	}
	return ids, nil
}

// WriteSkill places meta/body at meta.SkillID's resolved path, creating
// directories as needed. Per spec §5's concurrency policy, the write goes
// to a fresh temp directory first and is renamed into place atomically, so
// concurrent writers to the same skill path never observe a partial file.
func (m *Manager) WriteSkill(meta domain.SkillMetadata, body string) error {
	dir, err := ResolveWithinRoot(m.Root, meta.SkillID)
	if err != nil {
		return err
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return apierr.Wrap(apierr.PersistenceError, "create taxonomy parent directories", err)
	}

	tmpDir, err := os.MkdirTemp(parent, ".skill-tmp-*")
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "create temp skill directory", err)
	}
	defer os.RemoveAll(tmpDir) // no-op once renamed away

	content := RenderArtifact(meta, body)
	if err := os.WriteFile(filepath.Join(tmpDir, artifactFilename), []byte(content), 0644); err != nil {
		return apierr.Wrap(apierr.PersistenceError, "write skill artifact", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return apierr.Wrap(apierr.PersistenceError, "clear previous skill directory", err)
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		return apierr.Wrap(apierr.PersistenceError, "rename skill directory into place", err)
	}

	if m.mirror != nil {
		if err := m.mirror.upsert(meta); err != nil {
			slog.Warn("taxonomy: analytics mirror upsert failed, artifact write still succeeded", "skill_id", meta.SkillID, "err", err)
		}
	}
	return nil
}
