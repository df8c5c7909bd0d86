package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
	"github.com/soochol/skillsmith/internal/pgdb"
)

// Schema is the jobs table (spec §6 "Persisted state layout: Jobs table:
// id, status, phase, progress, inputs JSON, state JSON, prompt JSON,
// timestamps"), in the teacher's migrationSQL-as-a-constant style
// (internal/db/db.go).
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    phase       TEXT NOT NULL,
    progress    JSONB NOT NULL,
    inputs      JSONB NOT NULL,
    state       JSONB NOT NULL,
    prompt      JSONB,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL
);
`

// Durable is the persistence interface's Postgres implementation: upsert by
// job id, lookup by id, enumeration by status, delete by id (spec §4.4's
// durable tier contract).
type Durable struct {
	db *pgdb.DB
}

// NewDurable wraps db.
func NewDurable(db *pgdb.DB) *Durable {
	return &Durable{db: db}
}

type jobRow struct {
	Inputs struct {
		TaskDescription string `json:"task_description"`
		UserContext     string `json:"user_context"`
		UserID          string `json:"user_id"`
	}
	State struct {
		Understanding    *domain.Understanding    `json:"understanding,omitempty"`
		Draft            *domain.Draft            `json:"draft,omitempty"`
		ValidationReport *domain.ValidationReport `json:"validation_report,omitempty"`
		Refinements      int                      `json:"refinements"`
		Revisions        int                      `json:"revisions"`
		PromptSeq        int                      `json:"prompt_seq"`
		FinalScore       *float64                 `json:"final_score,omitempty"`
		Error            *domain.JobError         `json:"error,omitempty"`
	}
}

// Upsert writes job, failing the caller's write if the durable tier is
// unavailable (spec §4.4: "write durable first... if durable fails, reject
// the write").
func (d *Durable) Upsert(ctx context.Context, job *domain.Job) error {
	var row jobRow
	row.Inputs.TaskDescription = job.TaskDescription
	row.Inputs.UserContext = job.UserContext
	row.Inputs.UserID = job.UserID
	row.State.Understanding = job.Understanding
	row.State.Draft = job.Draft
	row.State.ValidationReport = job.ValidationReport
	row.State.Refinements = job.Refinements
	row.State.Revisions = job.Revisions
	row.State.PromptSeq = job.PromptSeq
	row.State.FinalScore = job.FinalScore
	row.State.Error = job.Error

	inputsJSON, err := json.Marshal(row.Inputs)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "marshal job inputs", err)
	}
	stateJSON, err := json.Marshal(row.State)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "marshal job state", err)
	}
	progressJSON, err := json.Marshal(job.Progress)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "marshal job progress", err)
	}
	var promptJSON []byte
	if job.PendingPrompt != nil {
		promptJSON, err = json.Marshal(job.PendingPrompt)
		if err != nil {
			return apierr.Wrap(apierr.PersistenceError, "marshal pending prompt", err)
		}
	}

	_, err = d.db.Pool.ExecContext(ctx, `
		INSERT INTO jobs (id, status, phase, progress, inputs, state, prompt, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			phase = EXCLUDED.phase,
			progress = EXCLUDED.progress,
			inputs = EXCLUDED.inputs,
			state = EXCLUDED.state,
			prompt = EXCLUDED.prompt,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
	`, job.ID, string(job.Status), string(job.Progress.Phase), progressJSON, inputsJSON, stateJSON, promptJSON,
		job.CreatedAt, job.UpdatedAt, job.ExpiresAt)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "upsert job", err)
	}
	return nil
}

// Get looks up a job by id. A durable read failure is treated as not-found
// per spec §4.4's failure model.
func (d *Durable) Get(ctx context.Context, id string) (*domain.Job, error) {
	r := d.db.Pool.QueryRowContext(ctx, `
		SELECT id, status, progress, inputs, state, prompt, created_at, updated_at, expires_at
		FROM jobs WHERE id = $1
	`, id)
	job, err := scanJob(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Newf(apierr.NotFound, "job %q not found", id)
		}
		return nil, apierr.Newf(apierr.NotFound, "job %q not found: %v", id, err)
	}
	return job, nil
}

// ListByStatus enumerates every job currently in status.
func (d *Durable) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Job, error) {
	rows, err := d.db.Pool.QueryContext(ctx, `
		SELECT id, status, progress, inputs, state, prompt, created_at, updated_at, expires_at
		FROM jobs WHERE status = $1
	`, string(status))
	if err != nil {
		return nil, apierr.Wrap(apierr.PersistenceError, "list jobs by status", err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apierr.Wrap(apierr.PersistenceError, "scan job row", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Delete removes a job by id.
func (d *Durable) Delete(ctx context.Context, id string) error {
	_, err := d.db.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return apierr.Wrap(apierr.PersistenceError, "delete job", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*domain.Job, error) {
	var (
		job           domain.Job
		status        string
		progressJSON  []byte
		inputsJSON    []byte
		stateJSON     []byte
		promptJSON    []byte
	)
	if err := r.Scan(&job.ID, &status, &progressJSON, &inputsJSON, &stateJSON, &promptJSON,
		&job.CreatedAt, &job.UpdatedAt, &job.ExpiresAt); err != nil {
		return nil, err
	}
	job.Status = domain.Status(status)

	if err := json.Unmarshal(progressJSON, &job.Progress); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}

	var row jobRow
	if err := json.Unmarshal(inputsJSON, &row.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &row.State); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	job.TaskDescription = row.Inputs.TaskDescription
	job.UserContext = row.Inputs.UserContext
	job.UserID = row.Inputs.UserID
	job.Understanding = row.State.Understanding
	job.Draft = row.State.Draft
	job.ValidationReport = row.State.ValidationReport
	job.Refinements = row.State.Refinements
	job.Revisions = row.State.Revisions
	job.PromptSeq = row.State.PromptSeq
	job.FinalScore = row.State.FinalScore
	job.Error = row.State.Error

	if len(promptJSON) > 0 {
		var p domain.HITLPrompt
		if err := json.Unmarshal(promptJSON, &p); err != nil {
			return nil, fmt.Errorf("unmarshal prompt: %w", err)
		}
		job.PendingPrompt = &p
	}
	return &job, nil
}
