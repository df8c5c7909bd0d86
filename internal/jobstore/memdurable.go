package jobstore

import (
	"context"
	"sync"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
)

// MemDurable is an in-process durableTier implementation: a plain
// mutex-guarded map satisfying the same upsert/get/list/delete contract
// *Durable offers over Postgres (spec §4.4). It exists for tests and for
// running the workflow without a configured database — the durable tier
// contract spec §4.4 states only needs to "survive process restart", which
// an in-memory map does not, but every higher layer only ever talks to the
// durableTier interface, so swapping implementations requires no other change.
type MemDurable struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// NewMemDurable returns an empty MemDurable.
func NewMemDurable() *MemDurable {
	return &MemDurable{jobs: make(map[string]*domain.Job)}
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	return &c
}

func (d *MemDurable) Upsert(ctx context.Context, job *domain.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs[job.ID] = cloneJob(job)
	return nil
}

func (d *MemDurable) Get(ctx context.Context, id string) (*domain.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, ok := d.jobs[id]
	if !ok {
		return nil, apierr.Newf(apierr.NotFound, "job %q not found", id)
	}
	return cloneJob(job), nil
}

func (d *MemDurable) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*domain.Job
	for _, job := range d.jobs {
		if job.Status == status {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

func (d *MemDurable) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.jobs, id)
	return nil
}
