package jobstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soochol/skillsmith/internal/apierr"
	"github.com/soochol/skillsmith/internal/domain"
)

// durableTier is the persistence interface's contract (spec §4.4): upsert,
// lookup, enumerate by status, delete. *Durable is its Postgres
// implementation; tests substitute an in-memory fake, the same seam the
// teacher's repository.RunRepository interface gives PersistentRunRepository.
type durableTier interface {
	Upsert(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Job, error)
	Delete(ctx context.Context, id string) error
}

// Store is the two-tier Job Store facade spec §4.4 describes: a hot
// in-memory tier backed by a durable tier. Reads check memory first; on
// miss, load durable, populate memory, return. Writes go durable-first,
// then memory — if durable fails, the write is rejected and memory is
// left unchanged, the same "memory authoritative while hot, durable
// authoritative after eviction" split as the teacher's
// PersistentRunRepository/MemoryRunRepository pair.
type Store struct {
	mem     *Memory
	durable durableTier

	sweeperPeriod time.Duration
	stop          chan struct{}
	stopOnce      sync.Once

	// perJob serializes update_job(mutator) calls per job id (spec §5:
	// "Workflow mutations go through update_job(job_id, mutator) which
	// serializes per job").
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs a Store. Panics if sweeperPeriod > ttl/2, the contract
// spec §9 fixes for the sweeper-vs-TTL open question — the same eager
// validation style as config.Config.validate.
func New(durable durableTier, maxInMemory int, ttl, sweeperPeriod time.Duration) *Store {
	if sweeperPeriod > ttl/2 {
		panic("jobstore: sweeper period must be <= ttl/2")
	}
	s := &Store{
		mem:           NewMemory(maxInMemory, ttl),
		durable:       durable,
		sweeperPeriod: sweeperPeriod,
		stop:          make(chan struct{}),
		locks:         make(map[string]*sync.Mutex),
	}
	return s
}

// Start launches the background sweeper and, per spec §4.4's startup hook,
// marks failed (message "orphaned") any job left in StatusRunning by a
// prior process (no liveness
// record survives a restart in this design, so every running job found at
// startup is orphaned) — generalizing the teacher's
// RunHistoryService.CleanupOrphanedRuns / MarkOrphanedRunsFailed.
func (s *Store) Start(ctx context.Context) error {
	if err := s.cleanupOrphanedJobs(ctx); err != nil {
		slog.Warn("jobstore: orphan cleanup failed", "err", err)
	}
	go s.sweep()
	return nil
}

// Stop cancels the sweeper (spec §4.4's graceful-shutdown hook). In-memory
// mutations are always written through immediately (no write-behind), so
// there is nothing further to flush.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	ticker := time.NewTicker(s.sweeperPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			removed := s.mem.sweepExpired()
			if len(removed) > 0 {
				slog.Info("jobstore: sweeper evicted expired jobs", "count", len(removed))
			}
		}
	}
}

func (s *Store) cleanupOrphanedJobs(ctx context.Context) error {
	running, err := s.durable.ListByStatus(ctx, domain.StatusRunning)
	if err != nil {
		return err
	}
	for _, job := range running {
		job.Status = domain.StatusFailed
		job.Error = &domain.JobError{Kind: "Cancelled", Message: "orphaned"}
		job.UpdatedAt = time.Now()
		if err := s.durable.Upsert(ctx, job); err != nil {
			slog.Warn("jobstore: failed to mark orphaned job failed", "job_id", job.ID, "err", err)
			continue
		}
		slog.Info("jobstore: marked orphaned job failed", "job_id", job.ID)
	}
	return nil
}

// Create writes a brand-new job durably, then to memory.
func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	if err := s.durable.Upsert(ctx, job); err != nil {
		return err
	}
	s.mem.Set(job)
	return nil
}

// Get returns a job by id, checking memory first and falling back to the
// durable tier on miss, repopulating memory (spec §4.4 read path).
func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	if job, ok := s.mem.Get(id); ok {
		return job, nil
	}
	job, err := s.durable.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mem.Set(job)
	return job, nil
}

// Save persists job durably, then updates the memory tier. If the durable
// write fails, the write is rejected and memory is left unchanged.
func (s *Store) Save(ctx context.Context, job *domain.Job) error {
	if err := s.durable.Upsert(ctx, job); err != nil {
		return err
	}
	s.mem.Set(job)
	return nil
}

// Update loads job, applies mutator, and saves the result — serialized per
// job id so concurrent callers never interleave mutations on the same job
// (spec §5's update_job(job_id, mutator) contract). The mutator works on a
// copy, so a mutator error or a rejected durable write leaves the stored
// job unchanged.
func (s *Store) Update(ctx context.Context, id string, mutator func(*domain.Job) error) (*domain.Job, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	copied := *current
	job := &copied
	if err := mutator(job); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Delete removes job id from both tiers.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mem.Delete(id)
	return s.durable.Delete(ctx, id)
}

// ListByStatus enumerates jobs in status from the durable tier — the
// authoritative source across both hot and evicted jobs.
func (s *Store) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Job, error) {
	return s.durable.ListByStatus(ctx, status)
}

// MemLen reports the current hot-tier size, for the capacity invariant
// (spec §8 invariant 5: never exceeds N_max+1 at any observable point).
func (s *Store) MemLen() int { return s.mem.Len() }

// History returns completed/failed/cancelled jobs from the durable tier
// only, for jobs whose memory entry has already been evicted — a
// lightweight audit-trail view generalizing the teacher's
// internal/services/runhistory.go (spec §4 "Run history / audit trail").
type History struct {
	durable durableTier
}

// NewHistory wraps durable for audit-trail reads beyond the job TTL.
func NewHistory(durable durableTier) *History {
	return &History{durable: durable}
}

// Terminal returns every job in one of the terminal statuses.
func (h *History) Terminal(ctx context.Context) ([]*domain.Job, error) {
	var out []*domain.Job
	for _, status := range []domain.Status{domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled} {
		jobs, err := h.durable.ListByStatus(ctx, status)
		if err != nil {
			return nil, apierr.Wrap(apierr.PersistenceError, "list terminal jobs", err)
		}
		out = append(out, jobs...)
	}
	return out, nil
}
