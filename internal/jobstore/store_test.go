package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/skillsmith/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *MemDurable) {
	t.Helper()
	durable := NewMemDurable()
	store := New(durable, 2, time.Hour, time.Minute)
	return store, durable
}

func TestStore_New_PanicsWhenSweeperExceedsHalfTTL(t *testing.T) {
	assert.Panics(t, func() {
		New(NewMemDurable(), 10, time.Minute, time.Minute)
	})
}

func TestStore_CreateAndGet_RoundTrips(t *testing.T) {
	store, _ := newTestStore(t)
	job := domain.NewJob("task", "", "", time.Hour)

	require.NoError(t, store.Create(context.Background(), job))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestStore_Get_FallsBackToDurableOnMemoryMiss(t *testing.T) {
	store, durable := newTestStore(t)
	job := domain.NewJob("task", "", "", time.Hour)
	require.NoError(t, durable.Upsert(context.Background(), job))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, 1, store.MemLen())
}

func TestStore_Update_SerializesMutationsPerJob(t *testing.T) {
	store, _ := newTestStore(t)
	job := domain.NewJob("task", "", "", time.Hour)
	require.NoError(t, store.Create(context.Background(), job))

	const n = 20
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := store.Update(context.Background(), job.ID, func(j *domain.Job) error {
				j.Refinements++
				return nil
			})
			assert.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.Refinements)
}

func TestStore_MemLen_NeverExceedsCapacityByMoreThanOne(t *testing.T) {
	store, _ := newTestStore(t) // capacity 2
	for i := 0; i < 5; i++ {
		job := domain.NewJob("task", "", "", time.Hour)
		require.NoError(t, store.Create(context.Background(), job))
	}
	assert.LessOrEqual(t, store.MemLen(), 3)
}

func TestStore_StartCleansUpOrphanedRunningJobs(t *testing.T) {
	store, durable := newTestStore(t)
	job := domain.NewJob("task", "", "", time.Hour)
	require.NoError(t, job.Transition(domain.StatusRunning))
	require.NoError(t, durable.Upsert(context.Background(), job))

	require.NoError(t, store.Start(context.Background()))
	defer store.Stop()

	got, err := durable.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.NotNil(t, got.Error)
	assert.Equal(t, "Cancelled", got.Error.Kind)
}

func TestHistory_Terminal_EnumeratesAllTerminalStatuses(t *testing.T) {
	durable := NewMemDurable()
	completed := domain.NewJob("a", "", "", time.Hour)
	require.NoError(t, completed.Transition(domain.StatusRunning))
	require.NoError(t, completed.Transition(domain.StatusCompleted))
	cancelled := domain.NewJob("b", "", "", time.Hour)
	require.NoError(t, cancelled.Transition(domain.StatusRunning))
	require.NoError(t, cancelled.Transition(domain.StatusPendingHITL))
	require.NoError(t, cancelled.Transition(domain.StatusCancelled))
	pending := domain.NewJob("c", "", "", time.Hour)

	require.NoError(t, durable.Upsert(context.Background(), completed))
	require.NoError(t, durable.Upsert(context.Background(), cancelled))
	require.NoError(t, durable.Upsert(context.Background(), pending))

	h := NewHistory(durable)
	jobs, err := h.Terminal(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
