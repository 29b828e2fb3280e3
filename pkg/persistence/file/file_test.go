package file

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
)

func testPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestWorkflowRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)

	workflow := &models.Workflow{
		ID:         "wf1",
		Name:       "test workflow",
		OwnerID:    "owner",
		Kind:       models.WorkflowKindPersonal,
		SharedWith: []string{"friend"},
	}

	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	loaded, err := p.WorkflowRepository().GetByID(ctx, "wf1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, workflow.SharedWith, loaded.SharedWith)
}

func TestWorkflowGetByIDNotFound(t *testing.T) {
	p := testPersistence(t)

	_, err := p.WorkflowRepository().GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowListByOwnerAndShared(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)
	repo := p.WorkflowRepository()

	require.NoError(t, repo.Save(ctx, &models.Workflow{ID: "wf1", Name: "mine", OwnerID: "alice", Kind: models.WorkflowKindPersonal}))
	require.NoError(t, repo.Save(ctx, &models.Workflow{ID: "wf2", Name: "theirs", OwnerID: "bob", Kind: models.WorkflowKindPersonal, SharedWith: []string{"alice"}}))

	owned, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "wf1", owned[0].ID)

	shared, err := repo.ListSharedWith(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "wf2", shared[0].ID)
}

func TestWorkflowDeleteCascades(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)

	workflow := &models.Workflow{ID: "wf1", Name: "doomed", OwnerID: "alice", Kind: models.WorkflowKindPersonal}
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	record := &models.ExecutionRecord{ID: "exec1", WorkflowID: "wf1", StartedAt: time.Now().UTC()}
	require.NoError(t, p.ExecutionRepository().Append(ctx, record))

	claimed, err := p.DedupLedger().TryClaim(ctx, "evt1:wf1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, p.WorkflowRepository().Delete(ctx, "wf1"))

	history, err := p.ExecutionRepository().History(ctx, "wf1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	// The claim is gone, so the same event may be claimed again.
	claimed, err = p.DedupLedger().TryClaim(ctx, "evt1:wf1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestDedupLedgerClaimsOnce(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)

	first, err := p.DedupLedger().TryClaim(ctx, "evt1:chat1:wf1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := p.DedupLedger().TryClaim(ctx, "evt1:chat1:wf1")
	require.NoError(t, err)
	assert.False(t, second)
}

func TestDedupLedgerConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)

	const claimers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range claimers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			claimed, err := p.DedupLedger().TryClaim(ctx, "race:wf1")
			assert.NoError(t, err)

			if claimed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestDedupLedgerEvict(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)

	claimed, err := p.DedupLedger().TryClaim(ctx, "old:wf1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, p.DedupLedger().Evict(ctx, time.Now().Add(time.Minute)))

	// Evicted claim can be taken again.
	claimed, err = p.DedupLedger().TryClaim(ctx, "old:wf1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestExecutionHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)
	repo := p.ExecutionRepository()

	base := time.Now().UTC()

	for i := range 3 {
		record := &models.ExecutionRecord{
			ID:         fmt.Sprintf("exec%d", i),
			WorkflowID: "wf1",
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Append(ctx, record))
	}

	history, err := repo.History(ctx, "wf1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "exec2", history[0].ID)
	assert.Equal(t, "exec1", history[1].ID)
}

func TestScheduleDueBefore(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)
	repo := p.ScheduleRepository()

	schedule, err := models.NewSchedule("s1", "wf1", "t1", "*/5 * * * *")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, schedule))

	due, err := repo.DueBefore(ctx, schedule.NextDueAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)

	due, err = repo.DueBefore(ctx, schedule.NextDueAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestUserLookupByChatIdentity(t *testing.T) {
	ctx := context.Background()
	p := testPersistence(t)
	repo := p.UserRepository()

	require.NoError(t, repo.Save(ctx, &models.WorkflowUser{ID: "u1", Email: "a@example.com", ChatIdentity: "@alice"}))

	user, err := repo.GetByChatIdentity(ctx, "@alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = repo.GetByChatIdentity(ctx, "@nobody")
	assert.True(t, persistence.IsUserNotFound(err))
}
