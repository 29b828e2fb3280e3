package trigger

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/mocks"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type dispatchRecorder struct {
	mu         sync.Mutex
	dispatches []string // workflow ids
}

func (r *dispatchRecorder) dispatch(_ context.Context, workflowID string, _ *models.Trigger, _ *models.RawEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches = append(r.dispatches, workflowID)
}

func (r *dispatchRecorder) workflowIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.dispatches))
	copy(ids, r.dispatches)

	return ids
}

func messageWorkflow(id, sourceUserID, keyword string) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    "watch " + keyword,
		OwnerID: sourceUserID,
		Kind:    models.WorkflowKindPersonal,
		Triggers: []*models.Trigger{
			{
				ID:           id + "-trigger",
				WorkflowID:   id,
				SourceUserID: sourceUserID,
				Type:         models.TriggerTypeMessage,
				Message:      &models.MessageTriggerConfig{KeywordFilter: keyword},
			},
		},
		Actions: []*models.Action{
			{
				ID:          id + "-action",
				Name:        "notify",
				Type:        models.ActionTypeSendMessage,
				Enabled:     true,
				SendMessage: &models.SendMessageConfig{Text: "{{trigger_content}}"},
			},
		},
	}
}

func chatEvent(id, text string) *models.RawEvent {
	return &models.RawEvent{
		ID:         id,
		Source:     models.SourceTypeChat,
		ChatID:     "chat-1",
		Sender:     "boss",
		Text:       text,
		OccurredAt: time.Now().UTC(),
	}
}

func TestManager_Cycle_DispatchesEachMatchingWorkflowOnce(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	// Two workflows match the same event; each must fire exactly once.
	require.NoError(t, store.WorkflowRepository().Save(ctx, messageWorkflow("wf-1", "alice", "urgent")))
	require.NoError(t, store.WorkflowRepository().Save(ctx, messageWorkflow("wf-2", "alice", "urgent")))
	require.NoError(t, store.WorkflowRepository().Save(ctx, messageWorkflow("wf-3", "alice", "quiet")))

	recorder := &dispatchRecorder{}
	manager := NewManager(testLogger(), store, recorder.dispatch)

	cfg := integration.SourceConfig{Source: models.SourceTypeChat, UserID: "alice"}
	source := &mocks.MockEventSource{SourceType: models.SourceTypeChat}
	source.On("FetchCandidates", mock.Anything, cfg, "", defaultFetchLimit).
		Return([]*models.RawEvent{chatEvent("evt-1", "this is urgent")}, "cursor-1", nil)

	poller := &sourcePoller{source: source, cfg: cfg, state: stateIdle}

	manager.cycle(ctx, poller)
	manager.wg.Wait()

	ids := recorder.workflowIDs()
	assert.ElementsMatch(t, []string{"wf-1", "wf-2"}, ids)
	assert.Equal(t, "cursor-1", poller.cursor)

	// Re-delivering the same event must not dispatch again.
	source.On("FetchCandidates", mock.Anything, cfg, "cursor-1", defaultFetchLimit).
		Return([]*models.RawEvent{chatEvent("evt-1", "this is urgent")}, "cursor-2", nil)

	manager.cycle(ctx, poller)
	manager.wg.Wait()

	assert.Len(t, recorder.workflowIDs(), 2)
}

func TestManager_Cycle_SkipsOtherUsersTriggers(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.WorkflowRepository().Save(ctx, messageWorkflow("wf-bob", "bob", "urgent")))

	recorder := &dispatchRecorder{}
	manager := NewManager(testLogger(), store, recorder.dispatch)

	cfg := integration.SourceConfig{Source: models.SourceTypeChat, UserID: "alice"}
	source := &mocks.MockEventSource{SourceType: models.SourceTypeChat}
	source.On("FetchCandidates", mock.Anything, cfg, "", defaultFetchLimit).
		Return([]*models.RawEvent{chatEvent("evt-1", "urgent")}, "c1", nil)

	poller := &sourcePoller{source: source, cfg: cfg, state: stateIdle}

	manager.cycle(ctx, poller)
	manager.wg.Wait()

	assert.Empty(t, recorder.workflowIDs())
}

func TestManager_Cycle_FetchFailureEndsCycle(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.WorkflowRepository().Save(ctx, messageWorkflow("wf-1", "alice", "urgent")))

	recorder := &dispatchRecorder{}
	manager := NewManager(testLogger(), store, recorder.dispatch)

	cfg := integration.SourceConfig{Source: models.SourceTypeChat, UserID: "alice"}
	source := &mocks.MockEventSource{SourceType: models.SourceTypeChat}
	source.On("FetchCandidates", mock.Anything, cfg, "", defaultFetchLimit).
		Return(nil, "", integration.ErrFetchFailed)

	poller := &sourcePoller{source: source, cfg: cfg, state: stateIdle}

	manager.cycle(ctx, poller)
	manager.wg.Wait()

	// Nothing dispatched, nothing claimed, cursor untouched.
	assert.Empty(t, recorder.workflowIDs())
	assert.Empty(t, poller.cursor)

	claimed, err := store.DedupLedger().TryClaim(ctx, "evt-1:chat-1:wf-1")
	require.NoError(t, err)
	assert.True(t, claimed, "fetch failure must not leave claims behind")
}

func TestManager_ProcessDueSchedules(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	workflow := messageWorkflow("wf-1", "alice", "")
	workflow.Triggers = []*models.Trigger{
		{
			ID:           "trigger-sched",
			WorkflowID:   "wf-1",
			SourceUserID: "alice",
			Type:         models.TriggerTypeSchedule,
			Schedule:     &models.ScheduleTriggerConfig{CronExpression: "* * * * *"},
		},
	}
	require.NoError(t, store.WorkflowRepository().Save(ctx, workflow))

	schedule, err := models.NewSchedule("sched-1", "wf-1", "trigger-sched", "* * * * *")
	require.NoError(t, err)
	schedule.NextDueAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.ScheduleRepository().Save(ctx, schedule))

	recorder := &dispatchRecorder{}
	manager := NewManager(testLogger(), store, recorder.dispatch)

	manager.processDueSchedules(ctx)
	manager.wg.Wait()

	assert.Equal(t, []string{"wf-1"}, recorder.workflowIDs())

	// The due time was advanced and persisted, so a second pass does not
	// refire the same due time.
	reloaded, err := store.ScheduleRepository().GetByTriggerID(ctx, "trigger-sched")
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastFiredAt)
	assert.True(t, reloaded.NextDueAt.After(time.Now().UTC()))

	manager.processDueSchedules(ctx)
	manager.wg.Wait()

	assert.Len(t, recorder.workflowIDs(), 1)
}

func TestManager_EvictClaims_ReleasesAgedKeys(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	claimed, err := store.DedupLedger().TryClaim(ctx, "evt-old:chat-1:wf-1")
	require.NoError(t, err)
	require.True(t, claimed)

	manager := NewManager(testLogger(), store, (&dispatchRecorder{}).dispatch).
		WithClaimTTL(time.Nanosecond)

	time.Sleep(10 * time.Millisecond)
	manager.evictClaims(ctx)

	claimed, err = store.DedupLedger().TryClaim(ctx, "evt-old:chat-1:wf-1")
	require.NoError(t, err)
	assert.True(t, claimed, "an evicted key is claimable again")
}

func TestManager_EvictClaims_KeepsFreshKeys(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	claimed, err := store.DedupLedger().TryClaim(ctx, "evt-new:chat-1:wf-1")
	require.NoError(t, err)
	require.True(t, claimed)

	manager := NewManager(testLogger(), store, (&dispatchRecorder{}).dispatch).
		WithClaimTTL(time.Hour)

	manager.evictClaims(ctx)

	claimed, err = store.DedupLedger().TryClaim(ctx, "evt-new:chat-1:wf-1")
	require.NoError(t, err)
	assert.False(t, claimed, "claims inside the retention window survive eviction")
}

func TestManager_Cycle_ProvisionsUnknownSender(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	require.NoError(t, store.WorkflowRepository().Save(ctx, messageWorkflow("wf-1", "alice", "urgent")))

	recorder := &dispatchRecorder{}
	manager := NewManager(testLogger(), store, recorder.dispatch)

	cfg := integration.SourceConfig{Source: models.SourceTypeChat, UserID: "alice"}
	source := &mocks.MockEventSource{SourceType: models.SourceTypeChat}
	source.On("FetchCandidates", mock.Anything, cfg, "", defaultFetchLimit).
		Return([]*models.RawEvent{chatEvent("evt-1", "this is urgent")}, "c1", nil)

	poller := &sourcePoller{source: source, cfg: cfg, state: stateIdle}

	manager.cycle(ctx, poller)
	manager.wg.Wait()

	// The first inbound message from "boss" registered the identity.
	user, err := store.UserRepository().GetByChatIdentity(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, "boss", user.ChatIdentity)

	// A later event from the same sender reuses the user.
	source.On("FetchCandidates", mock.Anything, cfg, "c1", defaultFetchLimit).
		Return([]*models.RawEvent{chatEvent("evt-2", "still urgent")}, "c2", nil)

	manager.cycle(ctx, poller)
	manager.wg.Wait()

	again, err := store.UserRepository().GetByChatIdentity(ctx, "boss")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestManager_StartStop(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())

	manager := NewManager(testLogger(), store, (&dispatchRecorder{}).dispatch)

	source := &mocks.MockEventSource{SourceType: models.SourceTypeChat}
	manager.RegisterSource(source, integration.SourceConfig{Source: models.SourceTypeChat, UserID: "alice"}, time.Hour)

	require.NoError(t, manager.Start(ctx))
	require.NoError(t, manager.Start(ctx)) // idempotent
	require.NoError(t, manager.Stop(ctx))
	require.NoError(t, manager.Stop(ctx)) // idempotent
}
