package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/persistence/file"
)

func newServiceFixture(t *testing.T) (*Service, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return NewService(testLogger(), store), store
}

func validWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:   id,
		Name: "daily digest",
		Kind: models.WorkflowKindCrossUser,
		Triggers: []*models.Trigger{
			{
				ID:           id + "-trigger",
				SourceUserID: "alice",
				Type:         models.TriggerTypeMessage,
				Message:      &models.MessageTriggerConfig{KeywordFilter: "digest"},
			},
		},
		Actions: []*models.Action{
			{
				ID:          id + "-action",
				Name:        "notify",
				Type:        models.ActionTypeSendMessage,
				Enabled:     true,
				SendMessage: &models.SendMessageConfig{TargetUserID: "bob", Text: "digest ready"},
			},
		},
	}
}

func TestService_Create_SetsOwnerAndTimestamps(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	created, err := service.Create(ctx, "alice", validWorkflow(""))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.OwnerID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.ID, created.Triggers[0].WorkflowID)

	stored, err := store.WorkflowRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "daily digest", stored.Name)
}

func TestService_Create_RejectsInvalidWorkflow(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	workflow := validWorkflow("wf-bad")
	workflow.Actions = nil

	_, err := service.Create(ctx, "alice", workflow)

	var validationErr *ValidationError

	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Issues)

	_, err = store.WorkflowRepository().GetByID(ctx, "wf-bad")
	assert.True(t, persistence.IsWorkflowNotFound(err), "nothing saved on validation failure")
}

func TestService_Get_ViewGating(t *testing.T) {
	ctx := context.Background()
	service, _ := newServiceFixture(t)

	created, err := service.Create(ctx, "alice", validWorkflow(""))
	require.NoError(t, err)

	_, err = service.Get(ctx, "alice", created.ID)
	assert.NoError(t, err)

	_, err = service.Get(ctx, "mallory", created.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestService_List_OwnedAndShared(t *testing.T) {
	ctx := context.Background()
	service, _ := newServiceFixture(t)

	mine, err := service.Create(ctx, "alice", validWorkflow(""))
	require.NoError(t, err)

	shared := validWorkflow("")
	shared.SharedWith = []string{"alice"}
	_, err = service.Create(ctx, "bob", shared)
	require.NoError(t, err)

	_, err = service.Create(ctx, "carol", validWorkflow(""))
	require.NoError(t, err)

	listed, err := service.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, mine.ID, listed[0].ID, "owned workflows come first")
}

func TestService_Update_DeniedForNonEditorLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	original := validWorkflow("")
	original.SharedWith = []string{"carol"} // view+execute, no edit

	created, err := service.Create(ctx, "alice", original)
	require.NoError(t, err)

	modified := validWorkflow(created.ID)
	modified.Name = "hijacked name"

	_, err = service.Update(ctx, "carol", modified)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	stored, err := store.WorkflowRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "daily digest", stored.Name)
}

func TestService_Update_EditorMayUpdateButNotReown(t *testing.T) {
	ctx := context.Background()
	service, _ := newServiceFixture(t)

	original := validWorkflow("")
	original.SharedWith = []string{"carol"}
	original.EditorIDs = []string{"carol"}

	created, err := service.Create(ctx, "alice", original)
	require.NoError(t, err)

	modified := validWorkflow(created.ID)
	modified.Name = "carol's revision"
	modified.OwnerID = "carol" // must be ignored
	modified.SharedWith = []string{"carol"}
	modified.EditorIDs = []string{"carol"}

	updated, err := service.Update(ctx, "carol", modified)
	require.NoError(t, err)

	assert.Equal(t, "carol's revision", updated.Name)
	assert.Equal(t, "alice", updated.OwnerID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestService_Delete_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	original := validWorkflow("")
	original.SharedWith = []string{"carol"}
	original.EditorIDs = []string{"carol"}

	created, err := service.Create(ctx, "alice", original)
	require.NoError(t, err)

	// Even an editor cannot delete.
	err = service.Delete(ctx, "carol", created.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = service.Delete(ctx, "alice", created.ID)
	require.NoError(t, err)

	_, err = store.WorkflowRepository().GetByID(ctx, created.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestService_History_ViewGated(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	created, err := service.Create(ctx, "alice", validWorkflow(""))
	require.NoError(t, err)

	record := &models.ExecutionRecord{
		ID:          "exec-1",
		WorkflowID:  created.ID,
		TriggerType: models.TriggerTypeManual,
		StartedAt:   time.Now().UTC(),
		FinishedAt:  time.Now().UTC(),
		Success:     true,
	}
	require.NoError(t, store.ExecutionRepository().Append(ctx, record))

	history, err := service.History(ctx, "alice", created.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "exec-1", history[0].ID)

	_, err = service.History(ctx, "mallory", created.ID, 0)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestService_SyncSchedules_OnCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	service, store := newServiceFixture(t)

	workflow := validWorkflow("")
	workflow.Triggers = append(workflow.Triggers, &models.Trigger{
		ID:           "nightly",
		SourceUserID: "alice",
		Type:         models.TriggerTypeSchedule,
		Schedule:     &models.ScheduleTriggerConfig{CronExpression: "0 3 * * *"},
	})

	created, err := service.Create(ctx, "alice", workflow)
	require.NoError(t, err)

	schedule, err := store.ScheduleRepository().GetByTriggerID(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, created.ID, schedule.WorkflowID)
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC()))

	// Dropping the schedule trigger drops its row.
	updated := validWorkflow(created.ID)
	_, err = service.Update(ctx, "alice", updated)
	require.NoError(t, err)

	_, err = store.ScheduleRepository().GetByTriggerID(ctx, "nightly")
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestService_Validate_ReportsIssuesWithoutSaving(t *testing.T) {
	service, _ := newServiceFixture(t)

	workflow := validWorkflow("wf-check")
	workflow.Actions[0].SendMessage.Text = "hello {{never_seeded}}"

	issues := service.Validate(workflow)
	assert.NotEmpty(t, issues)
}
