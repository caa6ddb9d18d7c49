package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRepo_CreateAndGet(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)

	task := testutil.NewTestTask("alice", seed.flow.ID, testutil.WithPriority(domain.PriorityHigh))
	require.NoError(t, s.Tasks.Create(ctx, task))

	got, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.TaskNo, got.TaskNo)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, domain.TaskDraft, got.Status)
	assert.Nil(t, got.CurrentNodeID)
	assert.Nil(t, got.SubmittedAt)
	assert.Equal(t, 1, got.Version)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))

	byNo, err := s.Tasks.GetByNo(ctx, task.TaskNo)
	require.NoError(t, err)
	assert.Equal(t, task.ID, byNo.ID)
}

func TestTaskRepo_GetMissing(t *testing.T) {
	database := testutil.NewTestDB(t)
	s := NewStores(database)

	_, err := s.Tasks.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Tasks.GetForUpdate(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepo_DuplicateTaskNo(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)

	a := testutil.NewTestTask("alice", seed.flow.ID)
	require.NoError(t, s.Tasks.Create(ctx, a))
	b := testutil.NewTestTask("alice", seed.flow.ID)
	b.TaskNo = a.TaskNo
	assert.ErrorIs(t, s.Tasks.Create(ctx, b), domain.ErrDuplicateResource)
}

func TestTaskRepo_UpdateIsOptimistic(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)

	task := testutil.NewTestTask("alice", seed.flow.ID)
	require.NoError(t, s.Tasks.Create(ctx, task))

	stale, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)

	now := testutil.Epoch.Add(time.Minute)
	task.MarkSubmitted(seed.flow.ID, now)
	task.EnterNode(seed.nodes[0], domain.TaskPending, now)
	require.NoError(t, s.Tasks.Update(ctx, task))
	assert.Equal(t, 2, task.Version)

	got, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, got.Status)
	require.NotNil(t, got.CurrentNodeOrder)
	assert.Equal(t, 1, *got.CurrentNodeOrder)
	assert.Equal(t, 1, got.Round)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, now.Equal(*got.SubmittedAt))

	stale.Title = "lost update"
	err = s.Tasks.Update(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 1, stale.Version)
}

func TestTaskRepo_ListByCreatorAndStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)

	for i := 0; i < 5; i++ {
		task := testutil.NewTestTask("alice", seed.flow.ID,
			testutil.WithCreatedAt(testutil.Epoch.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, s.Tasks.Create(ctx, task))
	}
	require.NoError(t, s.Tasks.Create(ctx, testutil.NewTestTask("bob", seed.flow.ID,
		testutil.WithTaskStatus(domain.TaskCancelled))))

	page, err := s.Tasks.ListByCreator(ctx, "alice", domain.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt), "newest first")

	last, err := s.Tasks.ListByCreator(ctx, "alice", domain.Page{Number: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)

	cancelled, err := s.Tasks.ListByStatus(ctx, domain.TaskCancelled, domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled.Total)
	assert.Equal(t, "bob", cancelled.Items[0].CreatorID)

	empty, err := s.Tasks.ListByCreator(ctx, "carol", domain.Page{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestTaskRepo_ListPendingForApprover_CurrentRoundOnly(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)
	n1 := seed.nodes[0]

	task := testutil.NewTestTask("alice", seed.flow.ID,
		testutil.WithTaskStatus(domain.TaskPending), testutil.AtNode(n1, 2))
	require.NoError(t, s.Tasks.Create(ctx, task))

	// A leftover pending record from an earlier round does not count.
	require.NoError(t, s.Records.Insert(ctx, testutil.NewTestRecord(task.ID, n1, 1, "carol")))
	require.NoError(t, s.Records.Insert(ctx, testutil.NewTestRecord(task.ID, n1, 2, "bob")))

	bobs, err := s.Tasks.ListPendingForApprover(ctx, "bob", domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, bobs.Total)
	assert.Equal(t, task.ID, bobs.Items[0].ID)

	carols, err := s.Tasks.ListPendingForApprover(ctx, "carol", domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, carols.Total)
}

func TestTaskRepo_ListApprovedByApprover(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)

	task := testutil.NewTestTask("alice", seed.flow.ID,
		testutil.WithTaskStatus(domain.TaskInProgress), testutil.AtNode(seed.nodes[1], 2))
	require.NoError(t, s.Tasks.Create(ctx, task))
	require.NoError(t, s.Records.Insert(ctx, testutil.NewTestRecord(task.ID, seed.nodes[0], 1, "bob",
		testutil.WithResult(domain.ActionApprove, domain.ResultApproved))))

	page, err := s.Tasks.ListApprovedByApprover(ctx, "bob", domain.Page{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, task.ID, page.Items[0].ID)

	none, err := s.Tasks.ListApprovedByApprover(ctx, "carol", domain.Page{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}
