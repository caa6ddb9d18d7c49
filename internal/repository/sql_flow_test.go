package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowRepo_VersionsAndActive(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	flows := NewSQLFlowRepo(database)

	v, err := flows.LatestVersion(ctx, "leave")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	v1 := testutil.NewTestFlow("leave", testutil.WithTaskType("leave"))
	require.NoError(t, flows.Create(ctx, v1))

	// A second ACTIVE row for the same code violates the partial index.
	dup := testutil.NewTestFlow("leave", testutil.WithFlowVersion(2))
	assert.ErrorIs(t, flows.Create(ctx, dup), domain.ErrConcurrencyConflict)

	require.NoError(t, flows.Supersede(ctx, v1.ID))
	assert.ErrorIs(t, flows.Supersede(ctx, v1.ID), domain.ErrConcurrencyConflict)

	v2 := testutil.NewTestFlow("leave", testutil.WithFlowVersion(2), testutil.WithTaskType("leave"))
	require.NoError(t, flows.Create(ctx, v2))

	active, err := flows.GetActiveByCode(ctx, "leave")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)

	byType, err := flows.GetActiveByTaskType(ctx, "leave")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, byType.ID)

	old, err := flows.GetByCodeVersion(ctx, "leave", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.FlowSuperseded, old.Status)

	latest, err := flows.LatestVersion(ctx, "leave")
	require.NoError(t, err)
	assert.Equal(t, 2, latest)

	versions, err := flows.ListVersions(ctx, "leave")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)

	all, err := flows.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	activeOnly, err := flows.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, activeOnly, 1)
}

func TestFlowRepo_NotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	flows := NewSQLFlowRepo(database)

	_, err := flows.GetActiveByCode(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = flows.GetByCodeVersion(ctx, "ghost", 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = flows.GetActiveByTaskType(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNodeRepo_RoundTripsApproverSpec(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	flows := NewSQLFlowRepo(database)
	nodes := NewSQLNodeRepo(database)

	flow := testutil.NewTestFlow("purchase")
	require.NoError(t, flows.Create(ctx, flow))

	second := testutil.NewTestApprovalNode(flow.ID, 2, nil,
		testutil.WithApprovers(domain.ByRole{Codes: []string{"finance", "legal"}}),
		testutil.WithPolicy(domain.PolicyAll),
		testutil.WithTimeoutHours(48))
	first := testutil.NewTestApprovalNode(flow.ID, 1, []string{"bob", "carol"})
	require.NoError(t, nodes.Create(ctx, second))
	require.NoError(t, nodes.Create(ctx, first))

	list, err := nodes.ListByFlow(ctx, flow.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Order)
	assert.Equal(t, domain.ByUser{IDs: []string{"bob", "carol"}}, list[0].Approvers)
	assert.Nil(t, list[0].TimeoutHours)

	got, err := nodes.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyAll, got.Policy)
	assert.Equal(t, domain.ByRole{Codes: []string{"finance", "legal"}}, got.Approvers)
	require.NotNil(t, got.TimeoutHours)
	assert.Equal(t, 48, *got.TimeoutHours)

	dupOrder := testutil.NewTestApprovalNode(flow.ID, 1, []string{"dave"})
	assert.Error(t, nodes.Create(ctx, dupOrder))

	_, err = nodes.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
