package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalRepo_CreateGetList(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLPrincipalRepo(database)

	require.NoError(t, repo.CreatePrincipal(ctx, testutil.NewTestPrincipal("bob")))
	require.NoError(t, repo.CreatePrincipal(ctx, testutil.NewTestPrincipal("alice")))
	assert.ErrorIs(t, repo.CreatePrincipal(ctx, testutil.NewTestPrincipal("bob")), domain.ErrDuplicateResource)

	got, err := repo.GetPrincipal(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "User bob", got.DisplayName)
	assert.True(t, got.Active)

	_, err = repo.GetPrincipal(ctx, "zed")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := repo.ListPrincipals(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].ID)

	names, err := repo.DisplayNames(ctx, []string{"alice", "zed"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "User alice"}, names)

	empty, err := repo.DisplayNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPrincipalRepo_RolesAndMembers(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLPrincipalRepo(database)

	for _, id := range []string{"carol", "bob"} {
		require.NoError(t, repo.CreatePrincipal(ctx, testutil.NewTestPrincipal(id)))
	}
	inactive := testutil.NewTestPrincipal("dave")
	inactive.Active = false
	require.NoError(t, repo.CreatePrincipal(ctx, inactive))

	require.NoError(t, repo.CreateRole(ctx, testutil.NewTestRole("finance")))
	assert.ErrorIs(t, repo.CreateRole(ctx, testutil.NewTestRole("finance")), domain.ErrDuplicateResource)

	for _, id := range []string{"carol", "bob", "dave", "bob"} {
		require.NoError(t, repo.AssignRole(ctx, "finance", id))
	}

	members, err := repo.MembersOfRole(ctx, "finance")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, members, "inactive members are excluded")

	role, err := repo.GetRole(ctx, "finance")
	require.NoError(t, err)
	assert.Equal(t, "Role finance", role.Name)

	_, err = repo.GetRole(ctx, "legal")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	roles, err := repo.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	none, err := repo.MembersOfRole(ctx, "legal")
	require.NoError(t, err)
	assert.Empty(t, none)
}
