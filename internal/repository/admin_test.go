// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/pii"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/testutil"
)

func TestCreateAdmin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin, err := repo.CreateAdmin(ctx, repository.CreateAdminParams{
		FullName:     "Asha Rao",
		Phone:        "+919876543210",
		Email:        "asha@example.com",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
	})
	require.NoError(t, err)

	assert.NotZero(t, admin.ID)
	assert.Equal(t, "asha@example.com", admin.Email)
	assert.Equal(t, "+919876543210", admin.Phone)
	assert.Equal(t, "3210", admin.PhoneLast4)
	assert.Equal(t, pii.LookupHash("+919876543210"), admin.PhoneHash)
	assert.NotEqual(t, "+919876543210", admin.PhoneEncrypted)
	assert.False(t, admin.TwoFactorEnabled)
	assert.False(t, admin.IsPhoneVerified)
}

func TestCreateAdmin_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	_, err := repo.CreateAdmin(ctx, repository.CreateAdminParams{
		FullName:     "Other",
		Phone:        "+919876543211",
		Email:        "asha@example.com",
		PasswordHash: "hash",
		Role:         models.RoleViewer,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestCreateAdmin_DuplicatePhone(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	_, err := repo.CreateAdmin(ctx, repository.CreateAdminParams{
		FullName:     "Other",
		Phone:        "+919876543210",
		Email:        "other@example.com",
		PasswordHash: "hash",
		Role:         models.RoleViewer,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicatePhone)
}

func TestGetAdminByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetAdminByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetAdminByPhoneHash(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	found, err := repo.GetAdminByPhoneHash(ctx, pii.LookupHash("+919876543210"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "+919876543210", found.Phone)
}

func TestListAdmins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	testutil.NewTestAdmin(t, repo, "a@example.com", "+919876543210")
	testutil.NewTestAdmin(t, repo, "b@example.com", "+919876543211")

	admins, err := repo.ListAdmins(context.Background())
	require.NoError(t, err)
	assert.Len(t, admins, 2)
}

func TestSetTwoFactorEnabled(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	require.NoError(t, repo.SetTwoFactorEnabled(ctx, admin.ID, true))

	updated, err := repo.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, updated.TwoFactorEnabled)
}

func TestSetPhoneVerified(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	require.NoError(t, repo.SetPhoneVerified(ctx, admin.ID, true))

	updated, err := repo.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsPhoneVerified)
}

func TestUpdateAdminProfile(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")

	require.NoError(t, repo.UpdateAdminProfile(ctx, admin.ID, "New Name"))

	updated, err := repo.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
}
