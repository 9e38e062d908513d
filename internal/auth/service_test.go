package auth_test

import (
	"testing"
	"time"

	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*auth.Service, *testutil.TestSetup) {
	t.Helper()
	setup := testutil.NewTestContext(t)
	return auth.NewService(setup.Store, auth.NewJWTService("test-secret", time.Hour)), setup
}

func TestRegister_WithOrganization(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)

	resp, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "  Owner@Example.com ",
		Password: "correct-horse",
		Name:     "Dana",
		OrgName:  "Acme Builders",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "owner@example.com", resp.User.Email)
	require.NotNil(t, resp.User.OrganizationID)
	assert.True(t, resp.User.Onboarded)

	binding, err := setup.Store.GetOrgBinding(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.OrgRoleOwner, binding.Role)
	assert.Equal(t, *resp.User.OrganizationID, binding.OrganizationID)

	_, err = svc.Register(ctx, auth.RegisterInput{Email: "owner@example.com", Password: "x"})
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestRegister_UnaffiliatedThenCreateOrganization(t *testing.T) {
	svc, _ := newService(t)
	ctx := testutil.TestContext(t)

	resp, err := svc.Register(ctx, auth.RegisterInput{Email: "crew@example.com", Password: "pw-123456", Name: "Sam"})
	require.NoError(t, err)
	assert.Nil(t, resp.User.OrganizationID)
	assert.False(t, resp.User.Onboarded)

	_, err = svc.CreateOrganization(ctx, resp.User.ID, "  ")
	assert.True(t, apperr.Is(err, apperr.Validation))

	org, err := svc.CreateOrganization(ctx, resp.User.ID, "Sam's Crew")
	require.NoError(t, err)
	assert.Equal(t, "Sam's Crew", org.Name)

	_, err = svc.CreateOrganization(ctx, resp.User.ID, "Second Org")
	assert.ErrorIs(t, err, auth.ErrAlreadyOnboarded)
}

func TestLogin(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginInput{Email: setup.User.Email, Password: "testpassword123"})
		require.NoError(t, err)
		assert.Equal(t, setup.User.ID, resp.User.ID)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: setup.User.Email, Password: "nope"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "ghost@example.com", Password: "testpassword123"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("disabled user", func(t *testing.T) {
		user := testutil.CreateTestUser(t, setup.DB, setup.Org, rbac.OrgRoleMember)
		require.NoError(t, setup.Store.SetUserDisabled(ctx, setup.Org.ID, user.ID, true))

		_, err := svc.Login(ctx, auth.LoginInput{Email: user.Email, Password: "testpassword123"})
		assert.ErrorIs(t, err, auth.ErrInactiveUser)
	})
}

func TestGetUserByID(t *testing.T) {
	svc, setup := newService(t)
	ctx := testutil.TestContext(t)

	user, err := svc.GetUserByID(ctx, setup.User.ID)
	require.NoError(t, err)
	assert.Equal(t, setup.User.Email, user.Email)

	_, err = svc.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("SecurePassword123")
	require.NoError(t, err)
	assert.NotEqual(t, "SecurePassword123", hash)
	assert.True(t, auth.CheckPassword("SecurePassword123", hash))
	assert.False(t, auth.CheckPassword("securepassword123", hash))

	again, err := auth.HashPassword("SecurePassword123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}
