package account_test

import (
	"context"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T, blacklist *account.TokenBlacklist) *account.AccountService {
	t.Helper()

	db := test.NewSQLite(t, &account.Role{}, &account.Account{})
	service := account.NewService(db, account.NewTokenIssuer("secret", time.Hour, 24*time.Hour), blacklist)

	require.NoError(t, service.AccountRepository.SeedRoles(context.Background()))
	require.NoError(t, service.AccountRepository.SeedRoles(context.Background()))

	return service
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service := newAccountService(t, nil)

	exists, err := service.AdminExists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	acc, err := service.Register(ctx, "admin@example.com", "password123", account.RoleAdmin)
	require.NoError(t, err)
	require.True(t, acc.IsAdmin())

	exists, err = service.AdminExists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	_, err = service.Register(ctx, "admin@example.com", "password123", account.RoleAdmin)

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "email")

	_, err = service.Register(ctx, "other@example.com", "password123", "Manager")
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "role")

	result, err := service.Login(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, acc.ID, result.Account.ID)
	require.NotEmpty(t, result.Tokens.Access)

	_, err = service.Login(ctx, "admin@example.com", "wrong-password")
	require.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, err = service.Login(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestInactiveAccountIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service := newAccountService(t, nil)

	acc, err := service.Register(ctx, "caller@example.com", "password123", account.RoleTelecaller)
	require.NoError(t, err)

	result, err := service.Login(ctx, "caller@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, service.SetActive(ctx, acc.ID, false))

	_, err = service.Login(ctx, "caller@example.com", "password123")
	require.ErrorIs(t, err, account.ErrInactiveAccount)

	_, _, err = service.Authenticate(ctx, result.Tokens.Access)
	require.ErrorIs(t, err, account.ErrInactiveAccount)
}

func TestRefreshAndLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blacklist, _ := newBlacklist(t)
	service := newAccountService(t, blacklist)

	_, err := service.Register(ctx, "caller@example.com", "password123", account.RoleTelecaller)
	require.NoError(t, err)

	result, err := service.Login(ctx, "caller@example.com", "password123")
	require.NoError(t, err)

	access, err := service.Refresh(ctx, result.Tokens.Refresh)
	require.NoError(t, err)

	_, err = service.Refresh(ctx, access)
	require.ErrorIs(t, err, account.ErrWrongTokenType)

	acc, claims, err := service.Authenticate(ctx, access)
	require.NoError(t, err)
	require.Equal(t, "caller@example.com", acc.Email)

	require.NoError(t, service.Logout(ctx, access, claims))

	_, _, err = service.Authenticate(ctx, access)
	require.ErrorIs(t, err, account.ErrRevokedToken)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service := newAccountService(t, nil)

	acc, err := service.Register(ctx, "caller@example.com", "password123", account.RoleTelecaller)
	require.NoError(t, err)

	err = service.ChangePassword(ctx, acc, "wrong-password", "newpassword")

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "old_password")

	err = service.ChangePassword(ctx, acc, "password123", "short")
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "new_password")

	require.NoError(t, service.ChangePassword(ctx, acc, "password123", "newpassword"))

	_, err = service.Login(ctx, "caller@example.com", "newpassword")
	require.NoError(t, err)
}
