package telecaller_test

import (
	"context"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	accounts    *account.AccountService
	telecallers *telecaller.TelecallerService
	branch      *branch.Branch
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db := test.NewSQLite(t, &account.Role{}, &account.Account{}, &branch.Branch{}, &telecaller.Telecaller{})

	accounts := account.NewService(db, account.NewTokenIssuer("secret", time.Hour, time.Hour), nil)
	require.NoError(t, accounts.AccountRepository.SeedRoles(ctx))

	kochi := &branch.Branch{Name: "Kochi", Email: "kochi@example.com"}
	require.NoError(t, branch.NewService(db).Create(ctx, kochi))

	return &fixture{
		accounts:    accounts,
		telecallers: telecaller.NewService(db, accounts),
		branch:      kochi,
	}
}

func TestCreateTelecaller(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	created, err := f.telecallers.Create(ctx, telecaller.CreateInput{
		Name:      " Ravi ",
		Email:     "Ravi@Example.com",
		Password:  "password123",
		BranchID:  &f.branch.ID,
		CreatedBy: "admin@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "Ravi", created.Name)
	require.Equal(t, telecaller.JobTypeFullTime, created.JobType)
	require.Equal(t, telecaller.StatusActive, created.Status)
	require.Equal(t, "Kochi", created.BranchName())

	view := created.View()
	require.NotNil(t, view.BranchName)
	require.Equal(t, "Kochi", *view.BranchName)

	result, err := f.accounts.Login(ctx, "ravi@example.com", "password123")
	require.NoError(t, err)

	linked, err := f.telecallers.ForAccount(ctx, result.Account.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, linked.ID)
}

func TestCreateTelecallerRollsBackAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	_, err := f.telecallers.Create(ctx, telecaller.CreateInput{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "short",
	})

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "password")

	_, err = f.accounts.Login(ctx, "ravi@example.com", "short")
	require.ErrorIs(t, err, account.ErrInvalidCredentials)

	count, err := f.telecallers.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDeactivateMirrorsAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	created, err := f.telecallers.Create(ctx, telecaller.CreateInput{
		Name:     "Ravi",
		Email:    "ravi@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	require.NoError(t, f.telecallers.Deactivate(ctx, created.ID))

	_, err = f.accounts.Login(ctx, "ravi@example.com", "password123")
	require.ErrorIs(t, err, account.ErrInactiveAccount)

	reloaded, err := f.telecallers.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, telecaller.StatusDeactivated, reloaded.Status)

	active, err := f.telecallers.ListActive(ctx)
	require.NoError(t, err)
	require.Empty(t, active)

	_, err = f.telecallers.Update(ctx, created.ID, map[string]any{"status": telecaller.StatusActive})
	require.NoError(t, err)

	_, err = f.accounts.Login(ctx, "ravi@example.com", "password123")
	require.NoError(t, err)
}

func TestListTelecallers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	for _, input := range []telecaller.CreateInput{
		{Name: "Anu", Email: "anu@example.com", Password: "password123", BranchID: &f.branch.ID},
		{Name: "Ravi", Email: "ravi@example.com", Password: "password123"},
	} {
		_, err := f.telecallers.Create(ctx, input)
		require.NoError(t, err)
	}

	result, err := f.telecallers.List(ctx, telecaller.ListFilter{BranchName: "koc"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Total)
	require.Equal(t, "Anu", result.Items[0].Name)

	result, err = f.telecallers.List(ctx, telecaller.ListFilter{Search: "RAV"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Total)
	require.Equal(t, "Ravi", result.Items[0].Name)

	_, err = f.telecallers.Get(ctx, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
