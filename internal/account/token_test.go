package account_test

import (
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestAccount() *account.Account {
	return &account.Account{
		ID:    uuid.New(),
		Email: "ravi@example.com",
		Role:  account.Role{Name: account.RoleTelecaller},
	}
}

func TestIssueAndParsePair(t *testing.T) {
	t.Parallel()

	issuer := account.NewTokenIssuer("secret", time.Hour, 24*time.Hour)
	acc := newTestAccount()

	pair, err := issuer.IssuePair(acc)
	require.NoError(t, err)

	claims, err := issuer.Parse(pair.Access, account.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, acc.ID.String(), claims.AccountID)
	require.Equal(t, account.RoleTelecaller, claims.Role)

	_, err = issuer.Parse(pair.Refresh, account.TokenTypeAccess)
	require.ErrorIs(t, err, account.ErrWrongTokenType)

	_, err = issuer.Parse(pair.Refresh, account.TokenTypeRefresh)
	require.NoError(t, err)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	t.Parallel()

	issuer := account.NewTokenIssuer("secret", time.Minute, time.Hour)
	other := account.NewTokenIssuer("other-secret", time.Minute, time.Hour)
	acc := newTestAccount()

	foreign, err := other.IssueAccess(acc)
	require.NoError(t, err)

	_, err = issuer.Parse(foreign, account.TokenTypeAccess)
	require.ErrorIs(t, err, account.ErrInvalidToken)

	token, err := issuer.IssueAccess(acc)
	require.NoError(t, err)

	issuer.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = issuer.Parse(token, account.TokenTypeAccess)
	require.ErrorIs(t, err, account.ErrInvalidToken)

	_, err = issuer.Parse("not-a-token", account.TokenTypeAccess)
	require.ErrorIs(t, err, account.ErrInvalidToken)
}

func TestClaimsRemaining(t *testing.T) {
	t.Parallel()

	issuer := account.NewTokenIssuer("secret", time.Hour, time.Hour)

	token, err := issuer.IssueAccess(newTestAccount())
	require.NoError(t, err)

	claims, err := issuer.Parse(token, account.TokenTypeAccess)
	require.NoError(t, err)

	remaining := claims.Remaining(time.Now())
	require.Greater(t, remaining, 59*time.Minute)
	require.LessOrEqual(t, remaining, time.Hour)

	require.Zero(t, (&account.Claims{}).Remaining(time.Now()))
}

func TestPassword(t *testing.T) {
	t.Parallel()

	_, err := account.HashPassword("short")
	require.ErrorIs(t, err, account.ErrPasswordTooShort)

	hashed, err := account.HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, account.CheckPassword(hashed, "correct horse"))
	require.False(t, account.CheckPassword(hashed, "battery staple"))
}
