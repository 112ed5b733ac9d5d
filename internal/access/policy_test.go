package access_test

import (
	"testing"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"github.com/stretchr/testify/require"
)

func TestForAccount(t *testing.T) {
	t.Parallel()

	telecallerID := uint(7)

	admin := &account.Account{Role: account.Role{Name: account.RoleAdmin}}
	caller := &account.Account{Role: account.Role{Name: account.RoleTelecaller}}

	adminPolicy := access.ForAccount(admin, nil)
	require.True(t, adminPolicy.IsAdmin())

	_, linked := adminPolicy.TelecallerID()
	require.False(t, linked)

	callerPolicy := access.ForAccount(caller, &telecallerID)
	require.False(t, callerPolicy.IsAdmin())

	id, linked := callerPolicy.TelecallerID()
	require.True(t, linked)
	require.EqualValues(t, 7, id)

	_, linked = access.ForAccount(caller, nil).TelecallerID()
	require.False(t, linked)
}
