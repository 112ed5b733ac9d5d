// Package access decides which enquiries and calls a principal may see.
package access

import (
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"gorm.io/gorm"
)

// Policy scopes queries over tables carrying a telecaller_id owner column.
type Policy interface {
	// Scope restricts db to rows visible to the principal. column is the
	// owner column, qualified when the query joins other tables.
	Scope(column string) func(db *gorm.DB) *gorm.DB
	// TelecallerID returns the principal's telecaller, if linked.
	TelecallerID() (uint, bool)
	IsAdmin() bool
}

// AdminPolicy sees every row.
type AdminPolicy struct {
	// Telecaller is set when an admin account also has a telecaller record.
	Telecaller *uint
}

func (AdminPolicy) Scope(string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db }
}

func (p AdminPolicy) TelecallerID() (uint, bool) {
	if p.Telecaller == nil {
		return 0, false
	}

	return *p.Telecaller, true
}

func (AdminPolicy) IsAdmin() bool { return true }

// TelecallerPolicy sees only rows owned by its telecaller. Without a linked
// telecaller it sees nothing.
type TelecallerPolicy struct {
	Telecaller *uint
}

func (p TelecallerPolicy) Scope(column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Telecaller == nil {
			return db.Where("1 = 0")
		}

		return db.Where(column+" = ?", *p.Telecaller)
	}
}

func (p TelecallerPolicy) TelecallerID() (uint, bool) {
	if p.Telecaller == nil {
		return 0, false
	}

	return *p.Telecaller, true
}

func (TelecallerPolicy) IsAdmin() bool { return false }

// Principal is the authenticated caller of one request.
type Principal struct {
	Account *account.Account
	Policy  Policy
}

// ForAccount selects the policy from the account role and its telecaller link.
func ForAccount(acc *account.Account, telecallerID *uint) Policy {
	if acc.IsAdmin() {
		return AdminPolicy{Telecaller: telecallerID}
	}

	return TelecallerPolicy{Telecaller: telecallerID}
}
