package account

import (
	"context"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewAccountRepository(dbConn *gorm.DB) *AccountRepository {
	return &AccountRepository{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
	}
}

// WithTx binds the repository to an open transaction.
func (accountRepository *AccountRepository) WithTx(tx *gorm.DB) *AccountRepository {
	return &AccountRepository{DBConn: tx, CircuitBreaker: accountRepository.CircuitBreaker}
}

// SeedRoles makes sure both roles exist.
func (accountRepository *AccountRepository) SeedRoles(ctx context.Context) error {
	return database.Run(accountRepository.CircuitBreaker, func() error {
		for _, name := range []string{RoleAdmin, RoleTelecaller} {
			err := accountRepository.DBConn.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Role{Name: name}).Error
			if err != nil {
				logging.Logger.Error("[SeedRoles] Failed to seed role",
					zap.String("role", name),
					zap.String("error", err.Error()),
				)

				return err
			}
		}

		return nil
	})
}

func (accountRepository *AccountRepository) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return database.Execute(accountRepository.CircuitBreaker, func() (*Role, error) {
		var role Role

		err := accountRepository.DBConn.WithContext(ctx).
			Where("name = ?", name).
			First(&role).Error
		if err != nil {
			return nil, err
		}

		return &role, nil
	})
}

func (accountRepository *AccountRepository) Create(ctx context.Context, acc *Account) error {
	return database.Run(accountRepository.CircuitBreaker, func() error {
		acc.Email = strings.ToLower(strings.TrimSpace(acc.Email))

		err := accountRepository.DBConn.WithContext(ctx).Omit("Role").Create(acc).Error
		if err != nil {
			logging.Logger.Error("[CreateAccount] Failed to create account",
				zap.String("email", acc.Email),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)

			return err
		}

		return nil
	})
}

func (accountRepository *AccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return database.Execute(accountRepository.CircuitBreaker, func() (*Account, error) {
		var acc Account

		err := accountRepository.DBConn.WithContext(ctx).
			Preload("Role").
			Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
			First(&acc).Error
		if err != nil {
			return nil, err
		}

		return &acc, nil
	})
}

func (accountRepository *AccountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	return database.Execute(accountRepository.CircuitBreaker, func() (*Account, error) {
		var acc Account

		err := accountRepository.DBConn.WithContext(ctx).
			Preload("Role").
			Where("id = ?", accountID).
			First(&acc).Error
		if err != nil {
			return nil, err
		}

		return &acc, nil
	})
}

func (accountRepository *AccountRepository) UpdatePassword(
	ctx context.Context,
	accountID uuid.UUID,
	passwordHash string,
) error {
	return database.Run(accountRepository.CircuitBreaker, func() error {
		err := accountRepository.DBConn.WithContext(ctx).
			Model(&Account{}).
			Where("id = ?", accountID).
			Update("password_hash", passwordHash).Error
		if err != nil {
			logging.Logger.Error("[UpdatePassword] Failed to update password",
				zap.String("account_id", accountID.String()),
				zap.String("error", err.Error()),
			)
		}

		return err
	})
}

func (accountRepository *AccountRepository) SetActive(ctx context.Context, accountID uuid.UUID, active bool) error {
	return database.Run(accountRepository.CircuitBreaker, func() error {
		return accountRepository.DBConn.WithContext(ctx).
			Model(&Account{}).
			Where("id = ?", accountID).
			Update("is_active", active).Error
	})
}

func (accountRepository *AccountRepository) CountByRole(ctx context.Context, roleName string) (int64, error) {
	return database.Execute(accountRepository.CircuitBreaker, func() (int64, error) {
		var count int64

		err := accountRepository.DBConn.WithContext(ctx).
			Model(&Account{}).
			Where("role_id IN (?)", accountRepository.DBConn.Model(&Role{}).Select("id").Where("name = ?", roleName)).
			Count(&count).Error

		return count, err
	})
}
