package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrRevokedToken       = errors.New("token has been revoked")
)

type AccountService struct {
	AccountRepository *AccountRepository
	TokenIssuer       *TokenIssuer
	Blacklist         *TokenBlacklist
}

func NewService(dbConn *gorm.DB, tokenIssuer *TokenIssuer, blacklist *TokenBlacklist) *AccountService {
	return &AccountService{
		AccountRepository: NewAccountRepository(dbConn),
		TokenIssuer:       tokenIssuer,
		Blacklist:         blacklist,
	}
}

type LoginResult struct {
	Tokens  *TokenPair
	Account *Account
}

// Register creates an account with the named role.
func (accountService *AccountService) Register(
	ctx context.Context,
	email, password, roleName string,
) (*Account, error) {
	return accountService.register(ctx, accountService.AccountRepository, email, password, roleName)
}

// RegisterTx is Register inside a caller-owned transaction.
func (accountService *AccountService) RegisterTx(
	ctx context.Context,
	tx *gorm.DB,
	email, password, roleName string,
) (*Account, error) {
	return accountService.register(ctx, accountService.AccountRepository.WithTx(tx), email, password, roleName)
}

func (accountService *AccountService) register(
	ctx context.Context,
	repo *AccountRepository,
	email, password, roleName string,
) (*Account, error) {
	role, err := repo.GetRoleByName(ctx, roleName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewValidation("role", fmt.Sprintf("unknown role %q", roleName))
	}

	if err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if errors.Is(err, ErrPasswordTooShort) {
		return nil, apperr.NewValidation("password", err.Error())
	}

	if err != nil {
		return nil, err
	}

	acc := &Account{
		Email:        email,
		PasswordHash: passwordHash,
		RoleID:       role.ID,
		IsActive:     true,
	}

	err = repo.Create(ctx, acc)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.NewValidation("email", "account with this email already exists.")
	}

	if err != nil {
		return nil, err
	}

	acc.Role = *role

	logging.Logger.Info("account registered",
		zap.String("account_id", acc.ID.String()),
		zap.String("role", roleName),
	)

	return acc, nil
}

// AdminExists reports whether the bootstrap admin has been created.
func (accountService *AccountService) AdminExists(ctx context.Context) (bool, error) {
	count, err := accountService.AccountRepository.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (accountService *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	acc, err := accountService.AccountRepository.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, err
	}

	if !CheckPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !acc.IsActive {
		return nil, ErrInactiveAccount
	}

	tokens, err := accountService.TokenIssuer.IssuePair(acc)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Tokens: tokens, Account: acc}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (accountService *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	acc, _, err := accountService.authenticate(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	return accountService.TokenIssuer.IssueAccess(acc)
}

// Authenticate resolves an access token to an active account.
func (accountService *AccountService) Authenticate(ctx context.Context, accessToken string) (*Account, *Claims, error) {
	return accountService.authenticate(ctx, accessToken, TokenTypeAccess)
}

func (accountService *AccountService) authenticate(
	ctx context.Context,
	token, tokenType string,
) (*Account, *Claims, error) {
	claims, err := accountService.TokenIssuer.Parse(token, tokenType)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := accountService.Blacklist.IsBlacklisted(ctx, token)
	if err != nil {
		logging.Logger.Error("[Authenticate] Failed to check token blacklist", zap.String("error", err.Error()))
		return nil, nil, err
	}

	if revoked {
		return nil, nil, ErrRevokedToken
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	acc, err := accountService.AccountRepository.GetByID(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidToken
	}

	if err != nil {
		return nil, nil, err
	}

	if !acc.IsActive {
		return nil, nil, ErrInactiveAccount
	}

	return acc, claims, nil
}

func (accountService *AccountService) ChangePassword(
	ctx context.Context,
	acc *Account,
	oldPassword, newPassword string,
) error {
	if !CheckPassword(acc.PasswordHash, oldPassword) {
		return apperr.NewValidation("old_password", "Old password is incorrect.")
	}

	passwordHash, err := HashPassword(newPassword)
	if errors.Is(err, ErrPasswordTooShort) {
		return apperr.NewValidation("new_password", err.Error())
	}

	if err != nil {
		return err
	}

	return accountService.AccountRepository.UpdatePassword(ctx, acc.ID, passwordHash)
}

// Logout revokes the token for the rest of its lifetime.
func (accountService *AccountService) Logout(ctx context.Context, token string, claims *Claims) error {
	return accountService.Blacklist.Add(ctx, token, claims.Remaining(time.Now()))
}

func (accountService *AccountService) SetActive(ctx context.Context, accountID uuid.UUID, active bool) error {
	return accountService.AccountRepository.SetActive(ctx, accountID, active)
}

func (accountService *AccountService) SetActiveTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, active bool) error {
	return accountService.AccountRepository.WithTx(tx).SetActive(ctx, accountID, active)
}
