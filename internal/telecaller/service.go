package telecaller

import (
	"context"
	"errors"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TelecallerService struct {
	DBConn               *gorm.DB
	TelecallerRepository *TelecallerRepository
	AccountService       *account.AccountService
}

func NewService(dbConn *gorm.DB, accountService *account.AccountService) *TelecallerService {
	return &TelecallerService{
		DBConn:               dbConn,
		TelecallerRepository: NewTelecallerRepository(dbConn),
		AccountService:       accountService,
	}
}

type CreateInput struct {
	Name      string
	Email     string
	Password  string
	Contact   string
	Address   string
	BranchID  *uint
	JobType   string
	Target    int
	CreatedBy string
}

// Create registers the login account and the telecaller profile together.
func (telecallerService *TelecallerService) Create(ctx context.Context, input CreateInput) (*Telecaller, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	jobType := input.JobType
	if jobType == "" {
		jobType = JobTypeFullTime
	}

	telecaller := &Telecaller{
		Name:      strings.TrimSpace(input.Name),
		Email:     email,
		Contact:   strings.TrimSpace(input.Contact),
		Address:   input.Address,
		BranchID:  input.BranchID,
		JobType:   jobType,
		Status:    StatusActive,
		Target:    input.Target,
		CreatedBy: input.CreatedBy,
	}

	err := telecallerService.DBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := telecallerService.AccountService.RegisterTx(ctx, tx, email, input.Password, account.RoleTelecaller)
		if err != nil {
			return err
		}

		telecaller.AccountID = acc.ID

		err = telecallerService.TelecallerRepository.WithTx(tx).Create(ctx, telecaller)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.NewValidation("email", "telecaller with this email already exists.")
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	logging.Logger.Info("telecaller created",
		zap.Uint("telecaller_id", telecaller.ID),
		zap.String("created_by", input.CreatedBy),
	)

	return telecallerService.Get(ctx, telecaller.ID)
}

func (telecallerService *TelecallerService) Get(ctx context.Context, telecallerID uint) (*Telecaller, error) {
	telecaller, err := telecallerService.TelecallerRepository.GetByID(ctx, telecallerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("telecaller")
	}

	return telecaller, err
}

// ForAccount returns the telecaller linked to an account, or nil when there is none.
func (telecallerService *TelecallerService) ForAccount(ctx context.Context, accountID uuid.UUID) (*Telecaller, error) {
	telecaller, err := telecallerService.TelecallerRepository.GetByAccountID(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	return telecaller, err
}

func (telecallerService *TelecallerService) List(
	ctx context.Context,
	filter ListFilter,
	page query.Page,
) (query.Result[Telecaller], error) {
	return telecallerService.TelecallerRepository.List(ctx, filter, page)
}

func (telecallerService *TelecallerService) ListActive(ctx context.Context) ([]Telecaller, error) {
	return telecallerService.TelecallerRepository.ListActive(ctx)
}

func (telecallerService *TelecallerService) Count(ctx context.Context) (int64, error) {
	return telecallerService.TelecallerRepository.Count(ctx, ListFilter{})
}

// Update applies a partial update. A status change is mirrored onto the login account.
func (telecallerService *TelecallerService) Update(
	ctx context.Context,
	telecallerID uint,
	updates map[string]any,
) (*Telecaller, error) {
	telecaller, err := telecallerService.Get(ctx, telecallerID)
	if err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return telecaller, nil
	}

	if email, ok := updates["email"].(string); ok {
		updates["email"] = strings.ToLower(strings.TrimSpace(email))
	}

	err = telecallerService.DBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := telecallerService.TelecallerRepository.WithTx(tx).Update(ctx, telecaller, updates)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.NewValidation("email", "telecaller with this email already exists.")
		}

		if err != nil {
			return err
		}

		status, ok := updates["status"].(string)
		if !ok || status == telecaller.Status {
			return nil
		}

		return telecallerService.AccountService.SetActiveTx(ctx, tx, telecaller.AccountID, status == StatusActive)
	})
	if err != nil {
		return nil, err
	}

	return telecallerService.Get(ctx, telecallerID)
}

// Deactivate is the DELETE operation: telecallers keep their history and are never removed.
func (telecallerService *TelecallerService) Deactivate(ctx context.Context, telecallerID uint) error {
	_, err := telecallerService.Update(ctx, telecallerID, map[string]any{"status": StatusDeactivated})

	return err
}
