package branch

import (
	"context"
	"errors"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"gorm.io/gorm"
)

type BranchService struct {
	BranchRepository *BranchRepository
}

func NewService(dbConn *gorm.DB) *BranchService {
	return &BranchService{BranchRepository: NewBranchRepository(dbConn)}
}

func (branchService *BranchService) Create(ctx context.Context, branch *Branch) error {
	branch.Email = strings.ToLower(strings.TrimSpace(branch.Email))

	err := branchService.BranchRepository.Create(ctx, branch)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.NewValidation("email", "branch with this email already exists.")
	}

	return err
}

func (branchService *BranchService) Get(ctx context.Context, branchID uint) (*Branch, error) {
	branch, err := branchService.BranchRepository.GetByID(ctx, branchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("branch")
	}

	return branch, err
}

func (branchService *BranchService) List(ctx context.Context, search string, page query.Page) (query.Result[Branch], error) {
	return branchService.BranchRepository.List(ctx, search, page)
}

func (branchService *BranchService) Count(ctx context.Context) (int64, error) {
	return branchService.BranchRepository.Count(ctx)
}

func (branchService *BranchService) Update(ctx context.Context, branchID uint, updates map[string]any) (*Branch, error) {
	branch, err := branchService.Get(ctx, branchID)
	if err != nil {
		return nil, err
	}

	if email, ok := updates["email"].(string); ok {
		updates["email"] = strings.ToLower(strings.TrimSpace(email))
	}

	if len(updates) > 0 {
		err = branchService.BranchRepository.Update(ctx, branch, updates)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.NewValidation("email", "branch with this email already exists.")
		}

		if err != nil {
			return nil, err
		}
	}

	return branchService.Get(ctx, branchID)
}

func (branchService *BranchService) Delete(ctx context.Context, branchID uint) error {
	_, err := branchService.Get(ctx, branchID)
	if err != nil {
		return err
	}

	return branchService.BranchRepository.Delete(ctx, branchID)
}
