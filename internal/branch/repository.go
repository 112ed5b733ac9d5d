package branch

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BranchRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewBranchRepository(dbConn *gorm.DB) *BranchRepository {
	return &BranchRepository{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
	}
}

func (branchRepository *BranchRepository) Create(ctx context.Context, branch *Branch) error {
	return database.Run(branchRepository.CircuitBreaker, func() error {
		err := branchRepository.DBConn.WithContext(ctx).Create(branch).Error
		if err != nil {
			logging.Logger.Error("[CreateBranch] Failed to create branch",
				zap.String("branch_name", branch.Name),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)
		}

		return err
	})
}

func (branchRepository *BranchRepository) GetByID(ctx context.Context, branchID uint) (*Branch, error) {
	return database.Execute(branchRepository.CircuitBreaker, func() (*Branch, error) {
		var branch Branch

		err := branchRepository.DBConn.WithContext(ctx).First(&branch, branchID).Error
		if err != nil {
			return nil, err
		}

		return &branch, nil
	})
}

// List returns branches whose name starts with search, newest first.
func (branchRepository *BranchRepository) List(
	ctx context.Context,
	search string,
	page query.Page,
) (query.Result[Branch], error) {
	return database.Execute(branchRepository.CircuitBreaker, func() (query.Result[Branch], error) {
		result := query.Result[Branch]{Page: page}

		stmt := branchRepository.DBConn.WithContext(ctx).Model(&Branch{})
		if search != "" {
			stmt = stmt.Where("LOWER(branch_name) LIKE ?", query.Prefix(search))
		}

		stmt = stmt.Session(&gorm.Session{})

		err := stmt.Count(&result.Total).Error
		if err != nil {
			return result, err
		}

		err = stmt.Order("created_at DESC, id DESC").Scopes(page.Scope).Find(&result.Items).Error

		return result, err
	})
}

func (branchRepository *BranchRepository) Count(ctx context.Context) (int64, error) {
	return database.Execute(branchRepository.CircuitBreaker, func() (int64, error) {
		var count int64

		err := branchRepository.DBConn.WithContext(ctx).Model(&Branch{}).Count(&count).Error

		return count, err
	})
}

func (branchRepository *BranchRepository) Update(ctx context.Context, branch *Branch, updates map[string]any) error {
	return database.Run(branchRepository.CircuitBreaker, func() error {
		err := branchRepository.DBConn.WithContext(ctx).Model(branch).Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[UpdateBranch] Failed to update branch",
				zap.Uint("branch_id", branch.ID),
				zap.Any("updates", updates),
				zap.String("error", err.Error()),
			)
		}

		return err
	})
}

func (branchRepository *BranchRepository) Delete(ctx context.Context, branchID uint) error {
	return database.Run(branchRepository.CircuitBreaker, func() error {
		return branchRepository.DBConn.WithContext(ctx).Delete(&Branch{}, branchID).Error
	})
}
