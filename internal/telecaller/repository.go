package telecaller

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TelecallerRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewTelecallerRepository(dbConn *gorm.DB) *TelecallerRepository {
	return &TelecallerRepository{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
	}
}

func (telecallerRepository *TelecallerRepository) WithTx(tx *gorm.DB) *TelecallerRepository {
	return &TelecallerRepository{DBConn: tx, CircuitBreaker: telecallerRepository.CircuitBreaker}
}

type ListFilter struct {
	Search     string
	NamePrefix string
	Name       string
	BranchName string
	BranchID   *uint
	Status     string
}

func (f ListFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Search != "" {
		db = db.Where("LOWER(name) LIKE ?", query.Contains(f.Search))
	}

	if f.NamePrefix != "" {
		db = db.Where("LOWER(name) LIKE ?", query.Prefix(f.NamePrefix))
	}

	if f.Name != "" {
		db = db.Where("LOWER(name) LIKE ?", query.Contains(f.Name))
	}

	if f.BranchName != "" {
		db = db.Where(
			"branch_id IN (SELECT id FROM branches WHERE LOWER(branch_name) LIKE ?)",
			query.Contains(f.BranchName),
		)
	}

	if f.BranchID != nil {
		db = db.Where("branch_id = ?", *f.BranchID)
	}

	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}

	return db
}

func (telecallerRepository *TelecallerRepository) Create(ctx context.Context, telecaller *Telecaller) error {
	return database.Run(telecallerRepository.CircuitBreaker, func() error {
		err := telecallerRepository.DBConn.WithContext(ctx).Omit("Branch").Create(telecaller).Error
		if err != nil {
			logging.Logger.Error("[CreateTelecaller] Failed to create telecaller",
				zap.String("email", telecaller.Email),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)
		}

		return err
	})
}

func (telecallerRepository *TelecallerRepository) GetByID(ctx context.Context, telecallerID uint) (*Telecaller, error) {
	return database.Execute(telecallerRepository.CircuitBreaker, func() (*Telecaller, error) {
		var telecaller Telecaller

		err := telecallerRepository.DBConn.WithContext(ctx).
			Preload("Branch").
			First(&telecaller, telecallerID).Error
		if err != nil {
			return nil, err
		}

		return &telecaller, nil
	})
}

func (telecallerRepository *TelecallerRepository) GetByAccountID(
	ctx context.Context,
	accountID uuid.UUID,
) (*Telecaller, error) {
	return database.Execute(telecallerRepository.CircuitBreaker, func() (*Telecaller, error) {
		var telecaller Telecaller

		err := telecallerRepository.DBConn.WithContext(ctx).
			Preload("Branch").
			Where("account_id = ?", accountID).
			First(&telecaller).Error
		if err != nil {
			return nil, err
		}

		return &telecaller, nil
	})
}

func (telecallerRepository *TelecallerRepository) GetByIDs(ctx context.Context, telecallerIDs []uint) ([]Telecaller, error) {
	return database.Execute(telecallerRepository.CircuitBreaker, func() ([]Telecaller, error) {
		var telecallers []Telecaller

		if len(telecallerIDs) == 0 {
			return telecallers, nil
		}

		err := telecallerRepository.DBConn.WithContext(ctx).
			Preload("Branch").
			Where("id IN ?", telecallerIDs).
			Order("id ASC").
			Find(&telecallers).Error

		return telecallers, err
	})
}

func (telecallerRepository *TelecallerRepository) List(
	ctx context.Context,
	filter ListFilter,
	page query.Page,
) (query.Result[Telecaller], error) {
	return database.Execute(telecallerRepository.CircuitBreaker, func() (query.Result[Telecaller], error) {
		result := query.Result[Telecaller]{Page: page}

		stmt := telecallerRepository.DBConn.WithContext(ctx).
			Model(&Telecaller{}).
			Scopes(filter.apply).
			Session(&gorm.Session{})

		err := stmt.Count(&result.Total).Error
		if err != nil {
			return result, err
		}

		err = stmt.Preload("Branch").
			Order("name ASC, id ASC").
			Scopes(page.Scope).
			Find(&result.Items).Error

		return result, err
	})
}

// ListActive returns every active telecaller ordered by id, the order used for
// round-robin assignment.
func (telecallerRepository *TelecallerRepository) ListActive(ctx context.Context) ([]Telecaller, error) {
	return database.Execute(telecallerRepository.CircuitBreaker, func() ([]Telecaller, error) {
		var telecallers []Telecaller

		err := telecallerRepository.DBConn.WithContext(ctx).
			Where("status = ?", StatusActive).
			Order("id ASC").
			Find(&telecallers).Error

		return telecallers, err
	})
}

func (telecallerRepository *TelecallerRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return database.Execute(telecallerRepository.CircuitBreaker, func() (int64, error) {
		var count int64

		err := telecallerRepository.DBConn.WithContext(ctx).
			Model(&Telecaller{}).
			Scopes(filter.apply).
			Count(&count).Error

		return count, err
	})
}

func (telecallerRepository *TelecallerRepository) Update(
	ctx context.Context,
	telecaller *Telecaller,
	updates map[string]any,
) error {
	return database.Run(telecallerRepository.CircuitBreaker, func() error {
		err := telecallerRepository.DBConn.WithContext(ctx).
			Model(&Telecaller{}).
			Where("id = ?", telecaller.ID).
			Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[UpdateTelecaller] Failed to update telecaller",
				zap.Uint("telecaller_id", telecaller.ID),
				zap.Any("updates", updates),
				zap.String("error", err.Error()),
			)
		}

		return err
	})
}
