package enquiry

import (
	"context"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnquiryRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewEnquiryRepository(dbConn *gorm.DB) *EnquiryRepository {
	return &EnquiryRepository{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
	}
}

func (enquiryRepository *EnquiryRepository) WithTx(tx *gorm.DB) *EnquiryRepository {
	return &EnquiryRepository{DBConn: tx, CircuitBreaker: enquiryRepository.CircuitBreaker}
}

// Filter narrows enquiry reads. Zero fields are ignored.
type Filter struct {
	Status          string
	Statuses        []string
	ExcludeStatuses []string
	Source          string
	TelecallerID    *uint
	TelecallerName  string
	BranchName      string
	CandidateName   string
	Phone           string
	Email           string
	Created         *query.DateRange
	Search          string
}

func (f Filter) apply(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("LOWER(enquiry_status) = ?", strings.ToLower(strings.TrimSpace(f.Status)))
	}

	if len(f.Statuses) > 0 {
		db = db.Where("enquiry_status IN ?", f.Statuses)
	}

	if len(f.ExcludeStatuses) > 0 {
		db = db.Where("enquiry_status NOT IN ?", f.ExcludeStatuses)
	}

	if f.Source != "" {
		db = db.Where("LOWER(enquiry_source) = ?", strings.ToLower(strings.TrimSpace(f.Source)))
	}

	if f.TelecallerID != nil {
		db = db.Where("telecaller_id = ?", *f.TelecallerID)
	}

	if f.TelecallerName != "" {
		db = db.Where(
			"telecaller_id IN (SELECT id FROM telecallers WHERE LOWER(name) LIKE ?)",
			query.Contains(f.TelecallerName),
		)
	}

	if f.BranchName != "" {
		db = db.Where(
			"telecaller_id IN (SELECT t.id FROM telecallers t JOIN branches b ON b.id = t.branch_id "+
				"WHERE LOWER(b.branch_name) LIKE ?)",
			query.Contains(f.BranchName),
		)
	}

	if f.CandidateName != "" {
		db = db.Where("LOWER(candidate_name) LIKE ?", query.Contains(f.CandidateName))
	}

	if f.Phone != "" {
		db = db.Where("(phone LIKE ? OR phone2 LIKE ?)", query.Contains(f.Phone), query.Contains(f.Phone))
	}

	if f.Email != "" {
		db = db.Where("LOWER(email) LIKE ?", query.Contains(f.Email))
	}

	if f.Created != nil {
		db = db.Where("created_at >= ? AND created_at < ?", f.Created.From, f.Created.To)
	}

	if f.Search != "" {
		pattern := query.Contains(f.Search)
		db = db.Where(
			"(LOWER(candidate_name) LIKE ? OR phone LIKE ? OR phone2 LIKE ? OR LOWER(email) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}

	return db
}

func preload(db *gorm.DB) *gorm.DB {
	return db.Preload("Telecaller.Branch").
		Preload("Branch").
		Preload("Course").
		Preload("Service").
		Preload("Mettad")
}

func (enquiryRepository *EnquiryRepository) scoped(ctx context.Context, policy access.Policy) *gorm.DB {
	return enquiryRepository.DBConn.WithContext(ctx).
		Model(&Enquiry{}).
		Scopes(policy.Scope("telecaller_id"))
}

func (enquiryRepository *EnquiryRepository) Create(ctx context.Context, enquiry *Enquiry) error {
	return database.Run(enquiryRepository.CircuitBreaker, func() error {
		err := enquiryRepository.DBConn.WithContext(ctx).Omit(clause.Associations).Create(enquiry).Error
		if err != nil {
			logging.Logger.Error("[CreateEnquiry] Failed to create enquiry",
				zap.String("candidate_name", enquiry.CandidateName),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)
		}

		return err
	})
}

func (enquiryRepository *EnquiryRepository) GetByID(
	ctx context.Context,
	policy access.Policy,
	enquiryID uint,
) (*Enquiry, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() (*Enquiry, error) {
		var enquiry Enquiry

		err := enquiryRepository.scoped(ctx, policy).
			Scopes(preload).
			Where("id = ?", enquiryID).
			First(&enquiry).Error
		if err != nil {
			return nil, err
		}

		return &enquiry, nil
	})
}

func (enquiryRepository *EnquiryRepository) List(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[Enquiry], error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() (query.Result[Enquiry], error) {
		result := query.Result[Enquiry]{Page: page}

		stmt := enquiryRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Session(&gorm.Session{})

		err := stmt.Count(&result.Total).Error
		if err != nil {
			return result, err
		}

		err = stmt.Scopes(preload).
			Order("created_at DESC, id DESC").
			Scopes(page.Scope).
			Find(&result.Items).Error

		return result, err
	})
}

// FindAll returns every matching enquiry, newest first, with its telecaller.
func (enquiryRepository *EnquiryRepository) FindAll(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
) ([]Enquiry, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() ([]Enquiry, error) {
		var enquiries []Enquiry

		err := enquiryRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Preload("Telecaller.Branch").
			Order("created_at DESC, id DESC").
			Find(&enquiries).Error

		return enquiries, err
	})
}

func (enquiryRepository *EnquiryRepository) Count(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
) (int64, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() (int64, error) {
		var count int64

		err := enquiryRepository.scoped(ctx, policy).Scopes(filter.apply).Count(&count).Error

		return count, err
	})
}

// CountPendingFollowUps counts enquiries in Follow Up whose follow-up date is
// on or before today.
func (enquiryRepository *EnquiryRepository) CountPendingFollowUps(
	ctx context.Context,
	policy access.Policy,
	today time.Time,
) (int64, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() (int64, error) {
		var count int64

		err := enquiryRepository.scoped(ctx, policy).
			Where("enquiry_status = ?", StatusFollowUp).
			Where("follow_up_on IS NOT NULL AND follow_up_on <= ?", query.ToDate(today)).
			Count(&count).Error

		return count, err
	})
}

type GroupCount struct {
	GroupKey string
	Total    int64
}

// CountBy groups the scoped enquiries by one of their string columns.
func (enquiryRepository *EnquiryRepository) CountBy(
	ctx context.Context,
	policy access.Policy,
	column string,
) ([]GroupCount, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() ([]GroupCount, error) {
		var counts []GroupCount

		err := enquiryRepository.scoped(ctx, policy).
			Select(column + " AS group_key, COUNT(*) AS total").
			Group(column).
			Order(column).
			Scan(&counts).Error

		return counts, err
	})
}

type TelecallerStatusCount struct {
	TelecallerID  *uint
	EnquiryStatus string
	Total         int64
}

func (enquiryRepository *EnquiryRepository) CountByTelecallerAndStatus(
	ctx context.Context,
	policy access.Policy,
) ([]TelecallerStatusCount, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() ([]TelecallerStatusCount, error) {
		var counts []TelecallerStatusCount

		err := enquiryRepository.scoped(ctx, policy).
			Select("telecaller_id, enquiry_status, COUNT(*) AS total").
			Group("telecaller_id, enquiry_status").
			Order("telecaller_id, enquiry_status").
			Scan(&counts).Error

		return counts, err
	})
}

func (enquiryRepository *EnquiryRepository) Update(ctx context.Context, enquiryID uint, updates map[string]any) error {
	return database.Run(enquiryRepository.CircuitBreaker, func() error {
		err := enquiryRepository.DBConn.WithContext(ctx).
			Model(&Enquiry{}).
			Where("id = ?", enquiryID).
			Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[UpdateEnquiry] Failed to update enquiry",
				zap.Uint("enquiry_id", enquiryID),
				zap.Any("updates", updates),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)
		}

		return err
	})
}

func (enquiryRepository *EnquiryRepository) Delete(ctx context.Context, enquiryID uint) error {
	return database.Run(enquiryRepository.CircuitBreaker, func() error {
		err := enquiryRepository.DBConn.WithContext(ctx).Delete(&Enquiry{}, enquiryID).Error
		if err != nil {
			logging.Logger.Error("[DeleteEnquiry] Failed to delete enquiry",
				zap.Uint("enquiry_id", enquiryID),
				zap.String("error", err.Error()),
			)
		}

		return err
	})
}

// LeastLoadedTelecaller picks the active telecaller with the fewest open
// enquiries, lowest id first on ties. It returns nil when nobody is active.
func (enquiryRepository *EnquiryRepository) LeastLoadedTelecaller(ctx context.Context) (*uint, error) {
	return database.Execute(enquiryRepository.CircuitBreaker, func() (*uint, error) {
		var ids []uint

		err := enquiryRepository.DBConn.WithContext(ctx).Raw(
			"SELECT t.id FROM telecallers t "+
				"LEFT JOIN enquiries e ON e.telecaller_id = t.id AND e.enquiry_status NOT IN ? "+
				"WHERE t.status = ? "+
				"GROUP BY t.id "+
				"ORDER BY COUNT(e.id) ASC, t.id ASC "+
				"LIMIT 1",
			ActiveExcluded, telecaller.StatusActive,
		).Scan(&ids).Error
		if err != nil || len(ids) == 0 {
			return nil, err
		}

		return &ids[0], nil
	})
}
