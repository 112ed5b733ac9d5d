package callregister

import (
	"context"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const latestChunkSize = 1000

type CallRegisterRepository struct {
	DBConn         *gorm.DB
	CircuitBreaker *gobreaker.CircuitBreaker[any]
}

func NewCallRegisterRepository(dbConn *gorm.DB) *CallRegisterRepository {
	return &CallRegisterRepository{
		DBConn:         dbConn,
		CircuitBreaker: database.NewCircuitBreaker(),
	}
}

func (callRegisterRepository *CallRegisterRepository) WithTx(tx *gorm.DB) *CallRegisterRepository {
	return &CallRegisterRepository{DBConn: tx, CircuitBreaker: callRegisterRepository.CircuitBreaker}
}

// Latest restricts a query to the most recent call of every enquiry: the
// row with the greatest id. TelecallerID narrows the candidate calls before
// the maximum is taken.
type Latest struct {
	TelecallerID *uint
}

func (l Latest) Scope(db *gorm.DB) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Table("call_registers").
		Select("MAX(id)")

	if l.TelecallerID != nil {
		sub = sub.Where("telecaller_id = ?", *l.TelecallerID)
	}

	return db.Where("call_registers.id IN (?)", sub.Group("enquiry_id"))
}

// Filter narrows call reads. Zero fields are ignored.
type Filter struct {
	TelecallerID   *uint
	TelecallerIDs  []uint
	TelecallerName string
	BranchName     string
	CallType       string
	CallStatus     string
	CallOutcome    string
	EnquiryStatus  string
	CandidateName  string
	EnquiryCreated *query.DateRange
	Created        *query.DateRange
	Started        *query.DateRange
	FollowUpDate   *time.Time
	FollowUpUntil  *time.Time
	Search         string
	Latest         *Latest
	Scopes         []func(*gorm.DB) *gorm.DB
}

func (f Filter) apply(db *gorm.DB) *gorm.DB {
	if f.Latest != nil {
		db = db.Scopes(f.Latest.Scope)
	}

	if f.TelecallerID != nil {
		db = db.Where("call_registers.telecaller_id = ?", *f.TelecallerID)
	}

	if len(f.TelecallerIDs) > 0 {
		db = db.Where("call_registers.telecaller_id IN ?", f.TelecallerIDs)
	}

	if f.TelecallerName != "" {
		db = db.Where(
			"call_registers.telecaller_id IN (SELECT id FROM telecallers WHERE LOWER(name) LIKE ?)",
			query.Contains(f.TelecallerName),
		)
	}

	if f.BranchName != "" {
		db = db.Where(
			"call_registers.telecaller_id IN (SELECT t.id FROM telecallers t JOIN branches b ON b.id = t.branch_id "+
				"WHERE LOWER(b.branch_name) LIKE ?)",
			query.Contains(f.BranchName),
		)
	}

	for column, value := range map[string]string{
		"call_type":   f.CallType,
		"call_status": f.CallStatus,
	} {
		if value != "" {
			db = db.Where("LOWER(call_registers."+column+") = ?", strings.ToLower(strings.TrimSpace(value)))
		}
	}

	if f.CallOutcome != "" {
		db = db.Where("call_registers.call_outcome = ?", f.CallOutcome)
	}

	if f.EnquiryStatus != "" {
		db = db.Where(
			"call_registers.enquiry_id IN (SELECT id FROM enquiries WHERE LOWER(enquiry_status) = ?)",
			strings.ToLower(strings.TrimSpace(f.EnquiryStatus)),
		)
	}

	if f.CandidateName != "" {
		db = db.Where(
			"call_registers.enquiry_id IN (SELECT id FROM enquiries WHERE LOWER(candidate_name) LIKE ?)",
			query.Contains(f.CandidateName),
		)
	}

	if f.EnquiryCreated != nil {
		db = db.Where(
			"call_registers.enquiry_id IN (SELECT id FROM enquiries WHERE created_at >= ? AND created_at < ?)",
			f.EnquiryCreated.From, f.EnquiryCreated.To,
		)
	}

	if f.Created != nil {
		db = db.Where("call_registers.created_at >= ? AND call_registers.created_at < ?", f.Created.From, f.Created.To)
	}

	if f.Started != nil {
		db = db.Where(
			"call_registers.call_start_time >= ? AND call_registers.call_start_time < ?",
			f.Started.From, f.Started.To,
		)
	}

	if f.FollowUpDate != nil {
		db = db.Where("call_registers.follow_up_date = ?", query.ToDate(*f.FollowUpDate))
	}

	if f.FollowUpUntil != nil {
		db = db.Where("call_registers.follow_up_date <= ?", query.ToDate(*f.FollowUpUntil))
	}

	if f.Search != "" {
		pattern := query.Contains(f.Search)
		db = db.Where(
			"(LOWER(call_registers.notes) LIKE ? OR call_registers.enquiry_id IN "+
				"(SELECT id FROM enquiries WHERE LOWER(candidate_name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?))",
			pattern, pattern, pattern, pattern,
		)
	}

	return db.Scopes(f.Scopes...)
}

func preload(db *gorm.DB) *gorm.DB {
	return db.Preload("Enquiry").Preload("Telecaller.Branch")
}

func (callRegisterRepository *CallRegisterRepository) scoped(ctx context.Context, policy access.Policy) *gorm.DB {
	return callRegisterRepository.DBConn.WithContext(ctx).
		Model(&CallRegister{}).
		Scopes(policy.Scope("call_registers.telecaller_id"))
}

func (callRegisterRepository *CallRegisterRepository) Create(ctx context.Context, call *CallRegister) error {
	return database.Run(callRegisterRepository.CircuitBreaker, func() error {
		err := callRegisterRepository.DBConn.WithContext(ctx).Omit(clause.Associations).Create(call).Error
		if err != nil {
			logging.Logger.Error("[CreateCallRegister] Failed to create call log",
				zap.Uint("enquiry_id", call.EnquiryID),
				zap.Uint("telecaller_id", call.TelecallerID),
				zap.String("error", err.Error()),
				zap.Bool("is_context_error", ctx.Err() != nil),
			)
		}

		return err
	})
}

func (callRegisterRepository *CallRegisterRepository) GetByID(
	ctx context.Context,
	policy access.Policy,
	callID uint,
) (*CallRegister, error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() (*CallRegister, error) {
		var call CallRegister

		err := callRegisterRepository.scoped(ctx, policy).
			Scopes(preload).
			Where("call_registers.id = ?", callID).
			First(&call).Error
		if err != nil {
			return nil, err
		}

		return &call, nil
	})
}

func (callRegisterRepository *CallRegisterRepository) List(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[CallRegister], error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() (query.Result[CallRegister], error) {
		result := query.Result[CallRegister]{Page: page}

		stmt := callRegisterRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Session(&gorm.Session{})

		err := stmt.Count(&result.Total).Error
		if err != nil {
			return result, err
		}

		err = stmt.Scopes(preload).
			Order("call_registers.created_at DESC, call_registers.id DESC").
			Scopes(page.Scope).
			Find(&result.Items).Error

		return result, err
	})
}

// ListOrdered is List with a caller-supplied ORDER BY expression.
func (callRegisterRepository *CallRegisterRepository) ListOrdered(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	order clause.Expr,
	page query.Page,
) (query.Result[CallRegister], error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() (query.Result[CallRegister], error) {
		result := query.Result[CallRegister]{Page: page}

		stmt := callRegisterRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Session(&gorm.Session{})

		err := stmt.Count(&result.Total).Error
		if err != nil {
			return result, err
		}

		err = stmt.Scopes(preload).
			Clauses(clause.OrderBy{Expression: order}).
			Scopes(page.Scope).
			Find(&result.Items).Error

		return result, err
	})
}

// History returns every call of one enquiry, newest first.
func (callRegisterRepository *CallRegisterRepository) History(
	ctx context.Context,
	policy access.Policy,
	enquiryID uint,
) ([]CallRegister, error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() ([]CallRegister, error) {
		var calls []CallRegister

		err := callRegisterRepository.scoped(ctx, policy).
			Scopes(preload).
			Where("call_registers.enquiry_id = ?", enquiryID).
			Order("call_registers.created_at DESC, call_registers.id DESC").
			Find(&calls).Error

		return calls, err
	})
}

func (callRegisterRepository *CallRegisterRepository) Count(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
) (int64, error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() (int64, error) {
		var count int64

		err := callRegisterRepository.scoped(ctx, policy).Scopes(filter.apply).Count(&count).Error

		return count, err
	})
}

// SumDuration adds up call_duration over the matching calls.
func (callRegisterRepository *CallRegisterRepository) SumDuration(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
) (int64, error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() (int64, error) {
		var total int64

		err := callRegisterRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Select("COALESCE(SUM(call_registers.call_duration), 0)").
			Scan(&total).Error

		return total, err
	})
}

type GroupCount struct {
	TelecallerID uint
	GroupKey     string
	Total        int64
}

// CountBy groups matching calls by telecaller and one of the call columns.
func (callRegisterRepository *CallRegisterRepository) CountBy(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	column string,
) ([]GroupCount, error) {
	return database.Execute(callRegisterRepository.CircuitBreaker, func() ([]GroupCount, error) {
		var counts []GroupCount

		qualified := "call_registers." + column

		err := callRegisterRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Where(qualified + " IS NOT NULL").
			Select("call_registers.telecaller_id AS telecaller_id, " + qualified + " AS group_key, COUNT(*) AS total").
			Group("call_registers.telecaller_id, " + qualified).
			Scan(&counts).Error

		return counts, err
	})
}

type TelecallerCount struct {
	TelecallerID uint
	Total        int64
}

// CountByTelecaller counts matching calls per telecaller.
func (callRegisterRepository *CallRegisterRepository) CountByTelecaller(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
) (map[uint]int64, error) {
	counts, err := database.Execute(callRegisterRepository.CircuitBreaker, func() ([]TelecallerCount, error) {
		var counts []TelecallerCount

		err := callRegisterRepository.scoped(ctx, policy).
			Scopes(filter.apply).
			Select("call_registers.telecaller_id AS telecaller_id, COUNT(*) AS total").
			Group("call_registers.telecaller_id").
			Scan(&counts).Error

		return counts, err
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]int64, len(counts))
	for _, count := range counts {
		totals[count.TelecallerID] = count.Total
	}

	return totals, nil
}

// LatestForEnquiries returns the latest call of each given enquiry, keyed by
// enquiry id. Enquiries without calls are absent from the map.
func (callRegisterRepository *CallRegisterRepository) LatestForEnquiries(
	ctx context.Context,
	enquiryIDs []uint,
) (map[uint]CallRegister, error) {
	latest := make(map[uint]CallRegister, len(enquiryIDs))

	for start := 0; start < len(enquiryIDs); start += latestChunkSize {
		end := min(start+latestChunkSize, len(enquiryIDs))
		chunk := enquiryIDs[start:end]

		calls, err := database.Execute(callRegisterRepository.CircuitBreaker, func() ([]CallRegister, error) {
			var calls []CallRegister

			err := callRegisterRepository.DBConn.WithContext(ctx).
				Where(
					"id IN (SELECT MAX(id) FROM call_registers WHERE enquiry_id IN ? GROUP BY enquiry_id)",
					chunk,
				).
				Find(&calls).Error

			return calls, err
		})
		if err != nil {
			return nil, err
		}

		for _, call := range calls {
			latest[call.EnquiryID] = call
		}
	}

	return latest, nil
}

func (callRegisterRepository *CallRegisterRepository) Update(ctx context.Context, callID uint, updates map[string]any) error {
	return database.Run(callRegisterRepository.CircuitBreaker, func() error {
		err := callRegisterRepository.DBConn.WithContext(ctx).
			Model(&CallRegister{}).
			Where("id = ?", callID).
			Updates(updates).Error
		if err != nil {
			logging.Logger.Error("[UpdateCallRegister] Failed to update call log",
				zap.Uint("call_id", callID),
				zap.Any("updates", updates),
				zap.String("error", err.Error()),
			)
		}

		return err
	})
}
