// Package reminder builds the follow-up and walk-in reminder feed.
package reminder

import (
	"context"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MessageFollowUp = "Follow-up needed"
	MessageWalkIn   = "Walk-in scheduled"

	// followUpDays is how many days, starting today, a follow-up stays in the feed.
	followUpDays = 3
)

type Item struct {
	ID              uint      `json:"id"`
	EnquiryID       uint      `json:"enquiry_id"`
	EnquiryName     string    `json:"enquiry_name"`
	ReminderMessage string    `json:"reminder_message"`
	FollowUpDate    *string   `json:"follow_up_date"`
	CreatedAt       time.Time `json:"created_at"`
}

type ReminderService struct {
	CallRegisterRepository *callregister.CallRegisterRepository
	Now                    func() time.Time
}

func NewService(dbConn *gorm.DB) *ReminderService {
	return &ReminderService{
		CallRegisterRepository: callregister.NewCallRegisterRepository(dbConn),
		Now:                    time.Now,
	}
}

// window keeps latest calls that are either a follow-up due within the next
// followUpDays days or a walk-in.
func window(today time.Time) func(*gorm.DB) *gorm.DB {
	from := query.ToDate(today)
	to := query.ToDate(today.AddDate(0, 0, followUpDays))

	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"((call_registers.call_outcome = ? AND call_registers.follow_up_date >= ? AND call_registers.follow_up_date < ?) "+
				"OR call_registers.call_outcome = ?)",
			enquiry.OutcomeFollowUp, from, to, enquiry.OutcomeWalkIn,
		)
	}
}

// order puts follow-ups first by due date, then walk-ins newest first.
var order = clause.Expr{
	SQL: "CASE WHEN call_registers.call_outcome = ? THEN 0 ELSE 1 END, " +
		"CASE WHEN call_registers.call_outcome = ? THEN call_registers.follow_up_date END ASC, " +
		"call_registers.created_at DESC, call_registers.id DESC",
	Vars:               []any{enquiry.OutcomeFollowUp, enquiry.OutcomeFollowUp},
	WithoutParentheses: true,
}

func (reminderService *ReminderService) List(
	ctx context.Context,
	policy access.Policy,
	search string,
	page query.Page,
) (query.Result[Item], error) {
	if _, linked := policy.TelecallerID(); !linked && !policy.IsAdmin() {
		return query.Result[Item]{}, apperr.Forbidden("Only telecallers can access reminders.")
	}

	filter := callregister.Filter{
		Latest: &callregister.Latest{},
		Search: search,
		Scopes: []func(*gorm.DB) *gorm.DB{window(query.StartOfDay(reminderService.Now()))},
	}

	calls, err := reminderService.CallRegisterRepository.ListOrdered(ctx, policy, filter, order, page)
	if err != nil {
		return query.Result[Item]{}, err
	}

	items := make([]Item, 0, len(calls.Items))
	for _, call := range calls.Items {
		items = append(items, toItem(call))
	}

	return query.Result[Item]{Items: items, Total: calls.Total, Page: page}, nil
}

func toItem(call callregister.CallRegister) Item {
	item := Item{
		ID:              call.ID,
		EnquiryID:       call.EnquiryID,
		ReminderMessage: MessageWalkIn,
		CreatedAt:       call.CreatedAt,
	}

	if call.Outcome() == enquiry.OutcomeFollowUp {
		item.ReminderMessage = MessageFollowUp
		item.FollowUpDate = enquiry.FormatDate(call.FollowUpDate)
	}

	if call.Enquiry != nil {
		item.EnquiryName = call.Enquiry.CandidateName
	}

	return item
}
