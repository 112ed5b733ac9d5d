package callregister

import (
	"context"
	"errors"
	"strconv"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CallRegisterService struct {
	DBConn                 *gorm.DB
	CallRegisterRepository *CallRegisterRepository
	EnquiryRepository      *enquiry.EnquiryRepository
	Publisher              events.Publisher
	Now                    func() time.Time
}

func NewService(dbConn *gorm.DB, publisher events.Publisher) *CallRegisterService {
	return &CallRegisterService{
		DBConn:                 dbConn,
		CallRegisterRepository: NewCallRegisterRepository(dbConn),
		EnquiryRepository:      enquiry.NewEnquiryRepository(dbConn),
		Publisher:              publisher,
		Now:                    time.Now,
	}
}

type RegisterInput struct {
	EnquiryID     uint
	CallType      string
	CallStatus    string
	CallOutcome   string
	CallStartTime *time.Time
	CallEndTime   *time.Time
	Notes         string
	FollowUpDate  *time.Time
	NextAction    string
}

type CallRegisteredPayload struct {
	CallID       uint    `json:"call_id"`
	EnquiryID    uint    `json:"enquiry_id"`
	TelecallerID uint    `json:"telecaller_id"`
	CallStatus   string  `json:"call_status"`
	CallOutcome  *string `json:"call_outcome"`
	CallDuration *int    `json:"call_duration"`
}

type EnquiryTransitionedPayload struct {
	EnquiryID uint   `json:"enquiry_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Outcome   string `json:"outcome"`
	CallID    uint   `json:"call_id"`
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

func (callRegisterService *CallRegisterService) today() time.Time {
	return query.StartOfDay(callRegisterService.Now())
}

func (callRegisterService *CallRegisterService) validateTimes(
	start, end *time.Time,
	followUp *time.Time,
	validation *apperr.ValidationError,
) {
	now := callRegisterService.Now()

	if start != nil && start.After(now) {
		validation.Add("call_start_time", "Call start time cannot be in the future.")
	}

	if start != nil && end != nil && end.Before(*start) {
		validation.Add("call_end_time", "Call end time must be after start time.")
	}

	if followUp != nil && !query.StartOfDay(*followUp).After(callRegisterService.today()) {
		validation.Add("follow_up_date", "Follow-up date must be in the future.")
	}
}

// Register records a call made by the principal's telecaller and applies the
// outcome to the enquiry in the same transaction. Validation failures are
// collected and nothing is written.
func (callRegisterService *CallRegisterService) Register(
	ctx context.Context,
	policy access.Policy,
	input RegisterInput,
) (*CallRegister, error) {
	telecallerID, ok := policy.TelecallerID()
	if !ok {
		return nil, apperr.NewValidation(apperr.NonFieldErrors, "Only telecallers can create call logs.")
	}

	validation := &apperr.ValidationError{}

	target, err := callRegisterService.EnquiryRepository.GetByID(ctx, access.AdminPolicy{}, input.EnquiryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		validation.Add("enquiry_id", "Invalid pk \""+strconv.FormatUint(uint64(input.EnquiryID), 10)+"\" - object does not exist.")
	} else if err != nil {
		return nil, err
	} else if !target.AssignedTo(telecallerID) {
		validation.Add("enquiry_id", "You can only create call logs for enquiries assigned to you.")
	}

	callType := input.CallType
	if callType == "" {
		callType = TypeOutgoing
	} else if !contains(Types, callType) {
		validation.Add("call_type", "\""+callType+"\" is not a valid choice.")
	}

	switch {
	case input.CallStatus == "":
		validation.Add("call_status", "This field is required.")
	case !contains(Statuses, input.CallStatus):
		validation.Add("call_status", "\""+input.CallStatus+"\" is not a valid choice.")
	}

	var outcome *string

	if input.CallOutcome != "" {
		normalized, ok := enquiry.NormalizeOutcome(input.CallOutcome)
		if ok {
			outcome = &normalized
		} else {
			validation.Add("call_outcome", "\""+input.CallOutcome+"\" is not a valid choice.")
		}
	}

	callRegisterService.validateTimes(input.CallStartTime, input.CallEndTime, input.FollowUpDate, validation)

	if err := validation.OrNil(); err != nil {
		return nil, err
	}

	call := &CallRegister{
		EnquiryID:     target.ID,
		TelecallerID:  telecallerID,
		CallType:      callType,
		CallStatus:    input.CallStatus,
		CallOutcome:   outcome,
		CallStartTime: input.CallStartTime,
		CallEndTime:   input.CallEndTime,
		CallDuration:  Duration(input.CallStartTime, input.CallEndTime),
		Notes:         input.Notes,
		FollowUpDate:  followUpDate(input.FollowUpDate),
		NextAction:    input.NextAction,
	}

	var change enquiry.Change

	err = callRegisterService.DBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := callRegisterService.CallRegisterRepository.WithTx(tx).Create(ctx, call)
		if err != nil {
			return err
		}

		if outcome == nil {
			return nil
		}

		change = enquiry.Apply(target, *outcome, call.FollowUpDate)
		if len(change.Updates) == 0 {
			return nil
		}

		return callRegisterService.EnquiryRepository.WithTx(tx).Update(ctx, target.ID, change.Updates)
	})
	if err != nil {
		return nil, err
	}

	prometheus.CallsRegistered.WithLabelValues(call.Outcome()).Inc()
	callRegisterService.publish(ctx, call, change)

	logging.Logger.Info("call registered",
		zap.Uint("call_id", call.ID),
		zap.Uint("enquiry_id", call.EnquiryID),
		zap.Uint("telecaller_id", telecallerID),
		zap.String("outcome", call.Outcome()),
	)

	return callRegisterService.Get(ctx, policy, call.ID)
}

func (callRegisterService *CallRegisterService) publish(ctx context.Context, call *CallRegister, change enquiry.Change) {
	key := strconv.FormatUint(uint64(call.EnquiryID), 10)

	callRegisterService.Publisher.Publish(ctx, events.New(events.TypeCallRegistered, key, CallRegisteredPayload{
		CallID:       call.ID,
		EnquiryID:    call.EnquiryID,
		TelecallerID: call.TelecallerID,
		CallStatus:   call.CallStatus,
		CallOutcome:  call.CallOutcome,
		CallDuration: call.CallDuration,
	}))

	if change.StatusChanged() {
		callRegisterService.Publisher.Publish(ctx, events.New(events.TypeEnquiryTransitioned, key, EnquiryTransitionedPayload{
			EnquiryID: call.EnquiryID,
			From:      change.From,
			To:        change.To,
			Outcome:   call.Outcome(),
			CallID:    call.ID,
		}))
	}
}

func (callRegisterService *CallRegisterService) Get(ctx context.Context, policy access.Policy, callID uint) (*CallRegister, error) {
	call, err := callRegisterService.CallRegisterRepository.GetByID(ctx, policy, callID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("call log")
	}

	return call, err
}

type UpdateInput struct {
	CallStatus   *string
	Notes        *string
	NextAction   *string
	FollowUpDate *time.Time
	CallEndTime  *time.Time
}

// Update edits a call log in place. The stored duration and the enquiry
// status are left as they were at registration.
func (callRegisterService *CallRegisterService) Update(
	ctx context.Context,
	policy access.Policy,
	callID uint,
	input UpdateInput,
) (*CallRegister, error) {
	call, err := callRegisterService.Get(ctx, policy, callID)
	if err != nil {
		return nil, err
	}

	validation := &apperr.ValidationError{}
	updates := map[string]any{}

	if input.CallStatus != nil {
		if !contains(Statuses, *input.CallStatus) {
			validation.Add("call_status", "\""+*input.CallStatus+"\" is not a valid choice.")
		}

		updates["call_status"] = *input.CallStatus
	}

	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if input.NextAction != nil {
		updates["next_action"] = *input.NextAction
	}

	callRegisterService.validateTimes(nil, nil, input.FollowUpDate, validation)

	if input.FollowUpDate != nil {
		updates["follow_up_date"] = query.ToDate(*input.FollowUpDate)
	}

	if input.CallEndTime != nil {
		if call.CallStartTime != nil && input.CallEndTime.Before(*call.CallStartTime) {
			validation.Add("call_end_time", "Call end time must be after start time.")
		}

		updates["call_end_time"] = *input.CallEndTime
	}

	if err := validation.OrNil(); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		err = callRegisterService.CallRegisterRepository.Update(ctx, callID, updates)
		if err != nil {
			return nil, err
		}
	}

	return callRegisterService.Get(ctx, policy, callID)
}

func (callRegisterService *CallRegisterService) List(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[CallRegister], error) {
	return callRegisterService.CallRegisterRepository.List(ctx, policy, filter, page)
}

func (callRegisterService *CallRegisterService) ListNotAnswered(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[CallRegister], error) {
	filter.CallStatus = StatusNotAnswered

	return callRegisterService.CallRegisterRepository.List(ctx, policy, filter, page)
}

// ListFollowUps lists Follow Up calls. pendingOnly keeps those due today or earlier.
func (callRegisterService *CallRegisterService) ListFollowUps(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	pendingOnly bool,
	page query.Page,
) (query.Result[CallRegister], error) {
	filter.CallOutcome = enquiry.OutcomeFollowUp

	if pendingOnly {
		today := callRegisterService.today()
		filter.FollowUpUntil = &today
	}

	return callRegisterService.CallRegisterRepository.List(ctx, policy, filter, page)
}

func (callRegisterService *CallRegisterService) ListWalkIns(
	ctx context.Context,
	policy access.Policy,
	filter Filter,
	page query.Page,
) (query.Result[CallRegister], error) {
	filter.CallOutcome = enquiry.OutcomeWalkIn

	return callRegisterService.CallRegisterRepository.List(ctx, policy, filter, page)
}

// ListByOutcome lists calls with one outcome; aliases are accepted.
func (callRegisterService *CallRegisterService) ListByOutcome(
	ctx context.Context,
	policy access.Policy,
	outcome string,
	filter Filter,
	page query.Page,
) (query.Result[CallRegister], error) {
	normalized, ok := enquiry.NormalizeOutcome(outcome)
	if !ok {
		return query.Result[CallRegister]{}, apperr.NewValidation("call_outcome", "\""+outcome+"\" is not a valid choice.")
	}

	filter.CallOutcome = normalized

	return callRegisterService.CallRegisterRepository.List(ctx, policy, filter, page)
}

// History lists the calls of an enquiry visible to the principal.
func (callRegisterService *CallRegisterService) History(
	ctx context.Context,
	policy access.Policy,
	enquiryID uint,
) ([]CallRegister, error) {
	_, err := callRegisterService.EnquiryRepository.GetByID(ctx, policy, enquiryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("enquiry")
	}

	if err != nil {
		return nil, err
	}

	return callRegisterService.CallRegisterRepository.History(ctx, policy, enquiryID)
}

// followUpDate converts an optional date into the stored column type.
func followUpDate(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}

	date := query.ToDate(*t)

	return &date
}
