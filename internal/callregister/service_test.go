package callregister_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}

	return types
}

type fixture struct {
	db        *gorm.DB
	calls     *callregister.CallRegisterService
	published *recorder
	anu       access.Policy
	ravi      access.Policy
	anuID     uint
	enquiry   *enquiry.Enquiry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := test.NewSQLite(t,
		&branch.Branch{},
		&telecaller.Telecaller{},
		&catalog.Course{}, &catalog.Service{}, &catalog.Mettad{},
		&enquiry.Enquiry{},
		&callregister.CallRegister{},
	)

	anu := &telecaller.Telecaller{
		AccountID: uuid.New(), Name: "Anu", Email: "anu@example.com",
		Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
	}
	ravi := &telecaller.Telecaller{
		AccountID: uuid.New(), Name: "Ravi", Email: "ravi@example.com",
		Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
	}
	require.NoError(t, db.Create(anu).Error)
	require.NoError(t, db.Create(ravi).Error)

	meera := &enquiry.Enquiry{
		CandidateName: "Meera",
		Phone:         "+919876543210",
		EnquirySource: enquiry.SourceOther,
		EnquiryStatus: enquiry.StatusActive,
		TelecallerID:  &anu.ID,
	}
	require.NoError(t, db.Create(meera).Error)

	published := &recorder{}

	return &fixture{
		db:        db,
		calls:     callregister.NewService(db, published),
		published: published,
		anu:       access.TelecallerPolicy{Telecaller: &anu.ID},
		ravi:      access.TelecallerPolicy{Telecaller: &ravi.ID},
		anuID:     anu.ID,
		enquiry:   meera,
	}
}

func (f *fixture) reload(t *testing.T) *enquiry.Enquiry {
	t.Helper()

	var reloaded enquiry.Enquiry
	require.NoError(t, f.db.First(&reloaded, f.enquiry.ID).Error)

	return &reloaded
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)

	return validation.Fields
}

func TestRegisterRequiresAssignedTelecaller(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	_, err := f.calls.Register(ctx, access.AdminPolicy{}, callregister.RegisterInput{
		EnquiryID: f.enquiry.ID, CallStatus: callregister.StatusContacted,
	})
	require.Equal(t, "Only telecallers can create call logs.", fieldErrors(t, err)[apperr.NonFieldErrors])

	_, err = f.calls.Register(ctx, f.ravi, callregister.RegisterInput{
		EnquiryID: f.enquiry.ID, CallStatus: callregister.StatusContacted,
	})
	require.Equal(t, "You can only create call logs for enquiries assigned to you.", fieldErrors(t, err)["enquiry_id"])

	_, err = f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID: 999, CallStatus: callregister.StatusContacted,
	})
	require.Equal(t, `Invalid pk "999" - object does not exist.`, fieldErrors(t, err)["enquiry_id"])

	var count int64
	require.NoError(t, f.db.Model(&callregister.CallRegister{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, f.published.types())
}

func TestRegisterValidatesFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	future := time.Now().Add(time.Hour)
	start := time.Now().Add(-time.Hour)
	beforeStart := start.Add(-time.Minute)
	today := time.Now()

	fields := fieldErrors(t, func() error {
		_, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
			EnquiryID:     f.enquiry.ID,
			CallType:      "Video",
			CallOutcome:   "Maybe",
			CallStartTime: &future,
			FollowUpDate:  &today,
		})
		return err
	}())
	require.Equal(t, "This field is required.", fields["call_status"])
	require.Equal(t, `"Video" is not a valid choice.`, fields["call_type"])
	require.Equal(t, `"Maybe" is not a valid choice.`, fields["call_outcome"])
	require.Equal(t, "Call start time cannot be in the future.", fields["call_start_time"])
	require.Equal(t, "Follow-up date must be in the future.", fields["follow_up_date"])

	_, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID:     f.enquiry.ID,
		CallStatus:    callregister.StatusContacted,
		CallStartTime: &start,
		CallEndTime:   &beforeStart,
	})
	require.Equal(t, "Call end time must be after start time.", fieldErrors(t, err)["call_end_time"])
}

func TestRegisterConvertedClosesEnquiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	start := time.Now().Add(-10 * time.Minute)
	end := start.Add(150 * time.Second)

	call, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID:     f.enquiry.ID,
		CallStatus:    callregister.StatusContacted,
		CallOutcome:   enquiry.OutcomeConverted,
		CallStartTime: &start,
		CallEndTime:   &end,
	})
	require.NoError(t, err)
	require.Equal(t, callregister.TypeOutgoing, call.CallType)
	require.Equal(t, f.anuID, call.TelecallerID)
	require.Equal(t, 150, *call.CallDuration)
	require.Equal(t, "2m 30s", *call.View().CallDurationFormatted)

	require.Equal(t, enquiry.StatusClosed, f.reload(t).EnquiryStatus)
	require.Equal(t, []string{events.TypeCallRegistered, events.TypeEnquiryTransitioned}, f.published.types())
}

func TestRegisterFollowUpCopiesDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	followUp := query.StartOfDay(time.Now()).AddDate(0, 0, 3)

	call, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID:    f.enquiry.ID,
		CallStatus:   callregister.StatusContacted,
		CallOutcome:  "Follow Up Required",
		FollowUpDate: &followUp,
	})
	require.NoError(t, err)
	require.Equal(t, enquiry.OutcomeFollowUp, call.Outcome())
	require.Nil(t, call.CallDuration)

	reloaded := f.reload(t)
	require.Equal(t, enquiry.StatusFollowUp, reloaded.EnquiryStatus)
	require.NotNil(t, reloaded.FollowUpOn)
	require.Equal(t, followUp.Format(query.DateLayout), time.Time(*reloaded.FollowUpOn).UTC().Format(query.DateLayout))
}

func TestRegisterWithoutTransitionKeepsStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	_, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID:   f.enquiry.ID,
		CallStatus:  callregister.StatusNotAnswered,
		CallOutcome: enquiry.OutcomeInformationProvided,
	})
	require.NoError(t, err)

	require.Equal(t, enquiry.StatusActive, f.reload(t).EnquiryStatus)
	require.Equal(t, []string{events.TypeCallRegistered}, f.published.types())
}

func TestUpdateKeepsEnquiryStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	call, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID:  f.enquiry.ID,
		CallStatus: callregister.StatusBusy,
	})
	require.NoError(t, err)

	notes := "call back after lunch"
	status := callregister.StatusContacted

	updated, err := f.calls.Update(ctx, f.anu, call.ID, callregister.UpdateInput{CallStatus: &status, Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, callregister.StatusContacted, updated.CallStatus)
	require.Equal(t, notes, updated.Notes)
	require.Equal(t, enquiry.StatusActive, f.reload(t).EnquiryStatus)

	_, err = f.calls.Update(ctx, f.ravi, call.ID, callregister.UpdateInput{Notes: &notes})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListsAndHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	for _, status := range []string{callregister.StatusNotAnswered, callregister.StatusContacted} {
		_, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
			EnquiryID:   f.enquiry.ID,
			CallStatus:  status,
			CallOutcome: enquiry.OutcomeInterested,
		})
		require.NoError(t, err)
	}

	page := query.NewPage(1, 10)

	notAnswered, err := f.calls.ListNotAnswered(ctx, f.anu, callregister.Filter{}, page)
	require.NoError(t, err)
	require.EqualValues(t, 1, notAnswered.Total)

	interested, err := f.calls.ListByOutcome(ctx, f.anu, enquiry.OutcomeInterested, callregister.Filter{}, page)
	require.NoError(t, err)
	require.EqualValues(t, 2, interested.Total)

	hidden, err := f.calls.List(ctx, f.ravi, callregister.Filter{}, page)
	require.NoError(t, err)
	require.Zero(t, hidden.Total)

	_, err = f.calls.ListByOutcome(ctx, f.anu, "Maybe", callregister.Filter{}, page)
	require.Contains(t, fieldErrors(t, err), "call_outcome")

	history, err := f.calls.History(ctx, f.anu, f.enquiry.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	_, err = f.calls.History(ctx, f.ravi, f.enquiry.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	f.calls.Now = func() time.Time { return now }

	_, err := f.calls.Stats(ctx, access.AdminPolicy{})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	contacted := func(start time.Time, seconds int) {
		end := start.Add(time.Duration(seconds) * time.Second)

		_, err := f.calls.Register(ctx, f.anu, callregister.RegisterInput{
			EnquiryID:     f.enquiry.ID,
			CallStatus:    callregister.StatusContacted,
			CallStartTime: &start,
			CallEndTime:   &end,
		})
		require.NoError(t, err)
	}

	contacted(time.Date(2026, 9, 30, 10, 0, 0, 0, time.UTC), 30)
	contacted(time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC), 60)

	_, err = f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID: f.enquiry.ID, CallStatus: callregister.StatusNotAnswered,
	})
	require.NoError(t, err)

	start := now.Add(-30 * time.Minute)
	end := start.Add(2 * time.Minute)

	_, err = f.calls.Register(ctx, f.anu, callregister.RegisterInput{
		EnquiryID:     f.enquiry.ID,
		CallStatus:    callregister.StatusContacted,
		CallOutcome:   enquiry.OutcomeConverted,
		CallStartTime: &start,
		CallEndTime:   &end,
	})
	require.NoError(t, err)

	stats, err := f.calls.Stats(ctx, f.anu)
	require.NoError(t, err)
	require.EqualValues(t, 4, stats.TotalCalls)
	require.EqualValues(t, 1, stats.TodayCalls)
	require.EqualValues(t, 2, stats.WeekCalls)
	require.EqualValues(t, 2, stats.MonthCalls)
	require.EqualValues(t, 1, stats.ConnectedCalls)
	require.Zero(t, stats.NotAnsweredCalls)
	require.EqualValues(t, 1, stats.ConvertedLeads)
	require.EqualValues(t, 210, stats.TotalCallTime)
	require.Equal(t, "0h 3m", stats.TotalCallTimeFormatted)
	require.EqualValues(t, 120, stats.TodayCallTime)
	require.EqualValues(t, 1, stats.AssignedEnquiries)
	require.InDelta(t, 100.0, stats.ConversionRate, 0.001)
}

func TestConversionRate(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 33.33, callregister.ConversionRate(1, 3), 0.0001)
	require.InDelta(t, 66.67, callregister.ConversionRate(2, 3), 0.0001)
	require.Zero(t, callregister.ConversionRate(5, 0))
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	zero := 0
	seconds := 3725

	require.Nil(t, callregister.FormatDuration(nil))
	require.Nil(t, callregister.FormatDuration(&zero))
	require.Equal(t, "62m 5s", *callregister.FormatDuration(&seconds))
	require.Equal(t, "1h 2m", callregister.FormatTalkTime(3725))
}
