package enquiry_test

import (
	"context"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	enquiries *enquiry.EnquiryService
	anu       *telecaller.Telecaller
	ravi      *telecaller.Telecaller
	admin     access.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := test.NewSQLite(t,
		&branch.Branch{},
		&telecaller.Telecaller{},
		&catalog.Course{}, &catalog.Service{}, &catalog.Mettad{},
		&enquiry.Enquiry{},
	)

	kochi := &branch.Branch{Name: "Kochi", Email: "kochi@example.com"}
	require.NoError(t, db.Create(kochi).Error)

	anu := &telecaller.Telecaller{
		AccountID: uuid.New(), Name: "Anu", Email: "anu@example.com",
		BranchID: &kochi.ID, Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
	}
	ravi := &telecaller.Telecaller{
		AccountID: uuid.New(), Name: "Ravi", Email: "ravi@example.com",
		Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
	}
	require.NoError(t, db.Create(anu).Error)
	require.NoError(t, db.Create(ravi).Error)

	return &fixture{
		db:        db,
		enquiries: enquiry.NewService(db),
		anu:       anu,
		ravi:      ravi,
		admin:     principal(account.RoleAdmin, nil),
	}
}

func principal(role string, telecallerID *uint) access.Principal {
	acc := &account.Account{ID: uuid.New(), Email: "user@example.com", Role: account.Role{Name: role}}
	return access.Principal{Account: acc, Policy: access.ForAccount(acc, telecallerID)}
}

func (f *fixture) as(t *telecaller.Telecaller) access.Principal {
	return principal(account.RoleTelecaller, &t.ID)
}

func (f *fixture) create(t *testing.T, name string, assignee *telecaller.Telecaller) *enquiry.Enquiry {
	t.Helper()

	created, err := f.enquiries.Create(context.Background(), f.admin, enquiry.CreateInput{
		CandidateName: name,
		Phone:         "9876543210",
		AssignedByID:  &assignee.ID,
	})
	require.NoError(t, err)

	return created
}

func TestAdminCreateRequiresAssignee(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	_, err := f.enquiries.Create(ctx, f.admin, enquiry.CreateInput{CandidateName: "Meera", Phone: "9876543210"})

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "assigned_by is required when created_by is Admin.", validation.Fields["assigned_by_id"])

	missing := uint(999)
	_, err = f.enquiries.Create(ctx, f.admin, enquiry.CreateInput{
		CandidateName: "Meera", Phone: "9876543210", AssignedByID: &missing,
	})
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "assigned_by_id")

	created, err := f.enquiries.Create(ctx, f.admin, enquiry.CreateInput{
		CandidateName: " Meera ",
		Phone:         "098765 43210",
		AssignedByID:  &f.anu.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "Meera", created.CandidateName)
	require.Equal(t, "+919876543210", created.Phone)
	require.Equal(t, enquiry.StatusActive, created.EnquiryStatus)
	require.Equal(t, enquiry.SourceOther, created.EnquirySource)
	require.Equal(t, account.RoleAdmin, created.CreatedByName)

	view := created.View()
	require.Equal(t, "Anu", *view.AssignedByName)
	require.Equal(t, "Kochi", *view.BranchName)
}

func TestTelecallerCreateAssignsSelf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	created, err := f.enquiries.Create(ctx, f.as(f.ravi), enquiry.CreateInput{
		CandidateName: "Meera",
		Phone:         "9876543210",
		AssignedByID:  &f.anu.ID,
	})
	require.NoError(t, err)
	require.True(t, created.AssignedTo(f.ravi.ID))
	require.Equal(t, "Ravi", created.CreatedByName)

	_, err = f.enquiries.Create(ctx, principal(account.RoleTelecaller, nil), enquiry.CreateInput{
		CandidateName: "Meera",
		Phone:         "9876543210",
	})

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, apperr.NonFieldErrors)
}

func TestCreateValidatesFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.enquiries.Create(context.Background(), f.as(f.anu), enquiry.CreateInput{
		Phone:         "no digits",
		EnquirySource: "Billboard",
		EnquiryStatus: "Pending",
	})

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "candidate_name")
	require.Contains(t, validation.Fields, "phone")
	require.Contains(t, validation.Fields, "enquiry_source")
	require.Contains(t, validation.Fields, "enquiry_status")
}

func TestTelecallerSeesOnlyOwnEnquiries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	mine := f.create(t, "Meera", f.anu)
	theirs := f.create(t, "Kiran", f.ravi)

	result, err := f.enquiries.List(ctx, f.as(f.anu).Policy, enquiry.Filter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Total)
	require.Equal(t, mine.ID, result.Items[0].ID)

	_, err = f.enquiries.Get(ctx, f.as(f.anu).Policy, theirs.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	unlinked := principal(account.RoleTelecaller, nil)

	result, err = f.enquiries.List(ctx, unlinked.Policy, enquiry.Filter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.Zero(t, result.Total)

	all, err := f.enquiries.List(ctx, f.admin.Policy, enquiry.Filter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 2, all.Total)
	require.Equal(t, theirs.ID, all.Items[0].ID)
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	meera := f.create(t, "Meera", f.anu)
	f.create(t, "Kiran", f.ravi)

	byBranch, err := f.enquiries.List(ctx, f.admin.Policy, enquiry.Filter{BranchName: "koch"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, byBranch.Total)
	require.Equal(t, meera.ID, byBranch.Items[0].ID)

	byTelecaller, err := f.enquiries.List(ctx, f.admin.Policy, enquiry.Filter{TelecallerName: "rav"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, byTelecaller.Total)

	bySearch, err := f.enquiries.List(ctx, f.admin.Policy, enquiry.Filter{Search: "MEE"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, bySearch.Total)

	today := time.Now().UTC()
	created := query.RangeFromDates(&today, &today)

	byDate, err := f.enquiries.List(ctx, f.admin.Policy, enquiry.Filter{Created: created}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 2, byDate.Total)

	yesterday := today.AddDate(0, 0, -1)

	byOldDate, err := f.enquiries.List(ctx, f.admin.Policy, enquiry.Filter{
		Created: query.RangeFromDates(&yesterday, &yesterday),
	}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.Zero(t, byOldDate.Total)
}

func TestActiveAndClosedLists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	statuses := []string{
		enquiry.StatusActive,
		enquiry.StatusFollowUp,
		enquiry.StatusClosed,
		enquiry.StatusConverted,
		enquiry.StatusNotInterested,
	}

	for _, status := range statuses {
		created := f.create(t, status, f.anu)
		require.NoError(t, f.enquiries.EnquiryRepository.Update(ctx, created.ID, map[string]any{"enquiry_status": status}))
	}

	active, err := f.enquiries.ListActive(ctx, f.admin.Policy, enquiry.Filter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 2, active.Total)

	closed, err := f.enquiries.ListClosed(ctx, f.admin.Policy, enquiry.Filter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 2, closed.Total)

	stats, err := f.enquiries.Statistics(ctx, f.admin.Policy)
	require.NoError(t, err)
	require.EqualValues(t, 5, stats.Total)
	require.EqualValues(t, 2, stats.Active)
	require.EqualValues(t, 2, stats.Closed)
	require.EqualValues(t, 1, stats.ByStatus[enquiry.StatusNotInterested])
	require.EqualValues(t, 5, stats.BySource[enquiry.SourceOther])
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	created := f.create(t, "Meera", f.anu)
	anu := f.as(f.anu).Policy

	feedback := "Asked for fee details"

	updated, err := f.enquiries.Update(ctx, anu, created.ID, enquiry.UpdateInput{Feedback: &feedback})
	require.NoError(t, err)
	require.Equal(t, feedback, updated.Feedback)

	_, err = f.enquiries.Update(ctx, anu, created.ID, enquiry.UpdateInput{AssignedByID: &f.ravi.ID})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	reassigned, err := f.enquiries.Update(ctx, f.admin.Policy, created.ID, enquiry.UpdateInput{AssignedByID: &f.ravi.ID})
	require.NoError(t, err)
	require.True(t, reassigned.AssignedTo(f.ravi.ID))

	_, err = f.enquiries.Get(ctx, anu, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	blank := "  "

	_, err = f.enquiries.Update(ctx, f.admin.Policy, created.ID, enquiry.UpdateInput{CandidateName: &blank})

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "candidate_name")

	require.ErrorIs(t, f.enquiries.Delete(ctx, f.as(f.ravi).Policy, created.ID), apperr.ErrForbidden)
	require.NoError(t, f.enquiries.Delete(ctx, f.admin.Policy, created.ID))

	_, err = f.enquiries.Get(ctx, f.admin.Policy, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.create(t, "Meera", f.anu)
	f.create(t, "Kiran", f.anu)
	f.create(t, "Joseph", f.ravi)

	require.NoError(t, f.enquiries.Insert(ctx, &enquiry.Enquiry{CandidateName: "Walk in", Phone: "9876543211"}))

	summary, err := f.enquiries.Summary(ctx, f.admin.Policy)
	require.NoError(t, err)
	require.Len(t, summary, 3)

	require.Equal(t, "Anu", summary[0].TelecallerName)
	require.EqualValues(t, 2, summary[0].Total)
	require.EqualValues(t, 2, summary[0].ByStatus[enquiry.StatusActive])
	require.Equal(t, "Ravi", summary[1].TelecallerName)
	require.Equal(t, "Unassigned", summary[2].TelecallerName)
	require.Nil(t, summary[2].TelecallerID)

	own, err := f.enquiries.Summary(ctx, f.as(f.ravi).Policy)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.EqualValues(t, 1, own[0].Total)
}

func TestLeastLoadedTelecaller(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	id, err := f.enquiries.LeastLoadedTelecaller(ctx)
	require.NoError(t, err)
	require.Equal(t, f.anu.ID, *id)

	f.create(t, "Meera", f.anu)

	id, err = f.enquiries.LeastLoadedTelecaller(ctx)
	require.NoError(t, err)
	require.Equal(t, f.ravi.ID, *id)

	require.NoError(t, f.db.Model(&telecaller.Telecaller{}).
		Where("id IN ?", []uint{f.anu.ID, f.ravi.ID}).
		Update("status", telecaller.StatusDeactivated).Error)

	id, err = f.enquiries.LeastLoadedTelecaller(ctx)
	require.NoError(t, err)
	require.Nil(t, id)
}

func TestCountPendingFollowUps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	f.enquiries.Now = func() time.Time { return now }

	due := f.create(t, "Due", f.anu)
	later := f.create(t, "Later", f.anu)

	require.NoError(t, f.enquiries.EnquiryRepository.Update(ctx, due.ID, map[string]any{
		"enquiry_status": enquiry.StatusFollowUp,
		"follow_up_on":   query.ToDate(now.AddDate(0, 0, -1)),
	}))
	require.NoError(t, f.enquiries.EnquiryRepository.Update(ctx, later.ID, map[string]any{
		"enquiry_status": enquiry.StatusFollowUp,
		"follow_up_on":   query.ToDate(now.AddDate(0, 0, 3)),
	}))

	count, err := f.enquiries.CountPendingFollowUps(ctx, f.admin.Policy)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
