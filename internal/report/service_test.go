package report_test

import (
	"context"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/report"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	firstDay  = time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC)
	secondDay = time.Date(2026, 10, 11, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	db      *gorm.DB
	reports *report.ReportService
	anu     *telecaller.Telecaller
	ravi    *telecaller.Telecaller
}

// newFixture seeds five enquiries:
//
//	day 1, Anu:  converted, untouched, not answered
//	day 2, Ravi: converted then busy without outcome
//	day 2, nobody
func newFixture(t *testing.T) *fixture {
	t.Helper()

	return seedFixture(t, test.NewSQLite(t, fixtureModels()...))
}

func fixtureModels() []any {
	return []any{
		&branch.Branch{},
		&telecaller.Telecaller{},
		&catalog.Course{}, &catalog.Service{}, &catalog.Mettad{},
		&enquiry.Enquiry{},
		&callregister.CallRegister{},
	}
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	kochi := &branch.Branch{Name: "Kochi", Email: "kochi@example.com"}
	require.NoError(t, db.Create(kochi).Error)

	f := &fixture{
		db:      db,
		reports: report.NewService(db),
		anu: &telecaller.Telecaller{
			AccountID: uuid.New(), Name: "Anu", Email: "anu@example.com",
			BranchID: &kochi.ID, Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
		},
		ravi: &telecaller.Telecaller{
			AccountID: uuid.New(), Name: "Ravi", Email: "ravi@example.com",
			Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
		},
	}
	require.NoError(t, db.Create(f.anu).Error)
	require.NoError(t, db.Create(f.ravi).Error)

	converted := f.enquiry(t, "Meera", &f.anu.ID, firstDay)
	f.enquiry(t, "Arjun", &f.anu.ID, firstDay)
	silent := f.enquiry(t, "Devi", &f.anu.ID, firstDay)
	reopened := f.enquiry(t, "Sara", &f.ravi.ID, secondDay)
	f.enquiry(t, "Kiran", nil, secondDay)

	outcome := enquiry.OutcomeConverted

	f.call(t, converted, f.anu.ID, callregister.StatusContacted, &outcome)
	f.call(t, silent, f.anu.ID, callregister.StatusNotAnswered, nil)
	f.call(t, reopened, f.ravi.ID, callregister.StatusContacted, &outcome)
	f.call(t, reopened, f.ravi.ID, callregister.StatusBusy, nil)

	return f
}

func (f *fixture) enquiry(t *testing.T, name string, telecallerID *uint, created time.Time) uint {
	t.Helper()

	e := &enquiry.Enquiry{
		CandidateName: name,
		Phone:         "+919876543210",
		EnquirySource: enquiry.SourceOther,
		EnquiryStatus: enquiry.StatusActive,
		TelecallerID:  telecallerID,
		CreatedAt:     created,
	}
	require.NoError(t, f.db.Create(e).Error)

	return e.ID
}

func (f *fixture) call(t *testing.T, enquiryID, telecallerID uint, status string, outcome *string) {
	t.Helper()

	require.NoError(t, f.db.Create(&callregister.CallRegister{
		EnquiryID:    enquiryID,
		TelecallerID: telecallerID,
		CallType:     callregister.TypeOutgoing,
		CallStatus:   status,
		CallOutcome:  outcome,
	}).Error)
}

func (f *fixture) policy(t *telecaller.Telecaller) access.Policy {
	return access.TelecallerPolicy{Telecaller: &t.ID}
}

func TestJobsViewGroupsByDayAndTelecaller(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	result, err := f.reports.JobsView(ctx, access.AdminPolicy{}, report.JobFilter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 3, result.Total)

	groups := result.Items
	require.Equal(t, "2026-10-11", groups[0].AssignedDate)
	require.Equal(t, "Ravi", groups[0].TelecallerName)
	require.Equal(t, "0/1 completed", groups[0].Progress)

	require.Equal(t, "2026-10-11", groups[1].AssignedDate)
	require.Equal(t, "Unassigned", groups[1].TelecallerName)
	require.Nil(t, groups[1].TelecallerID)

	require.Equal(t, "2026-10-10", groups[2].AssignedDate)
	require.Equal(t, "Anu", groups[2].TelecallerName)
	require.Equal(t, "Kochi", *groups[2].BranchName)
	require.Equal(t, "1/3 completed", groups[2].Progress)
	require.Len(t, groups[2].Jobs, 3)
}

func TestJobsStatusFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	result, err := f.reports.JobsView(ctx, access.AdminPolicy{}, report.JobFilter{Status: "completed"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	anu := result.Items[0]
	require.Equal(t, "1/3 completed", anu.Progress)
	require.Len(t, anu.Jobs, 1)
	require.Equal(t, "Meera", anu.Jobs[0].CandidateName)
	require.Equal(t, report.JobCompleted, anu.Jobs[0].Status)
	require.Equal(t, enquiry.OutcomeConverted, *anu.Jobs[0].Outcome)

	result, err = f.reports.JobsView(ctx, access.AdminPolicy{}, report.JobFilter{Status: "remaining"}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	require.Len(t, result.Items[2].Jobs, 2)
}

func TestJobsSummaryIsOwnOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	result, err := f.reports.JobsSummary(ctx, f.policy(f.anu), report.JobFilter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "Anu", result.Items[0].TelecallerName)

	_, err = f.reports.JobsSummary(ctx, access.AdminPolicy{}, report.JobFilter{}, query.NewPage(1, 10))
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.reports.JobsView(ctx, f.policy(f.anu), report.JobFilter{}, query.NewPage(1, 10))
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestParseJobStatus(t *testing.T) {
	t.Parallel()

	status, err := report.ParseJobStatus(" Completed ")
	require.NoError(t, err)
	require.Equal(t, "completed", status)

	status, err = report.ParseJobStatus("")
	require.NoError(t, err)
	require.Empty(t, status)

	_, err = report.ParseJobStatus("done")

	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.Fields, "status")
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	admin, err := f.reports.Dashboard(ctx, access.AdminPolicy{})
	require.NoError(t, err)
	require.Equal(t, report.DashboardAdmin, admin.DashboardType)
	require.EqualValues(t, 4, admin.TotalCalls)
	require.EqualValues(t, 5, admin.TotalLeads)
	require.EqualValues(t, 2, *admin.TotalTelecallers)
	require.EqualValues(t, 1, *admin.TotalBranches)
	require.EqualValues(t, 1, *admin.ConvertedLeads)
	require.Nil(t, admin.PendingFollowUps)

	own, err := f.reports.Dashboard(ctx, f.policy(f.anu))
	require.NoError(t, err)
	require.Equal(t, report.DashboardTelecaller, own.DashboardType)
	require.EqualValues(t, 2, own.TotalCalls)
	require.EqualValues(t, 3, own.TotalLeads)
	require.Zero(t, *own.WalkInList)
	require.Nil(t, own.TotalTelecallers)

	_, err = f.reports.Dashboard(ctx, access.TelecallerPolicy{})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestTelecallerCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	result, err := f.reports.TelecallerCalls(ctx, access.AdminPolicy{}, report.CallSummaryFilter{}, query.NewPage(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Total)

	summaries := map[string]report.TelecallerCallSummary{}
	for _, summary := range result.Items {
		summaries[summary.TelecallerName] = summary
	}

	anu := summaries["Anu"]
	require.EqualValues(t, 2, anu.TotalCalls)
	require.EqualValues(t, 1, anu.Contacted)
	require.EqualValues(t, 1, anu.NotAnswered)
	require.EqualValues(t, 1, anu.Positive)
	require.Equal(t, "Kochi", *anu.BranchName)

	ravi := summaries["Ravi"]
	require.EqualValues(t, 2, ravi.TotalCalls)
	require.Zero(t, ravi.Contacted)
	require.Zero(t, ravi.Positive)
	require.Nil(t, ravi.BranchName)

	_, err = f.reports.TelecallerCalls(ctx, f.policy(f.ravi), report.CallSummaryFilter{}, query.NewPage(1, 10))
	require.ErrorIs(t, err, apperr.ErrForbidden)
}
