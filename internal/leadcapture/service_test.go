package leadcapture_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadcapture"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
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

func TestDecode(t *testing.T) {
	t.Parallel()

	lead, err := leadcapture.Decode([]byte(`{"name":" Meera ","phone":"9876543210","captured_at":"2026-10-17T08:00:00Z"}`))
	require.NoError(t, err)
	require.Equal(t, "Meera", lead.Name)

	captured, ok := lead.CapturedTime()
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC), captured)

	lead.CapturedAt = "2026-10-17 08:00:00"
	_, ok = lead.CapturedTime()
	require.True(t, ok)

	lead.CapturedAt = "yesterday"
	_, ok = lead.CapturedTime()
	require.False(t, ok)

	_, err = leadcapture.Decode([]byte(`{"name":"Meera"}`))
	require.ErrorIs(t, err, leadcapture.ErrInvalidLead)

	_, err = leadcapture.Decode([]byte(`not json`))
	require.ErrorIs(t, err, leadcapture.ErrInvalidLead)
}

func TestSource(t *testing.T) {
	t.Parallel()

	require.Equal(t, enquiry.SourceFacebook, leadcapture.Source(" facebook "))
	require.Equal(t, enquiry.SourceWalkIn, leadcapture.Source("WALK IN"))
	require.Equal(t, enquiry.SourceOther, leadcapture.Source("newspaper"))
	require.Equal(t, enquiry.SourceOther, leadcapture.Source(""))
}

func TestProcessLeadAssignsLeastLoaded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := test.NewSQLite(t,
		&branch.Branch{},
		&telecaller.Telecaller{},
		&catalog.Course{}, &catalog.Service{}, &catalog.Mettad{},
		&enquiry.Enquiry{},
	)

	busy := &telecaller.Telecaller{
		AccountID: uuid.New(), Name: "Anu", Email: "anu@example.com",
		Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
	}
	free := &telecaller.Telecaller{
		AccountID: uuid.New(), Name: "Ravi", Email: "ravi@example.com",
		Status: telecaller.StatusActive, JobType: telecaller.JobTypeFullTime,
	}
	require.NoError(t, db.Create(busy).Error)
	require.NoError(t, db.Create(free).Error)

	require.NoError(t, db.Create(&enquiry.Enquiry{
		CandidateName: "Arjun", Phone: "+919876543211",
		EnquirySource: enquiry.SourceOther, EnquiryStatus: enquiry.StatusActive,
		TelecallerID: &busy.ID,
	}).Error)
	require.NoError(t, db.Create(&enquiry.Enquiry{
		CandidateName: "Devi", Phone: "+919876543212",
		EnquirySource: enquiry.SourceOther, EnquiryStatus: enquiry.StatusClosed,
		TelecallerID: &free.ID,
	}).Error)

	require.NoError(t, db.Create(&catalog.Course{Name: "Python", IsActive: true}).Error)

	published := &recorder{}
	service := leadcapture.NewService(db, published)

	err := service.ProcessLead(ctx, []byte(`{"name":"Meera","phone":"09876543210","source":"website","course":"python"}`))
	require.NoError(t, err)

	var captured enquiry.Enquiry
	require.NoError(t, db.Where("candidate_name = ?", "Meera").First(&captured).Error)
	require.Equal(t, free.ID, *captured.TelecallerID)
	require.Equal(t, "+919876543210", captured.Phone)
	require.Equal(t, enquiry.SourceWebsite, captured.EnquirySource)
	require.Equal(t, leadcapture.CreatedByRole, captured.CreatedByRole)
	require.NotNil(t, captured.CourseID)

	require.Len(t, published.events, 1)
	require.Equal(t, events.TypeLeadCaptured, published.events[0].Type)

	err = service.ProcessLead(ctx, []byte(`{"phone":"9876543210"}`))
	require.ErrorIs(t, err, leadcapture.ErrInvalidLead)
}
