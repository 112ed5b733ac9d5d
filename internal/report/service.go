// Package report derives dashboards and progress summaries from enquiries and
// call logs.
package report

import (
	"context"
	"fmt"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	DashboardAdmin      = "admin"
	DashboardTelecaller = "telecaller"
)

type ReportService struct {
	CallRegisterRepository *callregister.CallRegisterRepository
	EnquiryRepository      *enquiry.EnquiryRepository
	TelecallerRepository   *telecaller.TelecallerRepository
	BranchRepository       *branch.BranchRepository
	Now                    func() time.Time
}

func NewService(dbConn *gorm.DB) *ReportService {
	return &ReportService{
		CallRegisterRepository: callregister.NewCallRegisterRepository(dbConn),
		EnquiryRepository:      enquiry.NewEnquiryRepository(dbConn),
		TelecallerRepository:   telecaller.NewTelecallerRepository(dbConn),
		BranchRepository:       branch.NewBranchRepository(dbConn),
		Now:                    time.Now,
	}
}

// Dashboard carries the admin counters or the telecaller counters depending
// on DashboardType; the other group is omitted.
type Dashboard struct {
	DashboardType    string `json:"dashboard_type"`
	TotalCalls       int64  `json:"total_calls"`
	TotalLeads       int64  `json:"total_leads"`
	TotalTelecallers *int64 `json:"total_telecallers,omitempty"`
	TotalBranches    *int64 `json:"total_branches,omitempty"`
	ConvertedLeads   *int64 `json:"converted_leads,omitempty"`
	PendingFollowUps *int64 `json:"pending_followups,omitempty"`
	WalkInList       *int64 `json:"walkin_list,omitempty"`
}

type counter struct {
	name   string
	target *int64
	count  func(ctx context.Context) (int64, error)
}

func (reportService *ReportService) Dashboard(ctx context.Context, policy access.Policy) (*Dashboard, error) {
	if policy.IsAdmin() {
		return reportService.adminDashboard(ctx)
	}

	telecallerID, ok := policy.TelecallerID()
	if !ok {
		return nil, apperr.Forbidden("Only telecallers can access dashboard.")
	}

	return reportService.telecallerDashboard(ctx, telecallerID)
}

func (reportService *ReportService) adminDashboard(ctx context.Context) (*Dashboard, error) {
	admin := access.AdminPolicy{}
	dashboard := &Dashboard{
		DashboardType:    DashboardAdmin,
		TotalTelecallers: new(int64),
		TotalBranches:    new(int64),
		ConvertedLeads:   new(int64),
	}

	counters := []counter{
		{"total_calls", &dashboard.TotalCalls, func(ctx context.Context) (int64, error) {
			return reportService.CallRegisterRepository.Count(ctx, admin, callregister.Filter{})
		}},
		{"total_leads", &dashboard.TotalLeads, func(ctx context.Context) (int64, error) {
			return reportService.EnquiryRepository.Count(ctx, admin, enquiry.Filter{})
		}},
		{"total_telecallers", dashboard.TotalTelecallers, func(ctx context.Context) (int64, error) {
			return reportService.TelecallerRepository.Count(ctx, telecaller.ListFilter{})
		}},
		{"total_branches", dashboard.TotalBranches, reportService.BranchRepository.Count},
		{"converted_leads", dashboard.ConvertedLeads, func(ctx context.Context) (int64, error) {
			return reportService.CallRegisterRepository.Count(ctx, admin, callregister.Filter{
				Latest:      &callregister.Latest{},
				CallOutcome: enquiry.OutcomeConverted,
			})
		}},
	}

	err := runCounters(ctx, counters)
	if err != nil {
		return nil, err
	}

	return dashboard, nil
}

func (reportService *ReportService) telecallerDashboard(ctx context.Context, telecallerID uint) (*Dashboard, error) {
	own := access.TelecallerPolicy{Telecaller: &telecallerID}
	latest := &callregister.Latest{TelecallerID: &telecallerID}
	today := reportService.Now()

	dashboard := &Dashboard{
		DashboardType:    DashboardTelecaller,
		PendingFollowUps: new(int64),
		WalkInList:       new(int64),
	}

	counters := []counter{
		{"total_calls", &dashboard.TotalCalls, func(ctx context.Context) (int64, error) {
			return reportService.CallRegisterRepository.Count(ctx, own, callregister.Filter{})
		}},
		{"total_leads", &dashboard.TotalLeads, func(ctx context.Context) (int64, error) {
			return reportService.EnquiryRepository.Count(ctx, own, enquiry.Filter{})
		}},
		{"pending_followups", dashboard.PendingFollowUps, func(ctx context.Context) (int64, error) {
			return reportService.CallRegisterRepository.Count(ctx, own, callregister.Filter{
				Latest:        latest,
				CallOutcome:   enquiry.OutcomeFollowUp,
				FollowUpUntil: &today,
			})
		}},
		{"walkin_list", dashboard.WalkInList, func(ctx context.Context) (int64, error) {
			return reportService.CallRegisterRepository.Count(ctx, own, callregister.Filter{
				Latest:      latest,
				CallOutcome: enquiry.OutcomeWalkIn,
			})
		}},
	}

	err := runCounters(ctx, counters)
	if err != nil {
		return nil, err
	}

	return dashboard, nil
}

// runCounters evaluates every counter concurrently and stops at the first error.
func runCounters(ctx context.Context, counters []counter) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, c := range counters {
		group.Go(func() error {
			total, err := c.count(groupCtx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", c.name, err)
			}

			*c.target = total

			return nil
		})
	}

	return group.Wait()
}
