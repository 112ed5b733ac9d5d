package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
)

const (
	JobCompleted = "Completed"
	JobRemaining = "Remaining"

	unassigned = "Unassigned"
)

type JobFilter struct {
	BranchName     string
	TelecallerName string
	Assigned       *query.DateRange
	// Status is "completed", "remaining" or empty for both.
	Status string
}

type Job struct {
	EnquiryID     uint    `json:"enquiry_id"`
	CandidateName string  `json:"candidate_name"`
	Contact       string  `json:"contact"`
	Email         string  `json:"email"`
	Status        string  `json:"status"`
	Outcome       *string `json:"outcome"`
	AssignedDate  string  `json:"assigned_date"`
}

// JobGroup holds one telecaller's enquiries created on one day.
type JobGroup struct {
	AssignedDate   string  `json:"assigned_date"`
	TelecallerID   *uint   `json:"telecaller_id"`
	TelecallerName string  `json:"telecaller_name"`
	BranchName     *string `json:"branch_name"`
	Completed      int     `json:"completed"`
	Total          int     `json:"total"`
	Progress       string  `json:"progress"`
	Jobs           []Job   `json:"jobs"`
}

type groupKey struct {
	date         string
	telecallerID uint
}

// ParseJobStatus validates the status query value.
func ParseJobStatus(value string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(value))

	switch status {
	case "", "completed", "remaining":
		return status, nil
	}

	return "", apperr.NewValidation("status", fmt.Sprintf("%q is not a valid choice.", value))
}

// JobsView reports progress for every telecaller.
func (reportService *ReportService) JobsView(
	ctx context.Context,
	policy access.Policy,
	filter JobFilter,
	page query.Page,
) (query.Result[JobGroup], error) {
	if !policy.IsAdmin() {
		return query.Result[JobGroup]{}, apperr.Forbidden("Only admins can access this data.")
	}

	groups, err := reportService.jobs(ctx, access.AdminPolicy{}, filter)
	if err != nil {
		return query.Result[JobGroup]{}, err
	}

	return query.Paginate(groups, page), nil
}

// JobsSummary reports progress for the calling telecaller only.
func (reportService *ReportService) JobsSummary(
	ctx context.Context,
	policy access.Policy,
	filter JobFilter,
	page query.Page,
) (query.Result[JobGroup], error) {
	telecallerID, ok := policy.TelecallerID()
	if !ok {
		return query.Result[JobGroup]{}, apperr.Forbidden("Only telecallers can access this.")
	}

	groups, err := reportService.jobs(ctx, access.TelecallerPolicy{Telecaller: &telecallerID}, filter)
	if err != nil {
		return query.Result[JobGroup]{}, err
	}

	return query.Paginate(groups, page), nil
}

// jobs classifies every enquiry in scope by its latest call and groups the
// result by creation day and telecaller, newest day first.
func (reportService *ReportService) jobs(
	ctx context.Context,
	policy access.Policy,
	filter JobFilter,
) ([]JobGroup, error) {
	enquiries, err := reportService.EnquiryRepository.FindAll(ctx, policy, enquiry.Filter{
		TelecallerName: filter.TelecallerName,
		BranchName:     filter.BranchName,
		Created:        filter.Assigned,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(enquiries))
	for _, e := range enquiries {
		ids = append(ids, e.ID)
	}

	latest, err := reportService.CallRegisterRepository.LatestForEnquiries(ctx, ids)
	if err != nil {
		return nil, err
	}

	return groupJobs(enquiries, latest, filter.Status), nil
}

func groupJobs(enquiries []enquiry.Enquiry, latest map[uint]callregister.CallRegister, status string) []JobGroup {
	groups := make(map[groupKey]*JobGroup)

	for _, e := range enquiries {
		date := e.CreatedAt.UTC().Format(query.DateLayout)

		key := groupKey{date: date}
		if e.TelecallerID != nil {
			key.telecallerID = *e.TelecallerID
		}

		group, ok := groups[key]
		if !ok {
			group = &JobGroup{
				AssignedDate:   date,
				TelecallerID:   e.TelecallerID,
				TelecallerName: unassigned,
				Jobs:           []Job{},
			}

			if e.Telecaller != nil {
				group.TelecallerName = e.Telecaller.Name
				group.BranchName = optional(e.Telecaller.BranchName())
			}

			groups[key] = group
		}

		job := Job{
			EnquiryID:     e.ID,
			CandidateName: e.CandidateName,
			Contact:       e.Phone,
			Email:         e.Email,
			Status:        JobRemaining,
			AssignedDate:  date,
		}

		if call, ok := latest[e.ID]; ok {
			job.Outcome = call.CallOutcome

			if strings.TrimSpace(call.Outcome()) != "" {
				job.Status = JobCompleted
			}
		}

		group.Total++
		if job.Status == JobCompleted {
			group.Completed++
		}

		if status == "" || strings.EqualFold(status, job.Status) {
			group.Jobs = append(group.Jobs, job)
		}
	}

	result := make([]JobGroup, 0, len(groups))

	for _, group := range groups {
		if len(group.Jobs) == 0 {
			continue
		}

		group.Progress = fmt.Sprintf("%d/%d completed", group.Completed, group.Total)
		result = append(result, *group)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AssignedDate != result[j].AssignedDate {
			return result[i].AssignedDate > result[j].AssignedDate
		}

		if result[i].TelecallerName != result[j].TelecallerName {
			return result[i].TelecallerName < result[j].TelecallerName
		}

		return groupID(result[i]) < groupID(result[j])
	})

	return result
}

func groupID(group JobGroup) uint {
	if group.TelecallerID == nil {
		return 0
	}

	return *group.TelecallerID
}
