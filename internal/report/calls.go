package report

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
)

type CallSummaryFilter struct {
	BranchName     string
	TelecallerName string
	// Search matches telecaller names by prefix.
	Search string
}

type TelecallerCallSummary struct {
	TelecallerID   uint    `json:"telecaller_id"`
	TelecallerName string  `json:"telecaller_name"`
	BranchName     *string `json:"branch_name"`
	TotalCalls     int64   `json:"total_calls"`
	TotalFollowUps int64   `json:"total_follow_ups"`
	Contacted      int64   `json:"contacted"`
	NotContacted   int64   `json:"not_contacted"`
	Answered       int64   `json:"answered"`
	NotAnswered    int64   `json:"not_answered"`
	WalkInList     int64   `json:"walk_in_list"`
	Positive       int64   `json:"positive"`
	Negative       int64   `json:"negative"`
}

func (s *TelecallerCallSummary) countStatus(status string, total int64) {
	switch status {
	case callregister.StatusContacted:
		s.Contacted += total
	case callregister.StatusNotContacted:
		s.NotContacted += total
	case callregister.StatusAnswered:
		s.Answered += total
	case callregister.StatusNotAnswered:
		s.NotAnswered += total
	}
}

func (s *TelecallerCallSummary) countOutcome(outcome string, total int64) {
	switch outcome {
	case enquiry.OutcomeFollowUp:
		s.TotalFollowUps += total
	case enquiry.OutcomeWalkIn:
		s.WalkInList += total
	case enquiry.OutcomeInterested, enquiry.OutcomeConverted:
		s.Positive += total
	case enquiry.OutcomeNotInterested, enquiry.OutcomeDoNotCall:
		s.Negative += total
	}
}

// TelecallerCalls pages through telecallers with their raw call volume and
// the status and outcome breakdown of the latest call per enquiry.
func (reportService *ReportService) TelecallerCalls(
	ctx context.Context,
	policy access.Policy,
	filter CallSummaryFilter,
	page query.Page,
) (query.Result[TelecallerCallSummary], error) {
	if !policy.IsAdmin() {
		return query.Result[TelecallerCallSummary]{}, apperr.Forbidden("Only admin can access this data.")
	}

	telecallers, err := reportService.TelecallerRepository.List(ctx, telecaller.ListFilter{
		NamePrefix: filter.Search,
		Name:       filter.TelecallerName,
		BranchName: filter.BranchName,
	}, page)
	if err != nil {
		return query.Result[TelecallerCallSummary]{}, err
	}

	result := query.Result[TelecallerCallSummary]{
		Items: make([]TelecallerCallSummary, 0, len(telecallers.Items)),
		Total: telecallers.Total,
		Page:  page,
	}

	if len(telecallers.Items) == 0 {
		return result, nil
	}

	ids := make([]uint, 0, len(telecallers.Items))
	for _, t := range telecallers.Items {
		ids = append(ids, t.ID)
	}

	admin := access.AdminPolicy{}
	repo := reportService.CallRegisterRepository

	totals, err := repo.CountByTelecaller(ctx, admin, callregister.Filter{TelecallerIDs: ids})
	if err != nil {
		return result, err
	}

	latest := callregister.Filter{Latest: &callregister.Latest{}, TelecallerIDs: ids}

	byStatus, err := repo.CountBy(ctx, admin, latest, "call_status")
	if err != nil {
		return result, err
	}

	byOutcome, err := repo.CountBy(ctx, admin, latest, "call_outcome")
	if err != nil {
		return result, err
	}

	summaries := make(map[uint]*TelecallerCallSummary, len(ids))

	for _, t := range telecallers.Items {
		result.Items = append(result.Items, TelecallerCallSummary{
			TelecallerID:   t.ID,
			TelecallerName: t.Name,
			BranchName:     optional(t.BranchName()),
			TotalCalls:     totals[t.ID],
		})
		summaries[t.ID] = &result.Items[len(result.Items)-1]
	}

	for _, count := range byStatus {
		if summary, ok := summaries[count.TelecallerID]; ok {
			summary.countStatus(count.GroupKey, count.Total)
		}
	}

	for _, count := range byOutcome {
		if summary, ok := summaries[count.TelecallerID]; ok {
			summary.countOutcome(count.GroupKey, count.Total)
		}
	}

	return result, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}
