package callregister

import (
	"context"
	"math"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
)

type Stats struct {
	TotalCalls int64 `json:"total_calls"`
	TodayCalls int64 `json:"today_calls"`
	WeekCalls  int64 `json:"week_calls"`
	MonthCalls int64 `json:"month_calls"`

	ConnectedCalls      int64 `json:"connected_calls"`
	NotAnsweredCalls    int64 `json:"not_answered_calls"`
	BusyCalls           int64 `json:"busy_calls"`
	InterestedProspects int64 `json:"interested_prospects"`
	ConvertedLeads      int64 `json:"converted_leads"`
	FollowUpsRequired   int64 `json:"follow_ups_required"`
	WalkInList          int64 `json:"walk_in_list"`
	NotInterested       int64 `json:"not_interested"`
	CallbackRequested   int64 `json:"callback_requested"`
	InformationProvided int64 `json:"information_provided"`
	DoNotCall           int64 `json:"do_not_call"`

	TotalCallTime          int64  `json:"total_call_time"`
	TodayCallTime          int64  `json:"today_call_time"`
	TotalCallTimeFormatted string `json:"total_call_time_formatted"`
	TodayCallTimeFormatted string `json:"today_call_time_formatted"`

	AssignedEnquiries int64   `json:"assigned_enquiries"`
	PendingFollowUps  int64   `json:"pending_follow_ups"`
	ConversionRate    float64 `json:"conversion_rate"`
}

// ConversionRate is converted / connected as a percentage rounded to two
// decimals, or 0 when nothing connected.
func ConversionRate(converted, connected int64) float64 {
	if connected == 0 {
		return 0
	}

	return math.Round(float64(converted)/float64(connected)*100*100) / 100
}

// Stats reports the principal's own call activity. Volume and talk time use
// every call, bucketed by call start time; the breakdown uses only the latest
// call per enquiry.
func (callRegisterService *CallRegisterService) Stats(ctx context.Context, policy access.Policy) (*Stats, error) {
	telecallerID, ok := policy.TelecallerID()
	if !ok {
		return nil, apperr.Forbidden("Only telecallers can access call stats.")
	}

	own := access.TelecallerPolicy{Telecaller: &telecallerID}
	now := callRegisterService.Now()
	today := query.Day(now)
	repo := callRegisterService.CallRegisterRepository

	stats := &Stats{}

	counts := []struct {
		target *int64
		filter Filter
	}{
		{&stats.TotalCalls, Filter{}},
		{&stats.TodayCalls, Filter{Started: &today}},
		{&stats.WeekCalls, Filter{Started: &query.DateRange{From: query.StartOfWeek(now), To: today.To}}},
		{&stats.MonthCalls, Filter{Started: &query.DateRange{From: query.StartOfMonth(now), To: today.To}}},
	}

	for _, count := range counts {
		total, err := repo.Count(ctx, own, count.filter)
		if err != nil {
			return nil, err
		}

		*count.target = total
	}

	var err error

	stats.TotalCallTime, err = repo.SumDuration(ctx, own, Filter{})
	if err != nil {
		return nil, err
	}

	stats.TodayCallTime, err = repo.SumDuration(ctx, own, Filter{Started: &today})
	if err != nil {
		return nil, err
	}

	stats.TotalCallTimeFormatted = FormatTalkTime(stats.TotalCallTime)
	stats.TodayCallTimeFormatted = FormatTalkTime(stats.TodayCallTime)

	latest := Filter{Latest: &Latest{TelecallerID: &telecallerID}}

	byStatus, err := repo.CountBy(ctx, own, latest, "call_status")
	if err != nil {
		return nil, err
	}

	for _, count := range byStatus {
		switch count.GroupKey {
		case StatusContacted:
			stats.ConnectedCalls += count.Total
		case StatusNotAnswered:
			stats.NotAnsweredCalls += count.Total
		case StatusBusy:
			stats.BusyCalls += count.Total
		}
	}

	byOutcome, err := repo.CountBy(ctx, own, latest, "call_outcome")
	if err != nil {
		return nil, err
	}

	outcomeTargets := map[string]*int64{
		enquiry.OutcomeInterested:          &stats.InterestedProspects,
		enquiry.OutcomeConverted:           &stats.ConvertedLeads,
		enquiry.OutcomeFollowUp:            &stats.FollowUpsRequired,
		enquiry.OutcomeWalkIn:              &stats.WalkInList,
		enquiry.OutcomeNotInterested:       &stats.NotInterested,
		enquiry.OutcomeCallbackRequested:   &stats.CallbackRequested,
		enquiry.OutcomeInformationProvided: &stats.InformationProvided,
		enquiry.OutcomeDoNotCall:           &stats.DoNotCall,
	}

	for _, count := range byOutcome {
		if target, ok := outcomeTargets[count.GroupKey]; ok {
			*target += count.Total
		}
	}

	stats.AssignedEnquiries, err = callRegisterService.EnquiryRepository.Count(ctx, own, enquiry.Filter{})
	if err != nil {
		return nil, err
	}

	stats.PendingFollowUps, err = callRegisterService.EnquiryRepository.CountPendingFollowUps(ctx, own, now)
	if err != nil {
		return nil, err
	}

	stats.ConversionRate = ConversionRate(stats.ConvertedLeads, stats.ConnectedCalls)

	return stats, nil
}
