package api

import (
	"net/http"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"github.com/labstack/echo/v4"
)

type callRequest struct {
	EnquiryID     uint       `json:"enquiry_id"      validate:"required"`
	CallType      string     `json:"call_type"`
	CallStatus    string     `json:"call_status"`
	CallOutcome   string     `json:"call_outcome"`
	CallStartTime *time.Time `json:"call_start_time"`
	CallEndTime   *time.Time `json:"call_end_time"`
	Notes         string     `json:"notes"`
	FollowUpDate  *string    `json:"follow_up_date"`
	NextAction    string     `json:"next_action"     validate:"max=255"`
}

type callPatch struct {
	CallStatus   *string    `json:"call_status"`
	Notes        *string    `json:"notes"`
	NextAction   *string    `json:"next_action"   validate:"omitempty,max=255"`
	FollowUpDate *string    `json:"follow_up_date"`
	CallEndTime  *time.Time `json:"call_end_time"`
}

func callFilter(params *queryParams) callregister.Filter {
	filter := callregister.Filter{
		TelecallerName: params.string("telecaller_name"),
		BranchName:     params.string("branch_name"),
		CallType:       params.string("call_type"),
		CallStatus:     params.string("call_status"),
		EnquiryStatus:  params.string("enquiry_status"),
		CandidateName:  params.string("candidate_name"),
		EnquiryCreated: params.day("enquiry_date"),
		Created:        params.day("created_at"),
		Search:         params.string("search"),
	}

	if filter.Created == nil {
		filter.Created = params.dates("start_date", "end_date")
	}

	if outcome := params.string("call_outcome"); outcome != "" {
		normalized, ok := enquiry.NormalizeOutcome(outcome)
		if !ok {
			params.validation.Add("call_outcome", "\""+outcome+"\" is not a valid choice.")
		}

		filter.CallOutcome = normalized
	}

	return filter
}

func (s *Server) listCalls(c echo.Context) error {
	params := newQueryParams(c)
	filter := callFilter(params)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Calls.List(c.Request().Context(), policyOf(c), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, "Call logs fetched successfully", result, callView)
}

func (s *Server) listNotAnswered(c echo.Context) error {
	params := newQueryParams(c)
	filter := callFilter(params)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Calls.ListNotAnswered(c.Request().Context(), policyOf(c), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, "Not answered calls fetched successfully", result, callView)
}

func (s *Server) listFollowUps(c echo.Context) error {
	params := newQueryParams(c)
	filter := callFilter(params)
	filter.FollowUpDate = params.date("follow_up_date")
	pendingOnly := params.bool("pending_only")
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Calls.ListFollowUps(c.Request().Context(), policyOf(c), filter, pendingOnly, page)
	if err != nil {
		return err
	}

	return respondList(c, "Follow-ups fetched successfully", result, callView)
}

func (s *Server) listWalkIns(c echo.Context) error {
	params := newQueryParams(c)
	filter := callFilter(params)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Calls.ListWalkIns(c.Request().Context(), policyOf(c), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, "Walk-in list fetched successfully", result, callView)
}

func (s *Server) listByOutcome(c echo.Context) error {
	params := newQueryParams(c)
	filter := callFilter(params)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Calls.ListByOutcome(c.Request().Context(), policyOf(c), c.Param("outcome"), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, "Call logs fetched successfully", result, callView)
}

func (s *Server) registerCall(c echo.Context) error {
	var req callRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	validation := &apperr.ValidationError{}
	followUpDate := bodyDate(req.FollowUpDate, "follow_up_date", validation)

	if err := validation.OrNil(); err != nil {
		return err
	}

	call, err := s.Calls.Register(c.Request().Context(), policyOf(c), callregister.RegisterInput{
		EnquiryID:     req.EnquiryID,
		CallType:      req.CallType,
		CallStatus:    req.CallStatus,
		CallOutcome:   req.CallOutcome,
		CallStartTime: req.CallStartTime,
		CallEndTime:   req.CallEndTime,
		Notes:         req.Notes,
		FollowUpDate:  followUpDate,
		NextAction:    req.NextAction,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "Call log created successfully", call.View())
}

func (s *Server) getCall(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	call, err := s.Calls.Get(c.Request().Context(), policyOf(c), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Call log fetched successfully", call.View())
}

func (s *Server) updateCall(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req callPatch
	if err := s.bind(c, &req); err != nil {
		return err
	}

	validation := &apperr.ValidationError{}
	followUpDate := bodyDate(req.FollowUpDate, "follow_up_date", validation)

	if err := validation.OrNil(); err != nil {
		return err
	}

	call, err := s.Calls.Update(c.Request().Context(), policyOf(c), id, callregister.UpdateInput{
		CallStatus:   req.CallStatus,
		Notes:        req.Notes,
		NextAction:   req.NextAction,
		FollowUpDate: followUpDate,
		CallEndTime:  req.CallEndTime,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Call log updated successfully", call.View())
}

func (s *Server) callStats(c echo.Context) error {
	stats, err := s.Calls.Stats(c.Request().Context(), policyOf(c))
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Call stats fetched successfully", stats)
}
