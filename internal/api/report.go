package api

import (
	"net/http"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/reminder"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/report"
	"github.com/labstack/echo/v4"
)

func (s *Server) dashboard(c echo.Context) error {
	dashboard, err := s.Reports.Dashboard(c.Request().Context(), policyOf(c))
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Dashboard data fetched successfully", dashboard)
}

func (s *Server) telecallerCalls(c echo.Context) error {
	params := newQueryParams(c)
	filter := report.CallSummaryFilter{
		BranchName:     params.string("branch_name"),
		TelecallerName: params.string("telecaller_name"),
		Search:         params.string("search"),
	}
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Reports.TelecallerCalls(c.Request().Context(), policyOf(c), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, "Telecaller call summary fetched successfully", result, identity[report.TelecallerCallSummary])
}

func (s *Server) jobs(c echo.Context, message string, read func(
	policy access.Policy,
	filter report.JobFilter,
	page query.Page,
) (query.Result[report.JobGroup], error)) error {
	params := newQueryParams(c)
	filter := report.JobFilter{
		BranchName:     params.string("branch_name"),
		TelecallerName: params.string("telecaller_name"),
		Assigned:       params.dates("start_date", "end_date"),
	}
	page := params.page()

	status, err := report.ParseJobStatus(params.string("status"))
	if err != nil {
		return err
	}

	filter.Status = status

	if err := params.err(); err != nil {
		return err
	}

	result, err := read(policyOf(c), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, message, result, identity[report.JobGroup])
}

func (s *Server) jobsSummary(c echo.Context) error {
	return s.jobs(c, "Job summary fetched successfully", func(
		policy access.Policy, filter report.JobFilter, page query.Page,
	) (query.Result[report.JobGroup], error) {
		return s.Reports.JobsSummary(c.Request().Context(), policy, filter, page)
	})
}

func (s *Server) jobsView(c echo.Context) error {
	return s.jobs(c, "Jobs fetched successfully", func(
		policy access.Policy, filter report.JobFilter, page query.Page,
	) (query.Result[report.JobGroup], error) {
		return s.Reports.JobsView(c.Request().Context(), policy, filter, page)
	})
}

func (s *Server) reminders(c echo.Context) error {
	params := newQueryParams(c)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Reminders.List(c.Request().Context(), policyOf(c), params.string("search"), page)
	if err != nil {
		return err
	}

	return respondList(c, "Reminders fetched successfully", result, identity[reminder.Item])
}
