package api

import (
	"fmt"
	"io"
	"net/http"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/labstack/echo/v4"
)

type enquiryRequest struct {
	CandidateName     string  `json:"candidate_name"`
	Phone             string  `json:"phone"`
	Phone2            string  `json:"phone2"`
	Email             string  `json:"email"                 validate:"omitempty,email"`
	Feedback          string  `json:"feedback"`
	EnquirySource     string  `json:"enquiry_source"`
	EnquiryStatus     string  `json:"enquiry_status"`
	FollowUpOn        *string `json:"follow_up_on"`
	PreferredCourseID *uint   `json:"preferred_course_id"`
	RequiredServiceID *uint   `json:"required_service_id"`
	MettadID          *uint   `json:"mettad_id"`
	BranchID          *uint   `json:"branch_id"`
	AssignedByID      *uint   `json:"assigned_by_id"`
}

type enquiryPatch struct {
	CandidateName     *string `json:"candidate_name"`
	Phone             *string `json:"phone"`
	Phone2            *string `json:"phone2"`
	Email             *string `json:"email"                 validate:"omitempty,email"`
	Feedback          *string `json:"feedback"`
	EnquirySource     *string `json:"enquiry_source"`
	EnquiryStatus     *string `json:"enquiry_status"`
	FollowUpOn        *string `json:"follow_up_on"`
	PreferredCourseID *uint   `json:"preferred_course_id"`
	RequiredServiceID *uint   `json:"required_service_id"`
	MettadID          *uint   `json:"mettad_id"`
	BranchID          *uint   `json:"branch_id"`
	AssignedByID      *uint   `json:"assigned_by_id"`
}

func enquiryView(e *enquiry.Enquiry) enquiry.View {
	return e.View()
}

func callView(c *callregister.CallRegister) callregister.View {
	return c.View()
}

func enquiryFilter(params *queryParams) enquiry.Filter {
	return enquiry.Filter{
		Status:         params.string("enquiry_status"),
		Source:         params.string("enquiry_source"),
		TelecallerName: params.string("telecaller_name"),
		BranchName:     params.string("branch_name"),
		CandidateName:  params.string("candidate_name"),
		Phone:          params.string("phone"),
		Email:          params.string("email"),
		Created:        params.dates("start_date", "end_date"),
		Search:         params.string("search"),
	}
}

type enquiryLister func(
	policy access.Policy,
	filter enquiry.Filter,
	page query.Page,
) (query.Result[enquiry.Enquiry], error)

func (s *Server) enquiryList(c echo.Context, message string, list enquiryLister) error {
	params := newQueryParams(c)
	filter := enquiryFilter(params)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := list(policyOf(c), filter, page)
	if err != nil {
		return err
	}

	return respondList(c, message, result, enquiryView)
}

func (s *Server) listEnquiries(c echo.Context) error {
	return s.enquiryList(c, "Enquiries fetched successfully", func(
		policy access.Policy, filter enquiry.Filter, page query.Page,
	) (query.Result[enquiry.Enquiry], error) {
		return s.Enquiries.List(c.Request().Context(), policy, filter, page)
	})
}

func (s *Server) listActiveEnquiries(c echo.Context) error {
	return s.enquiryList(c, "Active enquiries fetched successfully", func(
		policy access.Policy, filter enquiry.Filter, page query.Page,
	) (query.Result[enquiry.Enquiry], error) {
		return s.Enquiries.ListActive(c.Request().Context(), policy, filter, page)
	})
}

func (s *Server) listClosedEnquiries(c echo.Context) error {
	return s.enquiryList(c, "Closed enquiries fetched successfully", func(
		policy access.Policy, filter enquiry.Filter, page query.Page,
	) (query.Result[enquiry.Enquiry], error) {
		return s.Enquiries.ListClosed(c.Request().Context(), policy, filter, page)
	})
}

func (s *Server) createEnquiry(c echo.Context) error {
	var req enquiryRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	validation := &apperr.ValidationError{}
	followUpOn := bodyDate(req.FollowUpOn, "follow_up_on", validation)

	if err := validation.OrNil(); err != nil {
		return err
	}

	created, err := s.Enquiries.Create(c.Request().Context(), principalOf(c), enquiry.CreateInput{
		CandidateName: req.CandidateName,
		Phone:         req.Phone,
		Phone2:        req.Phone2,
		Email:         req.Email,
		Feedback:      req.Feedback,
		EnquirySource: req.EnquirySource,
		EnquiryStatus: req.EnquiryStatus,
		FollowUpOn:    followUpOn,
		CourseID:      req.PreferredCourseID,
		ServiceID:     req.RequiredServiceID,
		MettadID:      req.MettadID,
		BranchID:      req.BranchID,
		AssignedByID:  req.AssignedByID,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "Enquiry created successfully", created.View())
}

func (s *Server) getEnquiry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	found, err := s.Enquiries.Get(c.Request().Context(), policyOf(c), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Enquiry fetched successfully", found.View())
}

func (s *Server) updateEnquiry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req enquiryPatch
	if err := s.bind(c, &req); err != nil {
		return err
	}

	validation := &apperr.ValidationError{}
	followUpOn := bodyDate(req.FollowUpOn, "follow_up_on", validation)

	if err := validation.OrNil(); err != nil {
		return err
	}

	updated, err := s.Enquiries.Update(c.Request().Context(), policyOf(c), id, enquiry.UpdateInput{
		CandidateName: req.CandidateName,
		Phone:         req.Phone,
		Phone2:        req.Phone2,
		Email:         req.Email,
		Feedback:      req.Feedback,
		EnquirySource: req.EnquirySource,
		EnquiryStatus: req.EnquiryStatus,
		FollowUpOn:    followUpOn,
		CourseID:      req.PreferredCourseID,
		ServiceID:     req.RequiredServiceID,
		MettadID:      req.MettadID,
		BranchID:      req.BranchID,
		AssignedByID:  req.AssignedByID,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Enquiry updated successfully", updated.View())
}

func (s *Server) deleteEnquiry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	err = s.Enquiries.Delete(c.Request().Context(), policyOf(c), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Enquiry deleted successfully", nil)
}

func (s *Server) callHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	calls, err := s.Calls.History(c.Request().Context(), policyOf(c), id)
	if err != nil {
		return err
	}

	views := make([]callregister.View, 0, len(calls))
	for i := range calls {
		views = append(views, calls[i].View())
	}

	return respond(c, http.StatusOK, "Call history fetched successfully", views)
}

func (s *Server) enquirySummary(c echo.Context) error {
	summary, err := s.Enquiries.Summary(c.Request().Context(), policyOf(c))
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Enquiry summary fetched successfully", summary)
}

func (s *Server) enquiryStatistics(c echo.Context) error {
	statistics, err := s.Enquiries.Statistics(c.Request().Context(), policyOf(c))
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Enquiry statistics fetched successfully", statistics)
}

// importEnquiries accepts a multipart upload in the "file" field.
func (s *Server) importEnquiries(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperr.NewValidation("file", "No file was submitted.")
	}

	maxSize := importMaxFileSize()
	if header.Size > maxSize {
		return apperr.NewValidation("file", fmt.Sprintf("File exceeds the %d byte limit.", maxSize))
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return err
	}

	if int64(len(data)) > maxSize {
		return apperr.NewValidation("file", fmt.Sprintf("File exceeds the %d byte limit.", maxSize))
	}

	result, err := s.Imports.Import(c.Request().Context(), principalOf(c), header.Filename, data)
	if err != nil {
		return err
	}

	return c.JSON(result.StatusCode(), result)
}
