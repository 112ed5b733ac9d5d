package api

import (
	"net/http"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"github.com/labstack/echo/v4"
)

type telecallerRequest struct {
	Name     string `json:"name"      validate:"required,max=255"`
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required"`
	Contact  string `json:"contact"   validate:"max=20"`
	Address  string `json:"address"`
	BranchID *uint  `json:"branch_id"`
	JobType  string `json:"job_type"  validate:"omitempty,oneof=fulltime parttime"`
	Target   int    `json:"target"    validate:"gte=0"`
}

type telecallerPatch struct {
	Name     *string `json:"name"      validate:"omitempty,max=255"`
	Email    *string `json:"email"     validate:"omitempty,email"`
	Contact  *string `json:"contact"   validate:"omitempty,max=20"`
	Address  *string `json:"address"`
	BranchID *uint   `json:"branch_id"`
	JobType  *string `json:"job_type"  validate:"omitempty,oneof=fulltime parttime"`
	Status   *string `json:"status"    validate:"omitempty,oneof=active deactivated"`
	Target   *int    `json:"target"    validate:"omitempty,gte=0"`
}

func (p telecallerPatch) updates() map[string]any {
	updates := map[string]any{}

	for column, value := range map[string]*string{
		"name":     p.Name,
		"email":    p.Email,
		"contact":  p.Contact,
		"address":  p.Address,
		"job_type": p.JobType,
		"status":   p.Status,
	} {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	if p.BranchID != nil {
		updates["branch_id"] = *p.BranchID
	}

	if p.Target != nil {
		updates["target"] = *p.Target
	}

	return updates
}

func telecallerView(t *telecaller.Telecaller) telecaller.View {
	return t.View()
}

func (s *Server) listTelecallers(c echo.Context) error {
	params := newQueryParams(c)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Telecallers.List(c.Request().Context(), telecaller.ListFilter{
		Search:     params.string("search"),
		BranchName: params.string("branch_name"),
		Status:     params.string("status"),
	}, page)
	if err != nil {
		return err
	}

	return respondList(c, "Telecallers fetched successfully", result, telecallerView)
}

func (s *Server) createTelecaller(c echo.Context) error {
	var req telecallerRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	created, err := s.Telecallers.Create(c.Request().Context(), telecaller.CreateInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Contact:   req.Contact,
		Address:   req.Address,
		BranchID:  req.BranchID,
		JobType:   req.JobType,
		Target:    req.Target,
		CreatedBy: principalOf(c).Account.Email,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "Telecaller created successfully", created.View())
}

func (s *Server) myTelecaller(c echo.Context) error {
	telecallerID, ok := policyOf(c).TelecallerID()
	if !ok {
		return apperr.NotFound("telecaller profile")
	}

	found, err := s.Telecallers.Get(c.Request().Context(), telecallerID)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Telecaller fetched successfully", found.View())
}

func (s *Server) getTelecaller(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	found, err := s.Telecallers.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Telecaller fetched successfully", found.View())
}

func (s *Server) updateTelecaller(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req telecallerPatch
	if err := s.bind(c, &req); err != nil {
		return err
	}

	updated, err := s.Telecallers.Update(c.Request().Context(), id, req.updates())
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Telecaller updated successfully", updated.View())
}

func (s *Server) deleteTelecaller(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	err = s.Telecallers.Deactivate(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Telecaller deactivated successfully", nil)
}
