package api

import (
	"net/http"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"github.com/labstack/echo/v4"
)

type branchRequest struct {
	Name    string `json:"branch_name" validate:"required,max=255"`
	Address string `json:"address"`
	City    string `json:"city"        validate:"max=100"`
	State   string `json:"state"       validate:"max=100"`
	Country string `json:"country"     validate:"max=100"`
	Email   string `json:"email"       validate:"required,email"`
	Contact string `json:"contact"     validate:"max=20"`
}

type branchPatch struct {
	Name    *string `json:"branch_name" validate:"omitempty,max=255"`
	Address *string `json:"address"`
	City    *string `json:"city"        validate:"omitempty,max=100"`
	State   *string `json:"state"       validate:"omitempty,max=100"`
	Country *string `json:"country"     validate:"omitempty,max=100"`
	Email   *string `json:"email"       validate:"omitempty,email"`
	Contact *string `json:"contact"     validate:"omitempty,max=20"`
}

func (p branchPatch) updates() map[string]any {
	updates := map[string]any{}

	for column, value := range map[string]*string{
		"branch_name": p.Name,
		"address":     p.Address,
		"city":        p.City,
		"state":       p.State,
		"country":     p.Country,
		"email":       p.Email,
		"contact":     p.Contact,
	} {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	return updates
}

func (s *Server) listBranches(c echo.Context) error {
	params := newQueryParams(c)
	page := params.page()

	if err := params.err(); err != nil {
		return err
	}

	result, err := s.Branches.List(c.Request().Context(), params.string("search"), page)
	if err != nil {
		return err
	}

	return respondList(c, "Branches fetched successfully", result, identity[branch.Branch])
}

func (s *Server) countBranches(c echo.Context) error {
	count, err := s.Branches.Count(c.Request().Context())
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Branch count fetched successfully", map[string]int64{"total_branches": count})
}

func (s *Server) getBranch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	found, err := s.Branches.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Branch fetched successfully", found)
}

func (s *Server) createBranch(c echo.Context) error {
	var req branchRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	created := &branch.Branch{
		Name:    strings.TrimSpace(req.Name),
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Country: req.Country,
		Email:   req.Email,
		Contact: req.Contact,
	}

	err := s.Branches.Create(c.Request().Context(), created)
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "Branch created successfully", created)
}

func (s *Server) updateBranch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req branchPatch
	if err := s.bind(c, &req); err != nil {
		return err
	}

	updated, err := s.Branches.Update(c.Request().Context(), id, req.updates())
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Branch updated successfully", updated)
}

func (s *Server) deleteBranch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	err = s.Branches.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Branch deleted successfully", nil)
}
