package api

import (
	"net/http"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"github.com/labstack/echo/v4"
)

type catalogRequest struct {
	Name        *string `json:"name"        validate:"omitempty,max=255"`
	Title       *string `json:"title"       validate:"omitempty,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// catalogFields describes how one reference table maps onto catalogRequest.
type catalogFields[T catalog.Entry] struct {
	Label          string
	NameKey        string
	HasDescription bool
	Build          func(name, description string, active bool) *T
}

var courseFields = catalogFields[catalog.Course]{
	Label:   "Course",
	NameKey: "name",
	Build: func(name, _ string, active bool) *catalog.Course {
		return &catalog.Course{Name: name, IsActive: active}
	},
}

var serviceFields = catalogFields[catalog.Service]{
	Label:   "Service",
	NameKey: "name",
	Build: func(name, _ string, active bool) *catalog.Service {
		return &catalog.Service{Name: name, IsActive: active}
	},
}

var mettadFields = catalogFields[catalog.Mettad]{
	Label:   "Mettad",
	NameKey: "name",
	Build: func(name, _ string, active bool) *catalog.Mettad {
		return &catalog.Mettad{Name: name, IsActive: active}
	},
}

var checklistFields = catalogFields[catalog.Checklist]{
	Label:          "Checklist",
	NameKey:        "title",
	HasDescription: true,
	Build: func(title, description string, active bool) *catalog.Checklist {
		return &catalog.Checklist{Title: title, Description: description, IsActive: active}
	},
}

func (f catalogFields[T]) name(req catalogRequest) *string {
	if f.NameKey == "title" {
		return req.Title
	}

	return req.Name
}

func (f catalogFields[T]) updates(req catalogRequest, validation *apperr.ValidationError) map[string]any {
	updates := map[string]any{}

	if name := f.name(req); name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			validation.Add(f.NameKey, "This field may not be blank.")
		}

		updates[f.NameKey] = trimmed
	}

	if f.HasDescription && req.Description != nil {
		updates["description"] = *req.Description
	}

	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	return updates
}

type catalogHandler[T catalog.Entry] struct {
	store  *catalog.Store[T]
	fields catalogFields[T]
	bind   func(c echo.Context, req any) error
}

// registerCatalog mounts CRUD routes for one reference table. Reads are open
// to every authenticated caller, writes to admins.
func registerCatalog[T catalog.Entry](
	authed, admin *echo.Group,
	prefix string,
	store *catalog.Store[T],
	fields catalogFields[T],
	withActive bool,
	bind func(c echo.Context, req any) error,
) {
	h := catalogHandler[T]{store: store, fields: fields, bind: bind}

	authed.GET(prefix+"/", h.list(false))
	if withActive {
		authed.GET(prefix+"/active/", h.list(true))
	}

	authed.GET(prefix+"/:id/", h.get)
	admin.POST(prefix+"/", h.create)
	admin.PATCH(prefix+"/:id/", h.update)
	admin.DELETE(prefix+"/:id/", h.delete)
}

func (h catalogHandler[T]) list(activeOnly bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := newQueryParams(c)
		page := params.page()

		if err := params.err(); err != nil {
			return err
		}

		result, err := h.store.List(c.Request().Context(), params.string("search"), activeOnly, page)
		if err != nil {
			return err
		}

		return respondList(c, h.fields.Label+"s fetched successfully", result, identity[T])
	}
}

func (h catalogHandler[T]) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	entry, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, h.fields.Label+" fetched successfully", entry)
}

func (h catalogHandler[T]) create(c echo.Context) error {
	var req catalogRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	name := ""
	if value := h.fields.name(req); value != nil {
		name = strings.TrimSpace(*value)
	}

	if name == "" {
		return apperr.NewValidation(h.fields.NameKey, "This field is required.")
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	entry := h.fields.Build(name, description, active)

	err := h.store.Create(c.Request().Context(), entry)
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, h.fields.Label+" created successfully", entry)
}

func (h catalogHandler[T]) update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req catalogRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	validation := &apperr.ValidationError{}
	updates := h.fields.updates(req, validation)

	if err := validation.OrNil(); err != nil {
		return err
	}

	entry, err := h.store.Update(c.Request().Context(), id, updates)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, h.fields.Label+" updated successfully", entry)
}

func (h catalogHandler[T]) delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	err = h.store.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, h.fields.Label+" deleted successfully", nil)
}
