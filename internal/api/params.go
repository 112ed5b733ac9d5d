package api

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// queryParams reads query string values and collects every malformed one
// into a single validation error.
type queryParams struct {
	c          echo.Context
	validation *apperr.ValidationError
}

func newQueryParams(c echo.Context) *queryParams {
	return &queryParams{c: c, validation: &apperr.ValidationError{}}
}

func (p *queryParams) string(name string) string {
	return strings.TrimSpace(p.c.QueryParam(name))
}

func (p *queryParams) int(name string, fallback int) int {
	value := p.string(name)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.validation.Add(name, "A valid integer is required.")
		return fallback
	}

	return parsed
}

func (p *queryParams) bool(name string) bool {
	switch strings.ToLower(p.string(name)) {
	case "true", "1", "yes":
		return true
	}

	return false
}

func (p *queryParams) date(name string) *time.Time {
	parsed, err := query.ParseOptionalDate(p.string(name))
	if err != nil {
		p.validation.Add(name, "Invalid date format. Use YYYY-MM-DD.")
		return nil
	}

	return parsed
}

// day is the single-day range selected by a date parameter.
func (p *queryParams) day(name string) *query.DateRange {
	parsed := p.date(name)
	if parsed == nil {
		return nil
	}

	day := query.Day(*parsed)

	return &day
}

// dates is the inclusive range between two date parameters.
func (p *queryParams) dates(startName, endName string) *query.DateRange {
	return query.RangeFromDates(p.date(startName), p.date(endName))
}

func (p *queryParams) page() query.Page {
	return query.NewPage(p.int("page", 1), p.int("limit", query.DefaultLimit))
}

func (p *queryParams) err() error {
	return p.validation.OrNil()
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NewValidation("id", "A valid integer is required.")
	}

	return uint(id), nil
}

// bodyDate parses an optional YYYY-MM-DD body field.
func bodyDate(value *string, field string, validation *apperr.ValidationError) *time.Time {
	if value == nil {
		return nil
	}

	parsed, err := query.ParseOptionalDate(*value)
	if err != nil {
		validation.Add(field, "Date has wrong format. Use YYYY-MM-DD.")
	}

	return parsed
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return validate
}

// bind decodes the body into req and runs its validate tags.
func (s *Server) bind(c echo.Context, req any) error {
	err := c.Bind(req)
	if err != nil {
		return err
	}

	err = s.validate.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	validation := &apperr.ValidationError{}
	for _, fieldErr := range fieldErrors {
		validation.Add(fieldErr.Field(), fieldMessage(fieldErr))
	}

	return validation
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return "Value must be one of: " + fieldErr.Param() + "."
	case "min":
		return "Ensure this field has at least " + fieldErr.Param() + " characters."
	case "max":
		return "Ensure this field has no more than " + fieldErr.Param() + " characters."
	case "gte":
		return "Ensure this value is greater than or equal to " + fieldErr.Param() + "."
	}

	return "Invalid value."
}
