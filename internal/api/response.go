package api

import (
	"net/http"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/query"
	"github.com/labstack/echo/v4"
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type ListResponse struct {
	Code       int              `json:"code"`
	Message    string           `json:"message"`
	Data       any              `json:"data"`
	Pagination query.Pagination `json:"pagination"`
}

type ErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Code: status, Message: message, Data: data})
}

// respondList writes one page, converting every item with view.
func respondList[T, V any](c echo.Context, message string, result query.Result[T], view func(*T) V) error {
	data := make([]V, 0, len(result.Items))
	for i := range result.Items {
		data = append(data, view(&result.Items[i]))
	}

	return c.JSON(http.StatusOK, ListResponse{
		Code:       http.StatusOK,
		Message:    message,
		Data:       data,
		Pagination: result.Page.Pagination(result.Total),
	})
}

func identity[T any](item *T) T {
	return *item
}
