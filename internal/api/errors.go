package api

import (
	"errors"
	"fmt"
	"net/http"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var authErrors = []error{
	apperr.ErrUnauthorized,
	account.ErrInvalidToken,
	account.ErrWrongTokenType,
	account.ErrRevokedToken,
	account.ErrInactiveAccount,
	account.ErrInvalidCredentials,
}

// toResponse maps an error onto its status code and error envelope.
func toResponse(err error) ErrorResponse {
	var validation *apperr.ValidationError
	if errors.As(err, &validation) {
		return ErrorResponse{Code: http.StatusBadRequest, Message: "Validation failed", Errors: validation.Fields}
	}

	if errors.Is(err, apperr.ErrInvalidDate) || errors.Is(err, apperr.ErrInvalidNumber) {
		return ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Validation failed",
			Errors:  map[string]string{apperr.NonFieldErrors: err.Error()},
		}
	}

	if errors.Is(err, apperr.ErrForbidden) {
		return ErrorResponse{Code: http.StatusForbidden, Message: apperr.Message(err)}
	}

	for _, authErr := range authErrors {
		if errors.Is(err, authErr) {
			return ErrorResponse{Code: http.StatusUnauthorized, Message: authMessage(authErr)}
		}
	}

	if errors.Is(err, apperr.ErrNotFound) {
		return ErrorResponse{Code: http.StatusNotFound, Message: "Not found: " + apperr.Message(err)}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorResponse{Code: http.StatusNotFound, Message: "Not found"}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return ErrorResponse{Code: httpErr.Code, Message: fmt.Sprint(httpErr.Message)}
	}

	return ErrorResponse{Code: http.StatusInternalServerError, Message: "Internal server error"}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, account.ErrInactiveAccount):
		return "User account is disabled."
	case errors.Is(err, account.ErrRevokedToken):
		return "Token has been revoked."
	case errors.Is(err, apperr.ErrUnauthorized):
		return "Authentication credentials were not provided."
	}

	return "Given token not valid for any token type."
}

// handleError is the echo HTTPErrorHandler for every route.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	response := toResponse(err)

	if response.Code >= http.StatusInternalServerError {
		logging.Logger.Error("[HTTP] Failed to serve request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("error", err.Error()),
			zap.Bool("is_context_error", c.Request().Context().Err() != nil),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(response.Code)
	} else {
		writeErr = c.JSON(response.Code, response)
	}

	if writeErr != nil {
		logging.Logger.Error("[HTTP] Failed to write error response", zap.String("error", writeErr.Error()))
	}
}
