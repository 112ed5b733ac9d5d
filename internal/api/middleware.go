package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/access"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	principalKey = "principal"
	tokenKey     = "token"
	claimsKey    = "claims"

	authTimeout = 5 * time.Second
)

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}

			if v.Error != nil {
				fields = append(fields, zap.String("error", v.Error.Error()))
			}

			logging.Logger.Info("request", fields...)

			return nil
		},
	})
}

// metrics records request latency by route template and final status.
func metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = toResponse(err).Code
			}

			prometheus.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// resolve turns the bearer token of the request into a principal.
func (s *Server) resolve(c echo.Context) (access.Principal, string, *account.Claims, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)

	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return access.Principal{}, "", nil, apperr.ErrUnauthorized
	}

	token := parts[1]

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	acc, claims, err := s.Accounts.Authenticate(ctx, token)
	if err != nil {
		return access.Principal{}, "", nil, err
	}

	var telecallerID *uint

	linked, err := s.Telecallers.ForAccount(ctx, acc.ID)
	if err != nil {
		return access.Principal{}, "", nil, err
	}

	if linked != nil {
		telecallerID = &linked.ID
	}

	return access.Principal{Account: acc, Policy: access.ForAccount(acc, telecallerID)}, token, claims, nil
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, token, claims, err := s.resolve(c)
		if err != nil {
			return err
		}

		c.Set(principalKey, principal)
		c.Set(tokenKey, token)
		c.Set(claimsKey, claims)

		return next(c)
	}
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !principalOf(c).Policy.IsAdmin() {
			return apperr.Forbidden("You do not have permission to perform this action.")
		}

		return next(c)
	}
}

func principalOf(c echo.Context) access.Principal {
	principal, _ := c.Get(principalKey).(access.Principal)
	if principal.Policy == nil {
		principal.Policy = access.TelecallerPolicy{}
	}

	return principal
}

func policyOf(c echo.Context) access.Policy {
	return principalOf(c).Policy
}
