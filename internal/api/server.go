// Package api serves the CRM over HTTP/JSON with echo.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/healthchecker"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadimport"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/reminder"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/report"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const defaultImportMaxFileSize = 10 << 20

type Server struct {
	Echo *echo.Echo

	Accounts    *account.AccountService
	Telecallers *telecaller.TelecallerService
	Branches    *branch.BranchService
	Catalog     *catalog.CatalogService
	Enquiries   *enquiry.EnquiryService
	Calls       *callregister.CallRegisterService
	Reports     *report.ReportService
	Reminders   *reminder.ReminderService
	Imports     *leadimport.ImportService
	Health      *healthchecker.Healthchecker

	validate *validator.Validate
}

// NewServer builds the echo instance and registers every route. Services
// left nil are not expected to be reached by the mounted routes.
func NewServer(server *Server) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}
	e.HTTPErrorHandler = handleError

	server.Echo = e
	server.validate = newValidator()

	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(metrics())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins(),
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	if config.Conf.HTTPRequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: time.Duration(config.Conf.HTTPRequestTimeout) * time.Second,
		}))
	}

	server.routes()

	return server
}

func allowedOrigins() []string {
	var origins []string

	for _, origin := range strings.Split(config.Conf.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	if len(origins) == 0 {
		return []string{"*"}
	}

	return origins
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.health)

	v1 := s.Echo.Group("/api/v1")

	v1.POST("/auth/login/", s.login)
	v1.POST("/auth/refresh/", s.refresh)
	v1.POST("/auth/admin/register/", s.registerAdmin)

	authed := v1.Group("", s.authenticate)
	admin := v1.Group("", s.authenticate, requireAdmin)

	admin.POST("/auth/register/", s.register)
	authed.POST("/auth/change-password/", s.changePassword)
	authed.POST("/auth/logout/", s.logout)

	authed.GET("/branches/", s.listBranches)
	authed.GET("/branches/count/", s.countBranches)
	authed.GET("/branches/:id/", s.getBranch)
	admin.POST("/branches/", s.createBranch)
	admin.PATCH("/branches/:id/", s.updateBranch)
	admin.DELETE("/branches/:id/", s.deleteBranch)

	authed.GET("/telecallers/me/", s.myTelecaller)
	admin.GET("/telecallers/", s.listTelecallers)
	admin.POST("/telecallers/", s.createTelecaller)
	admin.GET("/telecallers/:id/", s.getTelecaller)
	admin.PATCH("/telecallers/:id/", s.updateTelecaller)
	admin.DELETE("/telecallers/:id/", s.deleteTelecaller)

	registerCatalog(authed, admin, "/courses", s.Catalog.Courses, courseFields, true, s.bind)
	registerCatalog(authed, admin, "/services", s.Catalog.Services, serviceFields, true, s.bind)
	registerCatalog(authed, admin, "/mettads", s.Catalog.Mettads, mettadFields, false, s.bind)
	registerCatalog(authed, admin, "/checklists", s.Catalog.Checklists, checklistFields, false, s.bind)

	authed.GET("/enquiries/", s.listEnquiries)
	authed.POST("/enquiries/", s.createEnquiry)
	authed.GET("/enquiries/active/", s.listActiveEnquiries)
	authed.GET("/enquiries/closed/", s.listClosedEnquiries)
	authed.GET("/enquiries/summary/", s.enquirySummary)
	authed.GET("/enquiries/statistics/", s.enquiryStatistics)
	admin.POST("/enquiries/import/", s.importEnquiries)
	authed.GET("/enquiries/:id/", s.getEnquiry)
	authed.PATCH("/enquiries/:id/", s.updateEnquiry)
	authed.DELETE("/enquiries/:id/", s.deleteEnquiry)
	authed.GET("/enquiries/:id/call-history/", s.callHistory)

	authed.GET("/calls/", s.listCalls)
	authed.POST("/calls/", s.registerCall)
	authed.GET("/calls/stats/", s.callStats)
	authed.GET("/calls/not-answered/", s.listNotAnswered)
	authed.GET("/calls/follow-ups/", s.listFollowUps)
	authed.GET("/calls/walk-in-list/", s.listWalkIns)
	authed.GET("/calls/outcome/:outcome/", s.listByOutcome)
	authed.GET("/calls/:id/", s.getCall)
	authed.PATCH("/calls/:id/", s.updateCall)

	authed.GET("/dashboard/", s.dashboard)
	authed.GET("/reports/telecaller-calls/", s.telecallerCalls)
	authed.GET("/jobs-summary/", s.jobsSummary)
	authed.GET("/jobs-view/", s.jobsView)
	authed.GET("/reminders/", s.reminders)
}

func (s *Server) health(c echo.Context) error {
	if s.Health == nil {
		return c.JSON(http.StatusOK, healthchecker.Status{Healthy: true})
	}

	status := s.Health.Status()
	if !status.Healthy {
		return c.JSON(http.StatusServiceUnavailable, status)
	}

	return c.JSON(http.StatusOK, status)
}

// Run serves HTTP until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + config.Conf.HTTPPort,
		Handler:           s.Echo,
		ReadTimeout:       time.Duration(config.Conf.HTTPReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(config.Conf.HTTPReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(config.Conf.HTTPWriteTimeout) * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(config.Conf.HTTPShutdownTimeout)*time.Second,
		)
		defer cancel()

		err := s.Echo.Shutdown(shutdownCtx)
		if err != nil {
			logging.Logger.Error("failed to shutdown http server", zap.String("error", err.Error()))
		}
	}()

	logging.Logger.Info("start http server on port " + config.Conf.HTTPPort)

	err := s.Echo.StartServer(server)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func importMaxFileSize() int64 {
	if config.Conf.ImportMaxFileSize > 0 {
		return config.Conf.ImportMaxFileSize
	}

	return defaultImportMaxFileSize
}
