package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/api"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/events"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadimport"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/reminder"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/report"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/test"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code       int               `json:"code"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Errors     map[string]string `json:"errors"`
	Pagination *struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
	} `json:"pagination"`
}

func newServer(t *testing.T) *api.Server {
	t.Helper()

	db := test.NewSQLite(t,
		&account.Role{}, &account.Account{},
		&branch.Branch{},
		&telecaller.Telecaller{},
		&catalog.Course{}, &catalog.Service{}, &catalog.Mettad{}, &catalog.Checklist{},
		&enquiry.Enquiry{},
		&callregister.CallRegister{},
	)

	accounts := account.NewService(db, account.NewTokenIssuer("secret", time.Hour, 24*time.Hour), nil)
	require.NoError(t, accounts.AccountRepository.SeedRoles(context.Background()))

	return api.NewServer(&api.Server{
		Accounts:    accounts,
		Telecallers: telecaller.NewService(db, accounts),
		Branches:    branch.NewService(db),
		Catalog:     catalog.NewService(db),
		Enquiries:   enquiry.NewService(db),
		Calls:       callregister.NewService(db, events.Nop{}),
		Reports:     report.NewService(db),
		Reminders:   reminder.NewService(db),
		Imports:     leadimport.NewService(db, nil, events.Nop{}),
	})
}

func do(t *testing.T, server *api.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.Echo.ServeHTTP(rec, req)

	var response envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response), rec.Body.String())
	}

	return rec.Code, response
}

func login(t *testing.T, server *api.Server, email, password string) string {
	t.Helper()

	status, response := do(t, server, http.MethodPost, "/api/v1/auth/login/", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status, response.Message)

	var tokens struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &tokens))

	return tokens.Access
}

// bootstrap creates the first admin and one telecaller and returns their
// access tokens.
func bootstrap(t *testing.T, server *api.Server) (string, string) {
	t.Helper()

	status, _ := do(t, server, http.MethodPost, "/api/v1/auth/admin/register/", "", map[string]string{
		"email": "admin@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)

	adminToken := login(t, server, "admin@example.com", "password123")

	status, response := do(t, server, http.MethodPost, "/api/v1/telecallers/", adminToken, map[string]any{
		"name": "Anu", "email": "anu@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, response.Message)

	return adminToken, login(t, server, "anu@example.com", "password123")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"healthy":true}`, rec.Body.String())
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	status, response := do(t, server, http.MethodGet, "/api/v1/enquiries/", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, http.StatusUnauthorized, response.Code)
	require.Equal(t, "Authentication credentials were not provided.", response.Message)

	status, response = do(t, server, http.MethodGet, "/api/v1/enquiries/", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Given token not valid for any token type.", response.Message)
}

func TestAdminBootstrapClosesAfterFirstAdmin(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	adminToken, telecallerToken := bootstrap(t, server)

	second := map[string]string{"email": "second@example.com", "password": "password123"}

	status, _ := do(t, server, http.MethodPost, "/api/v1/auth/admin/register/", "", second)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, server, http.MethodPost, "/api/v1/auth/admin/register/", telecallerToken, second)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, server, http.MethodPost, "/api/v1/auth/admin/register/", adminToken, second)
	require.Equal(t, http.StatusCreated, status)
}

func TestRoleGate(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	adminToken, telecallerToken := bootstrap(t, server)

	branch := map[string]string{"branch_name": "Kochi", "email": "kochi@example.com"}

	status, response := do(t, server, http.MethodPost, "/api/v1/branches/", telecallerToken, branch)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "You do not have permission to perform this action.", response.Message)

	status, _ = do(t, server, http.MethodGet, "/api/v1/telecallers/me/", telecallerToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, server, http.MethodGet, "/api/v1/telecallers/me/", adminToken, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, server, http.MethodGet, "/api/v1/jobs-view/", telecallerToken, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestEnquiryFlowAndEnvelopes(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	_, telecallerToken := bootstrap(t, server)

	status, response := do(t, server, http.MethodPost, "/api/v1/enquiries/", telecallerToken, map[string]any{
		"candidate_name": "Meera",
		"phone":          "9876543210",
	})
	require.Equal(t, http.StatusCreated, status, response.Message)
	require.Equal(t, "Enquiry created successfully", response.Message)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &created))

	status, response = do(t, server, http.MethodGet, "/api/v1/enquiries/?page=1&limit=5", telecallerToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, response.Pagination)
	require.EqualValues(t, 1, response.Pagination.Total)
	require.Equal(t, 5, response.Pagination.Limit)

	status, response = do(t, server, http.MethodPost, "/api/v1/calls/", telecallerToken, map[string]any{
		"enquiry_id":   created.ID,
		"call_status":  callregister.StatusContacted,
		"call_outcome": enquiry.OutcomeNotInterested,
	})
	require.Equal(t, http.StatusCreated, status, response.Message)

	status, response = do(t, server, http.MethodGet, "/api/v1/enquiries/closed/", telecallerToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Zero(t, response.Pagination.Total)

	status, response = do(t, server, http.MethodGet, "/api/v1/calls/stats/", telecallerToken, nil)
	require.Equal(t, http.StatusOK, status)

	var stats callregister.Stats
	require.NoError(t, json.Unmarshal(response.Data, &stats))
	require.EqualValues(t, 1, stats.TotalCalls)
	require.EqualValues(t, 1, stats.NotInterested)
}

func TestMalformedInput(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	adminToken, telecallerToken := bootstrap(t, server)

	status, response := do(t, server, http.MethodGet, "/api/v1/enquiries/?start_date=17-10-2026", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Validation failed", response.Message)
	require.Equal(t, "Invalid date format. Use YYYY-MM-DD.", response.Errors["start_date"])

	status, response = do(t, server, http.MethodGet, "/api/v1/calls/outcome/Maybe/", telecallerToken, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, response.Errors, "call_outcome")

	status, _ = do(t, server, http.MethodGet, "/api/v1/jobs-view/?status=done", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, server, http.MethodGet, "/api/v1/enquiries/abc/", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, server, http.MethodGet, "/api/v1/enquiries/404/", adminToken, nil)
	require.Equal(t, http.StatusNotFound, status)
}
