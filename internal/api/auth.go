package api

import (
	"net/http"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,oneof=Admin Telecaller"`
}

type adminRegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type userView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func toUserView(acc *account.Account) userView {
	return userView{ID: acc.ID, Email: acc.Email, Role: acc.Role.Name}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	result, err := s.Accounts.Login(c.Request().Context(), normalizeEmail(req.Email), req.Password)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Login successful", map[string]any{
		"access":  result.Tokens.Access,
		"refresh": result.Tokens.Refresh,
		"user":    toUserView(result.Account),
	})
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	access, err := s.Accounts.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Token refreshed", map[string]string{"access": access})
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	acc, err := s.Accounts.Register(c.Request().Context(), normalizeEmail(req.Email), req.Password, req.Role)
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "User registered successfully", toUserView(acc))
}

// registerAdmin is open until the first admin exists; afterwards only an
// admin may create another one.
func (s *Server) registerAdmin(c echo.Context) error {
	ctx := c.Request().Context()

	exists, err := s.Accounts.AdminExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		principal, _, _, err := s.resolve(c)
		if err != nil {
			return err
		}

		if !principal.Policy.IsAdmin() {
			return apperr.Forbidden("Only admin can register another admin.")
		}
	}

	var req adminRegisterRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	acc, err := s.Accounts.Register(ctx, normalizeEmail(req.Email), req.Password, account.RoleAdmin)
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, "Admin registered successfully", toUserView(acc))
}

func (s *Server) changePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	err := s.Accounts.ChangePassword(c.Request().Context(), principalOf(c).Account, req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, "Password changed successfully", nil)
}

func (s *Server) logout(c echo.Context) error {
	token, _ := c.Get(tokenKey).(string)
	claims, _ := c.Get(claimsKey).(*account.Claims)

	if claims != nil {
		err := s.Accounts.Logout(c.Request().Context(), token, claims)
		if err != nil {
			return err
		}
	}

	return respond(c, http.StatusOK, "Logged out successfully", nil)
}
