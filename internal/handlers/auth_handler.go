package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type authService interface {
	Register(appID string, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(appID string, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(appID string, req *dto.RefreshRequest) (*dto.AuthResponse, error)
	Logout(appID string, req *dto.LogoutRequest) error
	DeleteAccount(appID string, userID uuid.UUID, password string) error
}

type AuthHandler struct {
	auth      authService
	bootstrap []apps.SessionBootstrapper
}

// NewAuthHandler builds the auth routes. Every bootstrapper is asked for the
// user's session after a successful sign-in; the first non-nil one is sent.
func NewAuthHandler(auth authService, bootstrap ...apps.SessionBootstrapper) *AuthHandler {
	return &AuthHandler{auth: auth, bootstrap: bootstrap}
}

// withSession attaches the saved session to resp. A failing bootstrapper
// never fails the sign-in; the client fetches the state itself.
func (h *AuthHandler) withSession(ctx context.Context, resp *dto.AuthResponse) *dto.AuthResponse {
	for _, b := range h.bootstrap {
		session, err := b.BootstrapSession(ctx, resp.AppID, resp.User.ID)
		if err != nil {
			slog.Warn("session bootstrap failed", "app_id", resp.AppID, "user_id", resp.User.ID.String(), "error", err)
			continue
		}
		if session != nil {
			resp.Session = session
			break
		}
	}
	return resp
}

func authError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.auth.Register(tenant.GetAppID(c), &req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return authError(c, fiber.StatusConflict, err.Error())
		}
		return authError(c, fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(h.withSession(c.UserContext(), resp))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.auth.Login(tenant.GetAppID(c), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return authError(c, fiber.StatusUnauthorized, err.Error())
		}
		return authError(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return c.JSON(h.withSession(c.UserContext(), resp))
}

// Refresh handles POST /api/auth/refresh. Only tokens are returned; the
// client already holds its session.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.auth.Refresh(tenant.GetAppID(c), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return authError(c, fiber.StatusUnauthorized, err.Error())
		}
		return authError(c, fiber.StatusInternalServerError, "Internal server error")
	}

	return c.JSON(resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.auth.Logout(tenant.GetAppID(c), &req); err != nil {
		return authError(c, fiber.StatusInternalServerError, "Failed to logout")
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// DeleteAccount handles DELETE /api/auth/account. The dream session and
// snapshot go with the account through the deletion hooks.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := tenant.GetUserID(c)
	if err != nil {
		return authError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	err = h.auth.DeleteAccount(tenant.GetAppID(c), userID, req.Password)
	switch {
	case errors.Is(err, services.ErrPasswordRequired):
		return authError(c, fiber.StatusBadRequest, "Password is required")
	case errors.Is(err, services.ErrInvalidCredentials):
		return authError(c, fiber.StatusUnauthorized, "Incorrect password. Please try again.")
	case errors.Is(err, services.ErrUserNotFound):
		return authError(c, fiber.StatusNotFound, "User not found")
	case err != nil:
		return authError(c, fiber.StatusInternalServerError, "Failed to delete account")
	}

	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
