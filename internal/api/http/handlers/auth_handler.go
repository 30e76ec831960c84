package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-portal/internal/api/dto"
	"github.com/spec-kit/maintenance-portal/internal/service"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

// AuthHandler serves login and the account picker.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.service.Login(c.UserContext(), req.ID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: res.Token,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
		Account:     dto.AccountResponse{ID: res.Account.ID, Role: res.Account.Role},
	}})
}

// ListUsers GET /users. Exposes id and role only.
func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	accounts, err := h.service.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, dto.AccountResponse{ID: a.ID, Role: a.Role})
	}
	return c.JSON(fiber.Map{"data": out})
}
