package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/middleware"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/services"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	resp, err := h.auth.Register(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, "Account created", resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	resp, err := h.auth.Login(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Logged in", resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := middleware.CurrentToken(c)
	if token == "" {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required")
	}
	if err := h.auth.Logout(c.Context(), token); err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required")
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", models.ToUserResponse(user))
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required")
	}
	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	updated, err := h.auth.UpdateProfile(c.Context(), user.ID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Profile updated", models.ToUserResponse(updated))
}
