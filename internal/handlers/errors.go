package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/services"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
)

// respondError maps domain errors onto HTTP statuses in one place so
// every handler reports them the same way.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errs.IsValidation(err):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Resource not found")
	case errors.Is(err, errs.ErrConflict):
		return utils.ErrorResponse(c, fiber.StatusConflict, "Incident was already claimed or has moved on")
	case errors.Is(err, errs.ErrForbidden):
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, services.ErrInvalidCredentials):
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password")
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error")
	}
}
