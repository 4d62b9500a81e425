package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/middleware"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/services"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
)

type VolunteerHandler struct {
	volunteers *services.VolunteerService
}

func NewVolunteerHandler(volunteers *services.VolunteerService) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers}
}

// Me returns the caller's volunteer record, creating it on first visit.
func (h *VolunteerHandler) Me(c *fiber.Ctx) error {
	vol, err := h.volunteers.EnsureVolunteer(c.Context(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", models.ToVolunteerResponse(vol))
}

func (h *VolunteerHandler) SetAvailability(c *fiber.Ctx) error {
	var req models.UpdateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	vol, err := h.volunteers.SetAvailability(c.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Availability updated", models.ToVolunteerResponse(vol))
}

func (h *VolunteerHandler) UpdateLocation(c *fiber.Ctx) error {
	var req models.UpdateVolunteerLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.volunteers.UpdateLocation(c.Context(), middleware.CurrentUser(c), &req); err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Location updated", nil)
}

func (h *VolunteerHandler) ListAvailable(c *fiber.Ctx) error {
	vols, err := h.volunteers.ListAvailable(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	responses := make([]models.VolunteerResponse, len(vols))
	for i := range vols {
		responses[i] = models.ToVolunteerResponse(&vols[i])
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", responses)
}
