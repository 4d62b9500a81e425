package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/middleware"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/services"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
)

type IncidentHandler struct {
	incidents *services.IncidentService
	media     *services.MediaService
}

func NewIncidentHandler(incidents *services.IncidentService, media *services.MediaService) *IncidentHandler {
	return &IncidentHandler{incidents: incidents, media: media}
}

// Report accepts a new incident from any caller, authenticated or not.
// Roadside reporting must never hide behind a login wall.
func (h *IncidentHandler) Report(c *fiber.Ctx) error {
	var req models.ReportIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var reporterID *uuid.UUID
	if user := middleware.CurrentUser(c); user != nil {
		reporterID = &user.ID
	}

	outcome, err := h.incidents.Report(c.Context(), reporterID, &req)
	if err != nil {
		return respondError(c, err)
	}
	if outcome.Queued != nil {
		return utils.SuccessResponse(c, fiber.StatusAccepted, "Incident queued for submission", outcome.Queued)
	}
	resp := models.ToIncidentResponse(outcome.Incident)
	return utils.SuccessResponse(c, fiber.StatusCreated, "Incident reported", resp)
}

func (h *IncidentHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	incident, err := h.incidents.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "", resp)
}

func (h *IncidentHandler) List(c *fiber.Ctx) error {
	filter := &models.IncidentFilter{
		Page:  parseIntQuery(c, "page", 1),
		Limit: parseIntQuery(c, "limit", 20),
	}
	if v := c.Query("status"); v != "" {
		status := models.Status(v)
		filter.Status = &status
	}
	if v := c.Query("incident_type"); v != "" {
		t := models.IncidentType(v)
		filter.IncidentType = &t
	}
	if v := c.Query("severity"); v != "" {
		sev := models.Severity(v)
		filter.Severity = &sev
	}
	if v := c.Query("mine"); v == "true" {
		if user := middleware.CurrentUser(c); user != nil {
			filter.ReporterID = &user.ID
		}
	}

	incidents, total, err := h.incidents.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	responses := make([]models.IncidentResponse, len(incidents))
	for i := range incidents {
		responses[i] = models.ToIncidentResponse(&incidents[i])
	}
	return utils.PaginatedSuccessResponse(c, responses, filter.Page, filter.Limit, total)
}

// ListPending backs the responder dashboard feed.
func (h *IncidentHandler) ListPending(c *fiber.Ctx) error {
	incidents, err := h.incidents.ListPending(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	responses := make([]models.IncidentResponse, len(incidents))
	for i := range incidents {
		responses[i] = models.ToIncidentResponse(&incidents[i])
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", responses)
}

func (h *IncidentHandler) Accept(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	incident, err := h.incidents.Accept(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Incident accepted", resp)
}

func (h *IncidentHandler) OnTheWay(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	var req models.OnTheWayRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	incident, err := h.incidents.MarkOnTheWay(c.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Marked on the way", resp)
}

func (h *IncidentHandler) Arrived(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	incident, err := h.incidents.MarkArrived(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Marked arrived", resp)
}

func (h *IncidentHandler) Complete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	var req models.CompleteIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	incident, err := h.incidents.Complete(c.Context(), middleware.CurrentUser(c), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Incident completed", resp)
}

func (h *IncidentHandler) StartProgress(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	incident, err := h.incidents.StartProgress(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Incident in progress", resp)
}

func (h *IncidentHandler) Resolve(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	incident, err := h.incidents.Resolve(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Incident resolved", resp)
}

func (h *IncidentHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	incident, err := h.incidents.Cancel(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := models.ToIncidentResponse(incident)
	return utils.SuccessResponse(c, fiber.StatusOK, "Incident cancelled", resp)
}

func (h *IncidentHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.incidents.Stats(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", stats)
}

// AttachMedia accepts a multipart batch of evidence files. Each file
// succeeds or fails on its own; the response reports per-file outcomes.
func (h *IncidentHandler) AttachMedia(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "No files provided")
	}

	uploads := make([]services.MediaUpload, 0, len(files))
	opened := make([]interface{ Close() error }, 0, len(files))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Could not read uploaded file")
		}
		opened = append(opened, file)
		uploads = append(uploads, services.MediaUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      file,
		})
	}

	var uploadedBy *uuid.UUID
	if user := middleware.CurrentUser(c); user != nil {
		uploadedBy = &user.ID
	}

	results, err := h.media.Attach(c.Context(), uploadedBy, id, uploads)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Media processed", results)
}

func (h *IncidentHandler) ListMedia(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ID")
	}
	items, err := h.media.ListByIncident(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", items)
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
