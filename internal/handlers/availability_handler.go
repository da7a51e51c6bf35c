package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

type availabilityApplicationService interface {
	SetAvailability(ctx context.Context, actor models.Actor, days []services.DayEntryInput) ([]models.Availability, error)
	GetAvailability(ctx context.Context, coachID int64, date *time.Time) ([]models.Availability, *models.DaySchedule, error)
	ListAllAvailabilities(ctx context.Context, actor models.Actor, filter repository.AvailabilityListFilter) ([]models.Availability, int, error)
	ApproveAvailability(ctx context.Context, actor models.Actor, availabilityID int64, adminNotes *string) (*models.Availability, error)
	RejectAvailability(ctx context.Context, actor models.Actor, availabilityID int64, rejectionReason string, adminNotes *string) (*models.Availability, error)
}

type AvailabilityHandler struct {
	service availabilityApplicationService
}

func NewAvailabilityHandler(service *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

type slotEntryRequest struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	IsAvailable *bool   `json:"is_available"`
	MaxBookings int     `json:"max_bookings"`
	Price       float64 `json:"price"`
	SessionType string  `json:"session_type"`
}

type dayEntryRequest struct {
	DayOfWeek int                `json:"day_of_week"`
	IsActive  bool               `json:"is_active"`
	Slots     []slotEntryRequest `json:"slots"`
}

type setAvailabilityRequest struct {
	Days []dayEntryRequest `json:"days"`
}

type reviewAvailabilityRequest struct {
	AdminNotes      *string `json:"admin_notes"`
	RejectionReason string  `json:"rejection_reason"`
}

func (h *AvailabilityHandler) SetAvailability(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req setAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Days) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "days must not be empty"})
	}

	days := make([]services.DayEntryInput, 0, len(req.Days))
	for _, day := range req.Days {
		slots := make([]services.SlotEntryInput, 0, len(day.Slots))
		for _, slot := range day.Slots {
			// slots are bookable unless explicitly switched off
			isAvailable := true
			if slot.IsAvailable != nil {
				isAvailable = *slot.IsAvailable
			}
			slots = append(slots, services.SlotEntryInput{
				StartTime:   strings.TrimSpace(slot.StartTime),
				EndTime:     strings.TrimSpace(slot.EndTime),
				IsAvailable: isAvailable,
				MaxBookings: slot.MaxBookings,
				Price:       slot.Price,
				SessionType: strings.TrimSpace(slot.SessionType),
			})
		}
		days = append(days, services.DayEntryInput{
			DayOfWeek: day.DayOfWeek,
			IsActive:  day.IsActive,
			Slots:     slots,
		})
	}

	week, err := h.service.SetAvailability(c.Context(), actor, days)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": week})
}

func (h *AvailabilityHandler) GetCoachAvailability(c *fiber.Ctx) error {
	if _, err := parseActor(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	var date *time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be a valid YYYY-MM-DD date"})
		}
		date = &parsed
	}

	week, schedule, err := h.service.GetAvailability(c.Context(), coachID, date)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	response := fiber.Map{"availability": week}
	if schedule != nil {
		response["schedule"] = schedule
	}
	return c.JSON(response)
}

func (h *AvailabilityHandler) GetMyAvailability(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	week, _, err := h.service.GetAvailability(c.Context(), actor.ID, nil)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": week})
}

func (h *AvailabilityHandler) ListAvailabilities(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	filter := repository.AvailabilityListFilter{
		ApprovalStatus: strings.TrimSpace(c.Query("approval_status")),
	}
	if raw := strings.TrimSpace(c.Query("coach_id")); raw != "" {
		coachID := parsePositiveInt(raw, 0)
		if coachID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coach_id must be a positive integer"})
		}
		filter.CoachID = int64(coachID)
	}
	if raw := strings.TrimSpace(c.Query("day_of_week")); raw != "" {
		day, err := parseDayOfWeek(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "day_of_week must be between 0 and 6"})
		}
		filter.DayOfWeek = &day
	}

	page, limit := parsePageQuery(c.Query("page"), c.Query("limit"))
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	availabilities, total, err := h.service.ListAllAvailabilities(c.Context(), actor, filter)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{
		"availabilities": availabilities,
		"pagination":     buildPaginationMeta(page, limit, total),
	})
}

func (h *AvailabilityHandler) ApproveAvailability(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	availabilityID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid availability id"})
	}

	var req reviewAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		req = reviewAvailabilityRequest{}
	}

	availability, err := h.service.ApproveAvailability(c.Context(), actor, availabilityID, req.AdminNotes)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": availability})
}

func (h *AvailabilityHandler) RejectAvailability(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	availabilityID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid availability id"})
	}

	var req reviewAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.RejectionReason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "rejection_reason is required"})
	}

	availability, err := h.service.RejectAvailability(c.Context(), actor, availabilityID, req.RejectionReason, req.AdminNotes)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": availability})
}

func parseDayOfWeek(raw string) (int, error) {
	day, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if day < 0 || day > 6 {
		return 0, errors.New("day of week out of range")
	}
	return day, nil
}

func mapAvailabilityError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Availability is not pending review"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process availability request"})
	}
}
