package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

type sessionApplicationService interface {
	BookSession(ctx context.Context, actor models.Actor, input services.BookSessionInput) (*models.ScheduledSession, error)
	BulkBookSessions(ctx context.Context, actor models.Actor, courseID *int64, entries []services.BookSessionInput) ([]models.ScheduledSession, error)
	ApproveSession(ctx context.Context, actor models.Actor, sessionID int64, adminNotes *string) (*models.ScheduledSession, error)
	RejectSession(ctx context.Context, actor models.Actor, sessionID int64, rejectionReason string, adminNotes *string) (*models.ScheduledSession, error)
	RescheduleSession(ctx context.Context, actor models.Actor, sessionID int64, newStart time.Time, newDurationMinutes int, reason *string) (*models.ScheduledSession, error)
	CancelSession(ctx context.Context, actor models.Actor, sessionID int64) (*models.ScheduledSession, error)
	CompleteSession(ctx context.Context, actor models.Actor, sessionID int64, notes *string) (*models.ScheduledSession, error)
	MarkNoShow(ctx context.Context, actor models.Actor, sessionID int64) (*models.ScheduledSession, error)
	CheckConflicts(ctx context.Context, coachID int64, start time.Time, durationMinutes int, excludeSessionID *int64) (bool, error)
	GetAvailableSlots(ctx context.Context, coachID int64, date time.Time, sessionType string) ([]models.TimeSlot, error)
	ListSessions(ctx context.Context, actor models.Actor, filter repository.SessionListFilter) ([]models.ScheduledSession, int, error)
	GetSession(ctx context.Context, actor models.Actor, sessionID int64) (*models.ScheduledSession, error)
}

type SessionHandler struct {
	service sessionApplicationService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type bookSessionRequest struct {
	TimeSlotID  int64   `json:"time_slot_id"`
	SessionDate string  `json:"session_date"`
	CourseID    *int64  `json:"course_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

type bulkBookRequest struct {
	CourseID *int64               `json:"course_id"`
	Sessions []bookSessionRequest `json:"sessions"`
}

type rescheduleRequest struct {
	ScheduledAt     string  `json:"scheduled_at"`
	DurationMinutes int     `json:"duration_minutes"`
	Reason          *string `json:"reason"`
}

type reviewSessionRequest struct {
	AdminNotes      *string `json:"admin_notes"`
	RejectionReason string  `json:"rejection_reason"`
}

type completeSessionRequest struct {
	Notes *string `json:"notes"`
}

type checkConflictsRequest struct {
	CoachID          int64  `json:"coach_id"`
	ScheduledAt      string `json:"scheduled_at"`
	DurationMinutes  int    `json:"duration_minutes"`
	ExcludeSessionID *int64 `json:"exclude_session_id"`
}

func (h *SessionHandler) BookSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bookSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	input, errMsg := buildBookInput(req)
	if errMsg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errMsg})
	}

	session, err := h.service.BookSession(c.Context(), actor, input)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) BulkBookSessions(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bulkBookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	entries := make([]services.BookSessionInput, 0, len(req.Sessions))
	for i, entry := range req.Sessions {
		input, errMsg := buildBookInput(entry)
		if errMsg != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": errMsg,
				"index": i,
			})
		}
		entries = append(entries, input)
	}

	sessions, err := h.service.BulkBookSessions(c.Context(), actor, req.CourseID, entries)
	if err != nil {
		var bulkErr *services.BulkBookingError
		if errors.As(err, &bulkErr) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":    "Bulk booking rejected",
				"failures": bulkErr.Failures,
			})
		}
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sortBy := strings.TrimSpace(c.Query("sort_by"))
	if !repository.ValidSessionSort(sortBy) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown sort_by value"})
	}

	filter, errMsg := buildSessionListFilter(c, sortBy)
	if errMsg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errMsg})
	}

	page, limit := parsePageQuery(c.Query("page"), c.Query("limit"))
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	sessions, total, err := h.service.ListSessions(c.Context(), actor, filter)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessions":   sessions,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetSession(c.Context(), actor, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ApproveSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req reviewSessionRequest
	if err := c.BodyParser(&req); err != nil {
		req = reviewSessionRequest{}
	}

	session, err := h.service.ApproveSession(c.Context(), actor, sessionID, req.AdminNotes)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) RejectSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req reviewSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.RejectionReason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "rejection_reason is required"})
	}

	session, err := h.service.RejectSession(c.Context(), actor, sessionID, req.RejectionReason, req.AdminNotes)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) RescheduleSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req rescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	newStart, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_at must be a valid RFC3339 timestamp"})
	}
	if req.DurationMinutes <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "duration_minutes must be greater than 0"})
	}

	session, err := h.service.RescheduleSession(c.Context(), actor, sessionID, newStart, req.DurationMinutes, req.Reason)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.CancelSession(c.Context(), actor, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req completeSessionRequest
	if err := c.BodyParser(&req); err != nil {
		req = completeSessionRequest{}
	}

	session, err := h.service.CompleteSession(c.Context(), actor, sessionID, req.Notes)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) MarkNoShow(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.MarkNoShow(c.Context(), actor, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CheckConflicts(c *fiber.Ctx) error {
	if _, err := parseActor(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req checkConflictsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.CoachID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coach_id must be greater than 0"})
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_at must be a valid RFC3339 timestamp"})
	}

	hasConflict, err := h.service.CheckConflicts(c.Context(), req.CoachID, start, req.DurationMinutes, req.ExcludeSessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"has_conflict": hasConflict})
}

func (h *SessionHandler) GetAvailableSlots(c *fiber.Ctx) error {
	if _, err := parseActor(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	coachID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(c.Query("date")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be a valid YYYY-MM-DD date"})
	}

	slots, err := h.service.GetAvailableSlots(c.Context(), coachID, date, strings.TrimSpace(c.Query("session_type")))
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{
		"date":  date.Format("2006-01-02"),
		"slots": slots,
	})
}

func buildBookInput(req bookSessionRequest) (services.BookSessionInput, string) {
	if req.TimeSlotID <= 0 {
		return services.BookSessionInput{}, "time_slot_id must be greater than 0"
	}
	sessionDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.SessionDate))
	if err != nil {
		return services.BookSessionInput{}, "session_date must be a valid YYYY-MM-DD date"
	}
	return services.BookSessionInput{
		TimeSlotID:  req.TimeSlotID,
		SessionDate: sessionDate,
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
	}, ""
}

func buildSessionListFilter(c *fiber.Ctx, sortBy string) (repository.SessionListFilter, string) {
	filter := repository.SessionListFilter{
		Status:      strings.TrimSpace(c.Query("status")),
		SessionType: strings.TrimSpace(c.Query("session_type")),
		Search:      strings.TrimSpace(c.Query("search")),
		SortBy:      sortBy,
		SortDesc:    strings.EqualFold(strings.TrimSpace(c.Query("order")), "desc"),
	}

	if raw := strings.TrimSpace(c.Query("coach_id")); raw != "" {
		coachID := parsePositiveInt(raw, 0)
		if coachID == 0 {
			return filter, "coach_id must be a positive integer"
		}
		filter.CoachID = int64(coachID)
	}
	if raw := strings.TrimSpace(c.Query("student_id")); raw != "" {
		studentID := parsePositiveInt(raw, 0)
		if studentID == 0 {
			return filter, "student_id must be a positive integer"
		}
		filter.StudentID = int64(studentID)
	}
	if raw := strings.TrimSpace(c.Query("course_id")); raw != "" {
		courseID := parsePositiveInt(raw, 0)
		if courseID == 0 {
			return filter, "course_id must be a positive integer"
		}
		filter.CourseID = int64(courseID)
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, "from must be a valid YYYY-MM-DD date"
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, "to must be a valid YYYY-MM-DD date"
		}
		filter.To = &to
	}
	return filter, ""
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrCapacityExceeded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Time slot has no remaining capacity"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Requested time conflicts with another session"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Transition is not allowed from the session's current state"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
