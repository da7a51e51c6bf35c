package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

type courseApplicationService interface {
	CreateCourse(ctx context.Context, actor models.Actor, input services.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor models.Actor, courseID int64, input services.CourseInput) (*models.Course, error)
	ListCourses(ctx context.Context, actor models.Actor, filter repository.CourseListFilter) ([]models.Course, int, error)
	ApproveCourse(ctx context.Context, actor models.Actor, courseID int64, adminNotes *string) (*models.Course, error)
	RejectCourse(ctx context.Context, actor models.Actor, courseID int64, rejectionReason string, adminNotes *string) (*models.Course, error)
}

type CourseHandler struct {
	service courseApplicationService
}

func NewCourseHandler(service *services.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

type courseRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
}

type reviewCourseRequest struct {
	AdminNotes      *string `json:"admin_notes"`
	RejectionReason string  `json:"rejection_reason"`
}

func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req courseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	course, err := h.service.CreateCourse(c.Context(), actor, services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return mapCourseError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"course": course})
}

func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	var req courseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	course, err := h.service.UpdateCourse(c.Context(), actor, courseID, services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return mapCourseError(c, err)
	}

	return c.JSON(fiber.Map{"course": course})
}

func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	filter := repository.CourseListFilter{
		ApprovalStatus: strings.TrimSpace(c.Query("approval_status")),
		Search:         strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("coach_id")); raw != "" {
		coachID := parsePositiveInt(raw, 0)
		if coachID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coach_id must be a positive integer"})
		}
		filter.CoachID = int64(coachID)
	}

	page, limit := parsePageQuery(c.Query("page"), c.Query("limit"))
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	courses, total, err := h.service.ListCourses(c.Context(), actor, filter)
	if err != nil {
		return mapCourseError(c, err)
	}

	return c.JSON(fiber.Map{
		"courses":    courses,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *CourseHandler) ApproveCourse(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	var req reviewCourseRequest
	if err := c.BodyParser(&req); err != nil {
		req = reviewCourseRequest{}
	}

	course, err := h.service.ApproveCourse(c.Context(), actor, courseID, req.AdminNotes)
	if err != nil {
		return mapCourseError(c, err)
	}

	return c.JSON(fiber.Map{"course": course})
}

func (h *CourseHandler) RejectCourse(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	courseID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course id"})
	}

	var req reviewCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.RejectionReason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "rejection_reason is required"})
	}

	course, err := h.service.RejectCourse(c.Context(), actor, courseID, req.RejectionReason, req.AdminNotes)
	if err != nil {
		return mapCourseError(c, err)
	}

	return c.JSON(fiber.Map{"course": course})
}

func mapCourseError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Course is not pending review"})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process course request"})
	}
}
