package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

type notificationApplicationService interface {
	List(ctx context.Context, actor models.Actor, isRead *bool, offset, limit int) ([]models.ScheduleNotification, int, error)
	MarkRead(ctx context.Context, actor models.Actor, notificationID int64) (*models.ScheduleNotification, error)
	MarkAllRead(ctx context.Context, actor models.Actor) (int64, error)
}

type NotificationHandler struct {
	service notificationApplicationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var isRead *bool
	switch strings.ToLower(strings.TrimSpace(c.Query("is_read"))) {
	case "":
	case "true":
		value := true
		isRead = &value
	case "false":
		value := false
		isRead = &value
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "is_read must be true or false"})
	}

	page, limit := parsePageQuery(c.Query("page"), c.Query("limit"))

	notifications, total, err := h.service.List(c.Context(), actor, isRead, (page-1)*limit, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list notifications"})
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"pagination":    buildPaginationMeta(page, limit, total),
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	notificationID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	notification, err := h.service.MarkRead(c.Context(), actor, notificationID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
		}
	}

	return c.JSON(fiber.Map{"notification": notification})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, err := parseActor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	updated, err := h.service.MarkAllRead(c.Context(), actor)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notifications"})
	}

	return c.JSON(fiber.Map{"updated": updated})
}
