package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

type stubNotificationService struct {
	listResult     []models.ScheduleNotification
	listTotal      int
	listErr        error
	markResult     *models.ScheduleNotification
	markErr        error
	markAllUpdated int64
	markAllErr     error

	lastActor  models.Actor
	lastIsRead *bool
	lastID     int64
}

func (s *stubNotificationService) List(_ context.Context, actor models.Actor, isRead *bool, _, _ int) ([]models.ScheduleNotification, int, error) {
	s.lastActor = actor
	s.lastIsRead = isRead
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubNotificationService) MarkRead(_ context.Context, actor models.Actor, notificationID int64) (*models.ScheduleNotification, error) {
	s.lastActor = actor
	s.lastID = notificationID
	return s.markResult, s.markErr
}

func (s *stubNotificationService) MarkAllRead(_ context.Context, actor models.Actor) (int64, error) {
	s.lastActor = actor
	return s.markAllUpdated, s.markAllErr
}

func newNotificationTestApp(service *stubNotificationService, userID string) *fiber.App {
	handler := &NotificationHandler{service: service}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleStudent)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/api/v1/notifications", handler.ListNotifications)
	app.Put("/api/v1/notifications/read-all", handler.MarkAllRead)
	app.Put("/api/v1/notifications/:id/read", handler.MarkRead)
	return app
}

func TestListNotificationsParsesIsReadFilter(t *testing.T) {
	service := &stubNotificationService{
		listResult: []models.ScheduleNotification{{ID: 1, Type: models.NotificationSessionBooked}},
		listTotal:  1,
	}
	app := newNotificationTestApp(service, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?is_read=false", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastIsRead == nil || *service.lastIsRead {
		t.Fatalf("expected is_read=false filter, got %v", service.lastIsRead)
	}
}

func TestListNotificationsRejectsBadIsRead(t *testing.T) {
	service := &stubNotificationService{}
	app := newNotificationTestApp(service, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?is_read=maybe", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMarkReadMapsForbidden(t *testing.T) {
	service := &stubNotificationService{markErr: services.ErrForbidden}
	app := newNotificationTestApp(service, "42")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/9/read", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastID != 9 {
		t.Fatalf("expected notification id 9, got %d", service.lastID)
	}
}

func TestMarkAllReadReturnsUpdatedCount(t *testing.T) {
	service := &stubNotificationService{markAllUpdated: 4}
	app := newNotificationTestApp(service, "42")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/read-all", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Updated int64 `json:"updated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Updated != 4 {
		t.Fatalf("expected 4 updated, got %d", body.Updated)
	}
}
