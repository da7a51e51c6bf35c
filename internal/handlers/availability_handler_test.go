package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

type stubAvailabilityService struct {
	setResult    []models.Availability
	setErr       error
	getWeek      []models.Availability
	getSchedule  *models.DaySchedule
	getErr       error
	listResult   []models.Availability
	listTotal    int
	listErr      error
	reviewResult *models.Availability
	reviewErr    error

	lastActor   models.Actor
	lastDays    []services.DayEntryInput
	lastCoachID int64
	lastDate    *time.Time
	lastID      int64
	lastReason  string
}

func (s *stubAvailabilityService) SetAvailability(_ context.Context, actor models.Actor, days []services.DayEntryInput) ([]models.Availability, error) {
	s.lastActor = actor
	s.lastDays = days
	return s.setResult, s.setErr
}

func (s *stubAvailabilityService) GetAvailability(_ context.Context, coachID int64, date *time.Time) ([]models.Availability, *models.DaySchedule, error) {
	s.lastCoachID = coachID
	s.lastDate = date
	return s.getWeek, s.getSchedule, s.getErr
}

func (s *stubAvailabilityService) ListAllAvailabilities(_ context.Context, actor models.Actor, _ repository.AvailabilityListFilter) ([]models.Availability, int, error) {
	s.lastActor = actor
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubAvailabilityService) ApproveAvailability(_ context.Context, actor models.Actor, availabilityID int64, _ *string) (*models.Availability, error) {
	s.lastActor = actor
	s.lastID = availabilityID
	return s.reviewResult, s.reviewErr
}

func (s *stubAvailabilityService) RejectAvailability(_ context.Context, actor models.Actor, availabilityID int64, rejectionReason string, _ *string) (*models.Availability, error) {
	s.lastActor = actor
	s.lastID = availabilityID
	s.lastReason = rejectionReason
	return s.reviewResult, s.reviewErr
}

func newAvailabilityTestApp(service *stubAvailabilityService, role string, userID string) *fiber.App {
	handler := &AvailabilityHandler{service: service}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Put("/api/v1/availability", handler.SetAvailability)
	app.Get("/api/v1/availability", handler.GetMyAvailability)
	app.Get("/api/v1/coaches/:id/availability", handler.GetCoachAvailability)
	app.Get("/api/v1/admin/availabilities", handler.ListAvailabilities)
	app.Put("/api/v1/admin/availabilities/:id/approve", handler.ApproveAvailability)
	app.Put("/api/v1/admin/availabilities/:id/reject", handler.RejectAvailability)
	return app
}

func TestSetAvailabilityForwardsDays(t *testing.T) {
	service := &stubAvailabilityService{
		setResult: []models.Availability{{ID: 3, CoachID: 7, DayOfWeek: 1}},
	}
	app := newAvailabilityTestApp(service, models.RoleCoach, "7")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability", strings.NewReader(`{
		"days": [
			{
				"day_of_week": 1,
				"is_active": true,
				"slots": [
					{"start_time": "09:00", "end_time": "10:00", "max_bookings": 3, "price": 25, "session_type": "one_on_one"}
				]
			}
		]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActor.ID != 7 || service.lastActor.Role != models.RoleCoach {
		t.Fatalf("unexpected actor %+v", service.lastActor)
	}
	if len(service.lastDays) != 1 || len(service.lastDays[0].Slots) != 1 {
		t.Fatalf("unexpected day entries %+v", service.lastDays)
	}
	if got := service.lastDays[0].Slots[0].StartTime; got != "09:00" {
		t.Fatalf("expected start 09:00, got %q", got)
	}
}

func TestSetAvailabilityRejectsEmptyDays(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, models.RoleCoach, "7")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability", strings.NewReader(`{"days": []}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetCoachAvailabilityParsesDate(t *testing.T) {
	service := &stubAvailabilityService{
		getWeek:     []models.Availability{{ID: 3, CoachID: 7, DayOfWeek: 1}},
		getSchedule: &models.DaySchedule{Date: "2026-03-16", DayOfWeek: 1},
	}
	app := newAvailabilityTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coaches/7/availability?date=2026-03-16", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastCoachID != 7 {
		t.Fatalf("expected coach id 7, got %d", service.lastCoachID)
	}
	if service.lastDate == nil || service.lastDate.Format("2006-01-02") != "2026-03-16" {
		t.Fatalf("unexpected date %v", service.lastDate)
	}

	var body struct {
		Schedule *models.DaySchedule `json:"schedule"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Schedule == nil || body.Schedule.Date != "2026-03-16" {
		t.Fatalf("unexpected schedule %+v", body.Schedule)
	}
}

func TestGetCoachAvailabilityRejectsBadDate(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coaches/7/availability?date=tomorrow", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRejectAvailabilityRequiresReason(t *testing.T) {
	service := &stubAvailabilityService{}
	app := newAvailabilityTestApp(service, models.RoleAdmin, "1")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/availabilities/3/reject", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestApproveAvailabilityMapsStateError(t *testing.T) {
	service := &stubAvailabilityService{reviewErr: services.ErrInvalidStateTransition}
	app := newAvailabilityTestApp(service, models.RoleAdmin, "1")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/availabilities/3/approve", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastID != 3 {
		t.Fatalf("expected availability id 3, got %d", service.lastID)
	}
}
