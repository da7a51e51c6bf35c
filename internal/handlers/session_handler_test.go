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

type stubSessionService struct {
	bookResult       *models.ScheduledSession
	bookErr          error
	bulkResult       []models.ScheduledSession
	bulkErr          error
	listResult       []models.ScheduledSession
	listTotal        int
	listErr          error
	getResult        *models.ScheduledSession
	getErr           error
	transitionResult *models.ScheduledSession
	transitionErr    error
	conflictResult   bool
	conflictErr      error
	slotsResult      []models.TimeSlot
	slotsErr         error

	lastActor      models.Actor
	lastBookInput  services.BookSessionInput
	lastSessionID  int64
	lastListFilter repository.SessionListFilter
	lastReason     string
}

func (s *stubSessionService) BookSession(_ context.Context, actor models.Actor, input services.BookSessionInput) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubSessionService) BulkBookSessions(_ context.Context, actor models.Actor, _ *int64, _ []services.BookSessionInput) ([]models.ScheduledSession, error) {
	s.lastActor = actor
	return s.bulkResult, s.bulkErr
}

func (s *stubSessionService) ApproveSession(_ context.Context, actor models.Actor, sessionID int64, _ *string) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.transitionResult, s.transitionErr
}

func (s *stubSessionService) RejectSession(_ context.Context, actor models.Actor, sessionID int64, rejectionReason string, _ *string) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	s.lastReason = rejectionReason
	return s.transitionResult, s.transitionErr
}

func (s *stubSessionService) RescheduleSession(_ context.Context, actor models.Actor, sessionID int64, _ time.Time, _ int, _ *string) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.transitionResult, s.transitionErr
}

func (s *stubSessionService) CancelSession(_ context.Context, actor models.Actor, sessionID int64) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.transitionResult, s.transitionErr
}

func (s *stubSessionService) CompleteSession(_ context.Context, actor models.Actor, sessionID int64, _ *string) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.transitionResult, s.transitionErr
}

func (s *stubSessionService) MarkNoShow(_ context.Context, actor models.Actor, sessionID int64) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.transitionResult, s.transitionErr
}

func (s *stubSessionService) CheckConflicts(_ context.Context, _ int64, _ time.Time, _ int, _ *int64) (bool, error) {
	return s.conflictResult, s.conflictErr
}

func (s *stubSessionService) GetAvailableSlots(_ context.Context, _ int64, _ time.Time, _ string) ([]models.TimeSlot, error) {
	return s.slotsResult, s.slotsErr
}

func (s *stubSessionService) ListSessions(_ context.Context, actor models.Actor, filter repository.SessionListFilter) ([]models.ScheduledSession, int, error) {
	s.lastActor = actor
	s.lastListFilter = filter
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubSessionService) GetSession(_ context.Context, actor models.Actor, sessionID int64) (*models.ScheduledSession, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func newSessionTestApp(service *stubSessionService, role string, userID string) *fiber.App {
	handler := &SessionHandler{service: service}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/sessions/book", handler.BookSession)
	app.Post("/api/v1/sessions/bulk-book", handler.BulkBookSessions)
	app.Post("/api/v1/sessions/check-conflicts", handler.CheckConflicts)
	app.Get("/api/v1/sessions", handler.ListSessions)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	app.Put("/api/v1/sessions/:id/cancel", handler.CancelSession)
	app.Put("/api/v1/sessions/:id/complete", handler.CompleteSession)
	app.Put("/api/v1/admin/sessions/:id/approve", handler.ApproveSession)
	app.Put("/api/v1/admin/sessions/:id/reject", handler.RejectSession)
	return app
}

func TestBookSessionReturnsCreatedSession(t *testing.T) {
	service := &stubSessionService{
		bookResult: &models.ScheduledSession{
			ID:              91,
			CoachID:         7,
			StudentID:       42,
			Status:          models.SessionPendingApproval,
			DurationMinutes: 60,
		},
	}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"time_slot_id": 12,
		"session_date": "2026-03-16",
		"notes": "first algebra session"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActor.ID != 42 || service.lastActor.Role != models.RoleStudent {
		t.Fatalf("unexpected actor %+v", service.lastActor)
	}
	if service.lastBookInput.TimeSlotID != 12 {
		t.Fatalf("expected slot id 12, got %d", service.lastBookInput.TimeSlotID)
	}
	if got := service.lastBookInput.SessionDate.Format("2006-01-02"); got != "2026-03-16" {
		t.Fatalf("expected session date 2026-03-16, got %s", got)
	}
}

func TestBookSessionRejectsBadDate(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"time_slot_id": 12,
		"session_date": "16-03-2026"
	}`))
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

func TestBookSessionMapsCapacityExceededToConflict(t *testing.T) {
	service := &stubSessionService{bookErr: services.ErrCapacityExceeded}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/book", strings.NewReader(`{
		"time_slot_id": 12,
		"session_date": "2026-03-16"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestBulkBookReportsPerEntryFailures(t *testing.T) {
	service := &stubSessionService{
		bulkErr: &services.BulkBookingError{
			Failures: []services.BulkEntryFailure{
				{Index: 1, Reason: "time slot has no remaining capacity"},
			},
		},
	}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/bulk-book", strings.NewReader(`{
		"sessions": [
			{"time_slot_id": 12, "session_date": "2026-03-16"},
			{"time_slot_id": 13, "session_date": "2026-03-17"}
		]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	var body struct {
		Failures []services.BulkEntryFailure `json:"failures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Failures) != 1 || body.Failures[0].Index != 1 {
		t.Fatalf("unexpected failures %+v", body.Failures)
	}
}

func TestListSessionsRejectsUnknownSortColumn(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, models.RoleCoach, "7")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?sort_by=meeting_url", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListSessionsReturnsPaginationMeta(t *testing.T) {
	service := &stubSessionService{
		listResult: []models.ScheduledSession{{ID: 1}, {ID: 2}},
		listTotal:  25,
	}
	app := newSessionTestApp(service, models.RoleCoach, "7")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?page=2&limit=10&status=approved", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.Status != "approved" {
		t.Fatalf("expected status filter approved, got %q", service.lastListFilter.Status)
	}
	if service.lastListFilter.Offset != 10 || service.lastListFilter.Limit != 10 {
		t.Fatalf("unexpected paging offset=%d limit=%d", service.lastListFilter.Offset, service.lastListFilter.Limit)
	}

	var body struct {
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Pagination.TotalPages != 3 || !body.Pagination.HasNextPage || !body.Pagination.HasPrevPage {
		t.Fatalf("unexpected pagination %+v", body.Pagination)
	}
}

func TestListSessionsForwardsNameSearch(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, models.RoleAdmin, "1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?search=morgan", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastListFilter.Search != "morgan" {
		t.Fatalf("expected search filter morgan, got %q", service.lastListFilter.Search)
	}
}

func TestRejectSessionRequiresReason(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(service, models.RoleAdmin, "1")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/sessions/5/reject", strings.NewReader(`{
		"admin_notes": "needs a reason"
	}`))
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

func TestCancelSessionMapsInvalidTransition(t *testing.T) {
	service := &stubSessionService{transitionErr: services.ErrInvalidStateTransition}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/5/cancel", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastSessionID != 5 {
		t.Fatalf("expected session id 5, got %d", service.lastSessionID)
	}
}

func TestGetSessionMapsForbidden(t *testing.T) {
	service := &stubSessionService{getErr: services.ErrForbidden}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/9", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCheckConflictsReturnsVerdict(t *testing.T) {
	service := &stubSessionService{conflictResult: true}
	app := newSessionTestApp(service, models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/check-conflicts", strings.NewReader(`{
		"coach_id": 7,
		"scheduled_at": "2026-03-16T09:00:00Z",
		"duration_minutes": 60
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

	var body struct {
		HasConflict bool `json:"has_conflict"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.HasConflict {
		t.Fatal("expected has_conflict true")
	}
}
