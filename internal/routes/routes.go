package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/config"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/handlers"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/locks"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/middleware"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/services"
)

const coachLockTTL = 10 * time.Second

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) {
	userRepo := repository.NewUserRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	locker := buildCoachLocker(cfg, logger)

	notificationService := services.NewNotificationService(notificationRepo, logger)
	availabilityService := services.NewAvailabilityService(db, availabilityRepo, sessionRepo, notificationService, logger)
	courseService := services.NewCourseService(courseRepo, notificationService)
	sessionService := services.NewSessionService(
		db,
		sessionRepo,
		timeSlotRepo,
		courseRepo,
		locker,
		notificationService,
		logger,
		cfg.MeetingBaseURL,
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	courseHandler := handlers.NewCourseHandler(courseService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	coaches := authProtected.Group("/coaches")
	coaches.Get("/:id/availability", availabilityHandler.GetCoachAvailability)
	coaches.Get("/:id/slots", sessionHandler.GetAvailableSlots)

	availability := authProtected.Group("/availability", middleware.RequireRole(models.RoleCoach))
	availability.Put("", availabilityHandler.SetAvailability)
	availability.Get("", availabilityHandler.GetMyAvailability)

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Post("/bulk-book", sessionHandler.BulkBookSessions)
	sessions.Post("/check-conflicts", sessionHandler.CheckConflicts)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/reschedule", sessionHandler.RescheduleSession)
	sessions.Put("/:id/cancel", sessionHandler.CancelSession)
	sessions.Put("/:id/complete", sessionHandler.CompleteSession)
	sessions.Put("/:id/no-show", sessionHandler.MarkNoShow)

	courses := authProtected.Group("/courses")
	courses.Get("", courseHandler.ListCourses)
	courses.Post("", middleware.RequireRole(models.RoleCoach), courseHandler.CreateCourse)
	courses.Put("/:id", middleware.RequireRole(models.RoleCoach), courseHandler.UpdateCourse)

	notifications := authProtected.Group("/notifications")
	notifications.Get("", notificationHandler.ListNotifications)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:id/read", notificationHandler.MarkRead)

	admin := authProtected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/availabilities", availabilityHandler.ListAvailabilities)
	admin.Put("/availabilities/:id/approve", availabilityHandler.ApproveAvailability)
	admin.Put("/availabilities/:id/reject", availabilityHandler.RejectAvailability)
	admin.Put("/sessions/:id/approve", sessionHandler.ApproveSession)
	admin.Put("/sessions/:id/reject", sessionHandler.RejectSession)
	admin.Get("/courses", courseHandler.ListCourses)
	admin.Put("/courses/:id/approve", courseHandler.ApproveCourse)
	admin.Put("/courses/:id/reject", courseHandler.RejectCourse)
}

// buildCoachLocker prefers a Redis-backed per-coach lock when REDIS_URL is
// set; a single-instance deployment can run without it because booking still
// takes a Postgres advisory lock inside the transaction.
func buildCoachLocker(cfg *config.Config, logger *zap.Logger) locks.Locker {
	if cfg.RedisURL == "" {
		return locks.NewPassthroughLocker()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL, falling back to in-process locking", zap.Error(err))
		return locks.NewPassthroughLocker()
	}
	return locks.NewRedisCoachLocker(redis.NewClient(opts), coachLockTTL)
}
