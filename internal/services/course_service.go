package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
)

type CourseService struct {
	repo          *repository.CourseRepository
	notifications notificationRecorder
}

func NewCourseService(repo *repository.CourseRepository, notifications notificationRecorder) *CourseService {
	return &CourseService{repo: repo, notifications: notifications}
}

type CourseInput struct {
	Title       string
	Description *string
	Price       float64
}

func (s *CourseService) CreateCourse(
	ctx context.Context,
	actor models.Actor,
	input CourseInput,
) (*models.Course, error) {
	if !actor.IsCoach() {
		return nil, ErrForbidden
	}
	if err := validateCourseInput(input); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, actor.ID, repository.CourseInput{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
	})
}

// UpdateCourse rewrites an owned course; the edit sends it back through
// admin approval.
func (s *CourseService) UpdateCourse(
	ctx context.Context,
	actor models.Actor,
	courseID int64,
	input CourseInput,
) (*models.Course, error) {
	if err := validateCourseInput(input); err != nil {
		return nil, err
	}

	course, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: course", ErrNotFound)
		}
		return nil, err
	}
	if !actor.IsCoach() || course.CoachID != actor.ID {
		return nil, ErrForbidden
	}

	return s.repo.Update(ctx, courseID, repository.CourseInput{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
	})
}

// ListCourses scopes by role: coaches see their own catalog, students only
// approved courses, admins whatever the filter selects.
func (s *CourseService) ListCourses(
	ctx context.Context,
	actor models.Actor,
	filter repository.CourseListFilter,
) ([]models.Course, int, error) {
	switch actor.Role {
	case models.RoleCoach:
		filter.CoachID = actor.ID
	case models.RoleStudent:
		filter.ApprovalStatus = models.ApprovalApproved
	case models.RoleAdmin:
	default:
		return nil, 0, ErrForbidden
	}
	return s.repo.List(ctx, filter)
}

func (s *CourseService) ApproveCourse(
	ctx context.Context,
	actor models.Actor,
	courseID int64,
	adminNotes *string,
) (*models.Course, error) {
	return s.reviewCourse(ctx, actor, courseID, models.ApprovalApproved, adminNotes, nil)
}

func (s *CourseService) RejectCourse(
	ctx context.Context,
	actor models.Actor,
	courseID int64,
	rejectionReason string,
	adminNotes *string,
) (*models.Course, error) {
	if strings.TrimSpace(rejectionReason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	return s.reviewCourse(ctx, actor, courseID, models.ApprovalRejected, adminNotes, &rejectionReason)
}

func (s *CourseService) reviewCourse(
	ctx context.Context,
	actor models.Actor,
	courseID int64,
	status string,
	adminNotes *string,
	rejectionReason *string,
) (*models.Course, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	course, err := s.repo.UpdateApprovalIfPending(ctx, courseID, status, adminNotes, rejectionReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.repo.GetByID(ctx, courseID); getErr != nil {
				return nil, fmt.Errorf("%w: course", ErrNotFound)
			}
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	notificationType := models.NotificationCourseApproved
	if status == models.ApprovalRejected {
		notificationType = models.NotificationCourseRejected
	}
	payload := map[string]any{
		"course_id": course.ID,
		"title":     course.Title,
	}
	if rejectionReason != nil {
		payload["reason"] = *rejectionReason
	}
	s.notifications.Record(ctx, course.CoachID, notificationType, payload)
	return course, nil
}

func validateCourseInput(input CourseInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}
