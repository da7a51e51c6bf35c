package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
)

type NotificationService struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// Record appends a schedule event for the recipient. It is best-effort: a
// failed insert is logged and never propagated, so a state transition can
// not be aborted by its own notification.
func (s *NotificationService) Record(
	ctx context.Context,
	recipientUserID int64,
	notificationType string,
	payload map[string]any,
) {
	if _, err := s.repo.Create(ctx, recipientUserID, notificationType, payload); err != nil {
		s.logger.Error("record notification",
			zap.Int64("recipient_user_id", recipientUserID),
			zap.String("type", notificationType),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) List(
	ctx context.Context,
	actor models.Actor,
	isRead *bool,
	offset, limit int,
) ([]models.ScheduleNotification, int, error) {
	return s.repo.List(ctx, repository.NotificationListFilter{
		RecipientUserID: actor.ID,
		IsRead:          isRead,
		Offset:          offset,
		Limit:           limit,
	})
}

// MarkRead flips a single notification; only its recipient may do so.
func (s *NotificationService) MarkRead(
	ctx context.Context,
	actor models.Actor,
	notificationID int64,
) (*models.ScheduleNotification, error) {
	notification, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: notification", ErrNotFound)
		}
		return nil, err
	}
	if notification.RecipientUserID != actor.ID {
		return nil, ErrForbidden
	}
	return s.repo.MarkRead(ctx, notificationID)
}

// MarkAllRead is idempotent; a second call updates zero rows and succeeds.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return s.repo.MarkAllRead(ctx, actor.ID)
}
