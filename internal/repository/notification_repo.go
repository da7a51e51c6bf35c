package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

type NotificationListFilter struct {
	RecipientUserID int64
	IsRead          *bool
	Offset          int
	Limit           int
}

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(
	ctx context.Context,
	recipientUserID int64,
	notificationType string,
	payload map[string]any,
) (*models.ScheduleNotification, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}

	query := `
		INSERT INTO schedule_notifications (recipient_user_id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, recipient_user_id, type, payload, is_read, created_at
	`
	return r.scanOne(ctx, query, recipientUserID, notificationType, payloadJSON)
}

func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.ScheduleNotification, error) {
	query := `
		SELECT id, recipient_user_id, type, payload, is_read, created_at
		FROM schedule_notifications
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *NotificationRepository) List(
	ctx context.Context,
	filter NotificationListFilter,
) ([]models.ScheduleNotification, int, error) {
	args := []any{filter.RecipientUserID}
	whereParts := []string{"recipient_user_id = $1"}

	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		whereParts = append(whereParts, fmt.Sprintf("is_read = $%d", len(args)))
	}

	whereClause := "WHERE " + strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM schedule_notifications %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, recipient_user_id, type, payload, is_read, created_at
		FROM schedule_notifications
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.ScheduleNotification, 0)
	for rows.Next() {
		var notification models.ScheduleNotification
		var payloadJSON []byte
		if err := rows.Scan(
			&notification.ID,
			&notification.RecipientUserID,
			&notification.Type,
			&payloadJSON,
			&notification.IsRead,
			&notification.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(payloadJSON, &notification.Payload); err != nil {
			return nil, 0, fmt.Errorf("unmarshal notification payload: %w", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) (*models.ScheduleNotification, error) {
	query := `
		UPDATE schedule_notifications
		SET is_read = TRUE
		WHERE id = $1
		RETURNING id, recipient_user_id, type, payload, is_read, created_at
	`
	return r.scanOne(ctx, query, id)
}

// MarkAllRead flips every unread notification for the recipient; running it
// again is a no-op.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientUserID int64) (int64, error) {
	query := `
		UPDATE schedule_notifications
		SET is_read = TRUE
		WHERE recipient_user_id = $1 AND is_read = FALSE
	`
	tag, err := r.db.Exec(ctx, query, recipientUserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) scanOne(
	ctx context.Context,
	query string,
	args ...any,
) (*models.ScheduleNotification, error) {
	var notification models.ScheduleNotification
	var payloadJSON []byte
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&notification.ID,
		&notification.RecipientUserID,
		&notification.Type,
		&payloadJSON,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payloadJSON, &notification.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal notification payload: %w", err)
	}
	return &notification, nil
}
