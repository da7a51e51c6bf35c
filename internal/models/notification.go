package models

import "time"

const (
	NotificationSessionBooked        = "session_booked"
	NotificationSessionApproved      = "session_approved"
	NotificationSessionRejected      = "session_rejected"
	NotificationSessionRescheduled   = "session_rescheduled"
	NotificationSessionCancelled     = "session_cancelled"
	NotificationAvailabilityApproved = "availability_approved"
	NotificationAvailabilityRejected = "availability_rejected"
	NotificationCourseApproved       = "course_approved"
	NotificationCourseRejected       = "course_rejected"
)

type ScheduleNotification struct {
	ID              int64          `json:"id"`
	RecipientUserID int64          `json:"recipient_user_id"`
	Type            string         `json:"type"`
	Payload         map[string]any `json:"payload"`
	IsRead          bool           `json:"is_read"`
	CreatedAt       time.Time      `json:"created_at"`
}
