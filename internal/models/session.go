package models

import "time"

const (
	SessionPendingApproval = "pending_approval"
	SessionApproved        = "approved"
	SessionRejected        = "rejected"
	SessionCompleted       = "completed"
	SessionCancelled       = "cancelled"
	SessionNoShow          = "no_show"
)

type ScheduledSession struct {
	ID              int64     `json:"id"`
	TimeSlotID      *int64    `json:"time_slot_id"`
	CoachID         int64     `json:"coach_id"`
	StudentID       int64     `json:"student_id"`
	CourseID        *int64    `json:"course_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	SessionType     string    `json:"session_type"`
	Status          string    `json:"status"`
	Price           float64   `json:"price"`
	MeetingURL      *string   `json:"meeting_url,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	AdminNotes      *string   `json:"admin_notes,omitempty"`
	RejectionReason *string   `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndsAt returns the exclusive end of the session interval.
func (s *ScheduledSession) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// TerminalStatus reports whether no further transition is allowed.
func TerminalStatus(status string) bool {
	switch status {
	case SessionRejected, SessionCancelled, SessionCompleted, SessionNoShow:
		return true
	}
	return false
}
