package models

import "time"

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

const (
	SessionTypeOneOnOne   = "one_on_one"
	SessionTypeGroup      = "group"
	SessionTypeAssessment = "assessment"
)

// TimeSlot is a bookable time-of-day interval inside one availability day.
// StartTime and EndTime are "HH:MM" strings at minute resolution.
type TimeSlot struct {
	ID              int64     `json:"id"`
	AvailabilityID  int64     `json:"availability_id"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	IsAvailable     bool      `json:"is_available"`
	MaxBookings     int       `json:"max_bookings"`
	CurrentBookings int       `json:"current_bookings"`
	Price           float64   `json:"price"`
	SessionType     string    `json:"session_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// Availability is a coach's slot template for one day of week.
// At most one row exists per (coach_id, day_of_week); editing replaces the
// whole day and sends the row back through admin approval.
type Availability struct {
	ID              int64      `json:"id"`
	CoachID         int64      `json:"coach_id"`
	DayOfWeek       int        `json:"day_of_week"`
	IsActive        bool       `json:"is_active"`
	ApprovalStatus  string     `json:"approval_status"`
	AdminNotes      *string    `json:"admin_notes,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Slots           []TimeSlot `json:"slots"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SlotOccupancy is a slot projected onto a concrete date, with the sessions
// already scheduled inside its interval.
type SlotOccupancy struct {
	TimeSlot
	RemainingCapacity int                `json:"remaining_capacity"`
	BookedSessions    []ScheduledSession `json:"booked_sessions"`
}

type DaySchedule struct {
	Date      string          `json:"date"`
	DayOfWeek int             `json:"day_of_week"`
	Slots     []SlotOccupancy `json:"slots"`
}

func ValidSessionType(sessionType string) bool {
	switch sessionType {
	case SessionTypeOneOnOne, SessionTypeGroup, SessionTypeAssessment:
		return true
	}
	return false
}
