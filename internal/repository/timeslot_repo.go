package repository

import (
	"context"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

// SlotDetail is a time slot joined with the owning availability fields the
// scheduler needs for booking checks.
type SlotDetail struct {
	models.TimeSlot
	CoachID              int64
	DayOfWeek            int
	AvailabilityActive   bool
	AvailabilityApproval string
}

type TimeSlotRepository struct {
	db DBTX
}

func NewTimeSlotRepository(db DBTX) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

func (r *TimeSlotRepository) GetDetailByID(ctx context.Context, slotID int64) (*SlotDetail, error) {
	query := `
		SELECT s.id, s.availability_id, s.start_time, s.end_time, s.is_available, s.max_bookings, s.current_bookings, s.price, s.session_type, s.created_at,
		       a.coach_id, a.day_of_week, a.is_active, a.approval_status
		FROM time_slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE s.id = $1
	`
	var detail SlotDetail
	err := r.db.QueryRow(ctx, query, slotID).Scan(
		&detail.ID,
		&detail.AvailabilityID,
		&detail.StartTime,
		&detail.EndTime,
		&detail.IsAvailable,
		&detail.MaxBookings,
		&detail.CurrentBookings,
		&detail.Price,
		&detail.SessionType,
		&detail.CreatedAt,
		&detail.CoachID,
		&detail.DayOfWeek,
		&detail.AvailabilityActive,
		&detail.AvailabilityApproval,
	)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ClaimCapacity atomically increments current_bookings while it is below
// max_bookings. Returns false when the slot is full (zero rows updated).
func (r *TimeSlotRepository) ClaimCapacity(ctx context.Context, slotID int64) (bool, error) {
	query := `
		UPDATE time_slots
		SET current_bookings = current_bookings + 1
		WHERE id = $1 AND current_bookings < max_bookings
	`
	tag, err := r.db.Exec(ctx, query, slotID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseCapacity decrements current_bookings, clamped at zero.
func (r *TimeSlotRepository) ReleaseCapacity(ctx context.Context, slotID int64) error {
	query := `
		UPDATE time_slots
		SET current_bookings = GREATEST(current_bookings - 1, 0)
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, slotID)
	return err
}

// ListBookable returns the coach's slots for one day of week that belong to
// an approved, active availability, match the session type, and still have
// capacity. Ordered ascending by start time.
func (r *TimeSlotRepository) ListBookable(
	ctx context.Context,
	coachID int64,
	dayOfWeek int,
	sessionType string,
) ([]models.TimeSlot, error) {
	query := `
		SELECT s.id, s.availability_id, s.start_time, s.end_time, s.is_available, s.max_bookings, s.current_bookings, s.price, s.session_type, s.created_at
		FROM time_slots s
		JOIN availabilities a ON a.id = s.availability_id
		WHERE a.coach_id = $1
		  AND a.day_of_week = $2
		  AND a.is_active = TRUE
		  AND a.approval_status = 'approved'
		  AND s.is_available = TRUE
		  AND s.current_bookings < s.max_bookings
		  AND ($3 = '' OR s.session_type = $3)
		ORDER BY s.start_time ASC, s.id ASC
	`
	rows, err := r.db.Query(ctx, query, coachID, dayOfWeek, sessionType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.TimeSlot, 0)
	for rows.Next() {
		var slot models.TimeSlot
		if err := rows.Scan(
			&slot.ID,
			&slot.AvailabilityID,
			&slot.StartTime,
			&slot.EndTime,
			&slot.IsAvailable,
			&slot.MaxBookings,
			&slot.CurrentBookings,
			&slot.Price,
			&slot.SessionType,
			&slot.CreatedAt,
		); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
