package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

type SlotInput struct {
	StartTime   string
	EndTime     string
	IsAvailable bool
	MaxBookings int
	Price       float64
	SessionType string
}

type AvailabilityListFilter struct {
	CoachID        int64
	DayOfWeek      *int
	ApprovalStatus string
	IsActive       *bool
	Offset         int
	Limit          int
}

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// UpsertDay creates or replaces the availability row for one day of week.
// Any edit sends the row back to pending approval and clears prior admin
// feedback.
func (r *AvailabilityRepository) UpsertDay(
	ctx context.Context,
	coachID int64,
	dayOfWeek int,
	isActive bool,
) (*models.Availability, error) {
	query := `
		INSERT INTO availabilities (coach_id, day_of_week, is_active, approval_status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (coach_id, day_of_week) DO UPDATE
		SET is_active = EXCLUDED.is_active,
		    approval_status = 'pending',
		    admin_notes = NULL,
		    rejection_reason = NULL,
		    updated_at = NOW()
		RETURNING id, coach_id, day_of_week, is_active, approval_status, admin_notes, rejection_reason, created_at, updated_at
	`
	var availability models.Availability
	err := r.db.QueryRow(ctx, query, coachID, dayOfWeek, isActive).Scan(
		&availability.ID,
		&availability.CoachID,
		&availability.DayOfWeek,
		&availability.IsActive,
		&availability.ApprovalStatus,
		&availability.AdminNotes,
		&availability.RejectionReason,
		&availability.CreatedAt,
		&availability.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	availability.Slots = make([]models.TimeSlot, 0)
	return &availability, nil
}

func (r *AvailabilityRepository) DeleteSlots(ctx context.Context, availabilityID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM time_slots WHERE availability_id = $1`, availabilityID)
	return err
}

func (r *AvailabilityRepository) InsertSlot(
	ctx context.Context,
	availabilityID int64,
	input SlotInput,
) (*models.TimeSlot, error) {
	query := `
		INSERT INTO time_slots (availability_id, start_time, end_time, is_available, max_bookings, current_bookings, price, session_type)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		RETURNING id, availability_id, start_time, end_time, is_available, max_bookings, current_bookings, price, session_type, created_at
	`
	var slot models.TimeSlot
	err := r.db.QueryRow(
		ctx,
		query,
		availabilityID,
		input.StartTime,
		input.EndTime,
		input.IsAvailable,
		input.MaxBookings,
		input.Price,
		input.SessionType,
	).Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *AvailabilityRepository) GetByID(ctx context.Context, id int64) (*models.Availability, error) {
	query := `
		SELECT id, coach_id, day_of_week, is_active, approval_status, admin_notes, rejection_reason, created_at, updated_at
		FROM availabilities
		WHERE id = $1
	`
	availability, err := r.scanOne(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if err := r.attachSlots(ctx, []*models.Availability{availability}); err != nil {
		return nil, err
	}
	return availability, nil
}

func (r *AvailabilityRepository) ListByCoach(
	ctx context.Context,
	coachID int64,
) ([]models.Availability, error) {
	query := `
		SELECT id, coach_id, day_of_week, is_active, approval_status, admin_notes, rejection_reason, created_at, updated_at
		FROM availabilities
		WHERE coach_id = $1
		ORDER BY day_of_week ASC
	`
	rows, err := r.db.Query(ctx, query, coachID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	availabilities, err := scanAvailabilities(rows)
	if err != nil {
		return nil, err
	}

	refs := make([]*models.Availability, len(availabilities))
	for i := range availabilities {
		refs[i] = &availabilities[i]
	}
	if err := r.attachSlots(ctx, refs); err != nil {
		return nil, err
	}
	return availabilities, nil
}

func (r *AvailabilityRepository) ListAll(
	ctx context.Context,
	filter AvailabilityListFilter,
) ([]models.Availability, int, error) {
	args := []any{}
	whereParts := []string{}

	if filter.CoachID > 0 {
		args = append(args, filter.CoachID)
		whereParts = append(whereParts, fmt.Sprintf("coach_id = $%d", len(args)))
	}
	if filter.DayOfWeek != nil {
		args = append(args, *filter.DayOfWeek)
		whereParts = append(whereParts, fmt.Sprintf("day_of_week = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.ApprovalStatus); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("approval_status = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		whereParts = append(whereParts, fmt.Sprintf("is_active = $%d", len(args)))
	}

	whereClause := ""
	if len(whereParts) > 0 {
		whereClause = "WHERE " + strings.Join(whereParts, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM availabilities %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, coach_id, day_of_week, is_active, approval_status, admin_notes, rejection_reason, created_at, updated_at
		FROM availabilities
		%s
		ORDER BY coach_id ASC, day_of_week ASC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	availabilities, err := scanAvailabilities(rows)
	if err != nil {
		return nil, 0, err
	}

	refs := make([]*models.Availability, len(availabilities))
	for i := range availabilities {
		refs[i] = &availabilities[i]
	}
	if err := r.attachSlots(ctx, refs); err != nil {
		return nil, 0, err
	}
	return availabilities, total, nil
}

// UpdateApprovalIfPending performs the pending -> approved/rejected
// transition as a compare-and-set; pgx.ErrNoRows means the row was not in
// pending.
func (r *AvailabilityRepository) UpdateApprovalIfPending(
	ctx context.Context,
	id int64,
	status string,
	adminNotes *string,
	rejectionReason *string,
) (*models.Availability, error) {
	query := `
		UPDATE availabilities
		SET approval_status = $2, admin_notes = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $1 AND approval_status = 'pending'
		RETURNING id, coach_id, day_of_week, is_active, approval_status, admin_notes, rejection_reason, created_at, updated_at
	`
	availability, err := r.scanOne(ctx, query, id, status, adminNotes, rejectionReason)
	if err != nil {
		return nil, err
	}
	if err := r.attachSlots(ctx, []*models.Availability{availability}); err != nil {
		return nil, err
	}
	return availability, nil
}

func (r *AvailabilityRepository) scanOne(
	ctx context.Context,
	query string,
	args ...any,
) (*models.Availability, error) {
	var availability models.Availability
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&availability.ID,
		&availability.CoachID,
		&availability.DayOfWeek,
		&availability.IsActive,
		&availability.ApprovalStatus,
		&availability.AdminNotes,
		&availability.RejectionReason,
		&availability.CreatedAt,
		&availability.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	availability.Slots = make([]models.TimeSlot, 0)
	return &availability, nil
}

func (r *AvailabilityRepository) attachSlots(
	ctx context.Context,
	availabilities []*models.Availability,
) error {
	if len(availabilities) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(availabilities))
	byID := make(map[int64]*models.Availability, len(availabilities))
	for _, availability := range availabilities {
		ids = append(ids, availability.ID)
		byID[availability.ID] = availability
	}

	query := `
		SELECT id, availability_id, start_time, end_time, is_available, max_bookings, current_bookings, price, session_type, created_at
		FROM time_slots
		WHERE availability_id = ANY($1)
		ORDER BY start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

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
			return err
		}
		if availability, ok := byID[slot.AvailabilityID]; ok {
			availability.Slots = append(availability.Slots, slot)
		}
	}
	return rows.Err()
}

func scanAvailabilities(rows pgx.Rows) ([]models.Availability, error) {
	availabilities := make([]models.Availability, 0)
	for rows.Next() {
		var availability models.Availability
		if err := rows.Scan(
			&availability.ID,
			&availability.CoachID,
			&availability.DayOfWeek,
			&availability.IsActive,
			&availability.ApprovalStatus,
			&availability.AdminNotes,
			&availability.RejectionReason,
			&availability.CreatedAt,
			&availability.UpdatedAt,
		); err != nil {
			return nil, err
		}
		availability.Slots = make([]models.TimeSlot, 0)
		availabilities = append(availabilities, availability)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return availabilities, nil
}
