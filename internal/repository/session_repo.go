package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
)

const sessionColumns = `id, time_slot_id, coach_id, student_id, course_id, scheduled_at, duration_min, title, description, session_type, status, price, meeting_url, notes, admin_notes, rejection_reason, created_at, updated_at`

type CreateSessionInput struct {
	TimeSlotID      *int64
	CoachID         int64
	StudentID       int64
	CourseID        *int64
	ScheduledAt     time.Time
	DurationMinutes int
	Title           string
	Description     *string
	SessionType     string
	Price           float64
	Notes           *string
}

type SessionListFilter struct {
	CoachID     int64
	StudentID   int64
	CourseID    int64
	Status      string
	SessionType string
	Search      string
	From        *time.Time
	To          *time.Time
	SortBy      string
	SortDesc    bool
	Offset      int
	Limit       int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`
		INSERT INTO scheduled_sessions (time_slot_id, coach_id, student_id, course_id, scheduled_at, duration_min, title, description, session_type, status, price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending_approval', $10, $11)
		RETURNING %s
	`, sessionColumns)

	return r.scanOne(
		ctx,
		query,
		input.TimeSlotID,
		input.CoachID,
		input.StudentID,
		input.CourseID,
		input.ScheduledAt,
		input.DurationMinutes,
		input.Title,
		input.Description,
		input.SessionType,
		input.Price,
		input.Notes,
	)
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM scheduled_sessions WHERE id = $1`, sessionColumns)
	return r.scanOne(ctx, query, sessionID)
}

func (r *SessionRepository) GetByIDForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM scheduled_sessions WHERE id = $1 FOR UPDATE`, sessionColumns)
	return r.scanOne(ctx, query, sessionID)
}

// HasConflict reports whether any non-terminal session for the coach
// overlaps the half-open interval starting at scheduledAt. Boundary-touching
// intervals do not conflict.
func (r *SessionRepository) HasConflict(
	ctx context.Context,
	coachID int64,
	scheduledAt time.Time,
	durationMinutes int,
	excludeSessionID *int64,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM scheduled_sessions
			WHERE coach_id = $1
			  AND status IN ('pending_approval', 'approved')
			  AND ($4::bigint IS NULL OR id <> $4)
			  AND scheduled_at < ($2::timestamptz + ($3::int * INTERVAL '1 minute'))
			  AND (scheduled_at + (duration_min * INTERVAL '1 minute')) > $2::timestamptz
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, coachID, scheduledAt, durationMinutes, excludeSessionID).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}

// HasConflictOutsideSlot is the overlap test used when booking against a
// slot: sessions sharing that slot are ignored because capacity, not the
// conflict rule, governs them. Group slots stay bookable up to max_bookings.
func (r *SessionRepository) HasConflictOutsideSlot(
	ctx context.Context,
	coachID int64,
	timeSlotID int64,
	scheduledAt time.Time,
	durationMinutes int,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM scheduled_sessions
			WHERE coach_id = $1
			  AND status IN ('pending_approval', 'approved')
			  AND (time_slot_id IS NULL OR time_slot_id <> $4)
			  AND scheduled_at < ($2::timestamptz + ($3::int * INTERVAL '1 minute'))
			  AND (scheduled_at + (duration_min * INTERVAL '1 minute')) > $2::timestamptz
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, coachID, scheduledAt, durationMinutes, timeSlotID).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}

// ListForCoachDate returns the coach's pending or approved sessions whose
// start falls on the given UTC date, for availability expansion.
func (r *SessionRepository) ListForCoachDate(
	ctx context.Context,
	coachID int64,
	date time.Time,
) ([]models.ScheduledSession, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := fmt.Sprintf(`
		SELECT %s
		FROM scheduled_sessions
		WHERE coach_id = $1
		  AND status IN ('pending_approval', 'approved')
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at ASC, id ASC
	`, sessionColumns)

	rows, err := r.db.Query(ctx, query, coachID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

var sessionSortColumns = map[string]string{
	"scheduled_at": "scheduled_at",
	"created_at":   "created_at",
	"price":        "price",
	"status":       "status",
}

// ValidSessionSort reports whether sortBy is on the allow-list for session
// listings. The empty string means the default sort.
func ValidSessionSort(sortBy string) bool {
	if sortBy == "" {
		return true
	}
	_, ok := sessionSortColumns[sortBy]
	return ok
}

func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionListFilter,
) ([]models.ScheduledSession, int, error) {
	args := []any{}
	whereParts := []string{}

	if filter.CoachID > 0 {
		args = append(args, filter.CoachID)
		whereParts = append(whereParts, fmt.Sprintf("coach_id = $%d", len(args)))
	}
	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.CourseID > 0 {
		args = append(args, filter.CourseID)
		whereParts = append(whereParts, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if sessionType := strings.TrimSpace(filter.SessionType); sessionType != "" {
		args = append(args, sessionType)
		whereParts = append(whereParts, fmt.Sprintf("session_type = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		// Matches the coach's or the student's display name.
		whereParts = append(whereParts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM users u WHERE u.id IN (scheduled_sessions.coach_id, scheduled_sessions.student_id) AND u.full_name ILIKE $%d)",
			len(args),
		))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		whereParts = append(whereParts, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		whereParts = append(whereParts, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}

	whereClause := ""
	if len(whereParts) > 0 {
		whereClause = "WHERE " + strings.Join(whereParts, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM scheduled_sessions %s`, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := sessionSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "scheduled_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM scheduled_sessions
		%s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, whereClause, sortColumn, direction, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// ApproveIfPending moves pending_approval -> approved and assigns the
// meeting URL in one compare-and-set; pgx.ErrNoRows means the session was
// not pending.
func (r *SessionRepository) ApproveIfPending(
	ctx context.Context,
	sessionID int64,
	adminNotes *string,
	meetingURL string,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`
		UPDATE scheduled_sessions
		SET status = 'approved', admin_notes = $2, meeting_url = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending_approval'
		RETURNING %s
	`, sessionColumns)
	return r.scanOne(ctx, query, sessionID, adminNotes, meetingURL)
}

func (r *SessionRepository) RejectIfPending(
	ctx context.Context,
	sessionID int64,
	rejectionReason string,
	adminNotes *string,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`
		UPDATE scheduled_sessions
		SET status = 'rejected', rejection_reason = $2, admin_notes = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending_approval'
		RETURNING %s
	`, sessionColumns)
	return r.scanOne(ctx, query, sessionID, rejectionReason, adminNotes)
}

func (r *SessionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	sessionID int64,
	currentStatus string,
	nextStatus string,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`
		UPDATE scheduled_sessions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, sessionColumns)
	return r.scanOne(ctx, query, sessionID, currentStatus, nextStatus)
}

func (r *SessionRepository) CompleteIfApproved(
	ctx context.Context,
	sessionID int64,
	notes *string,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`
		UPDATE scheduled_sessions
		SET status = 'completed', notes = COALESCE($2, notes), updated_at = NOW()
		WHERE id = $1 AND status = 'approved'
		RETURNING %s
	`, sessionColumns)
	return r.scanOne(ctx, query, sessionID, notes)
}

// Reschedule updates the interval and forces the session back to
// pending_approval while it is still pending or approved.
func (r *SessionRepository) Reschedule(
	ctx context.Context,
	sessionID int64,
	scheduledAt time.Time,
	durationMinutes int,
) (*models.ScheduledSession, error) {
	query := fmt.Sprintf(`
		UPDATE scheduled_sessions
		SET scheduled_at = $2, duration_min = $3, status = 'pending_approval', meeting_url = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending_approval', 'approved')
		RETURNING %s
	`, sessionColumns)
	return r.scanOne(ctx, query, sessionID, scheduledAt, durationMinutes)
}

func scanSessions(rows pgx.Rows) ([]models.ScheduledSession, error) {
	sessions := make([]models.ScheduledSession, 0)
	for rows.Next() {
		var session models.ScheduledSession
		if err := rows.Scan(
			&session.ID,
			&session.TimeSlotID,
			&session.CoachID,
			&session.StudentID,
			&session.CourseID,
			&session.ScheduledAt,
			&session.DurationMinutes,
			&session.Title,
			&session.Description,
			&session.SessionType,
			&session.Status,
			&session.Price,
			&session.MeetingURL,
			&session.Notes,
			&session.AdminNotes,
			&session.RejectionReason,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) scanOne(
	ctx context.Context,
	query string,
	args ...any,
) (*models.ScheduledSession, error) {
	var session models.ScheduledSession
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&session.ID,
		&session.TimeSlotID,
		&session.CoachID,
		&session.StudentID,
		&session.CourseID,
		&session.ScheduledAt,
		&session.DurationMinutes,
		&session.Title,
		&session.Description,
		&session.SessionType,
		&session.Status,
		&session.Price,
		&session.MeetingURL,
		&session.Notes,
		&session.AdminNotes,
		&session.RejectionReason,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
