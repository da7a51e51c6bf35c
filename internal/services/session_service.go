package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/locks"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
)

const maxBulkBookings = 10

type SessionService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	slotRepo       *repository.TimeSlotRepository
	courseRepo     *repository.CourseRepository
	locker         locks.Locker
	notifications  notificationRecorder
	logger         *zap.Logger
	meetingBaseURL string
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	slotRepo *repository.TimeSlotRepository,
	courseRepo *repository.CourseRepository,
	locker locks.Locker,
	notifications notificationRecorder,
	logger *zap.Logger,
	meetingBaseURL string,
) *SessionService {
	return &SessionService{
		db:             db,
		sessionRepo:    sessionRepo,
		slotRepo:       slotRepo,
		courseRepo:     courseRepo,
		locker:         locker,
		notifications:  notifications,
		logger:         logger,
		meetingBaseURL: meetingBaseURL,
	}
}

type BookSessionInput struct {
	TimeSlotID  int64
	SessionDate time.Time
	CourseID    *int64
	Title       string
	Description *string
	Notes       *string
}

type BulkEntryFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkBookingError reports every entry of an all-or-nothing batch that
// failed validation; the batch was rolled back in full.
type BulkBookingError struct {
	Failures []BulkEntryFailure
}

func (e *BulkBookingError) Error() string {
	return fmt.Sprintf("bulk booking rejected: %d of the entries failed", len(e.Failures))
}

// BookSession books a slot for a concrete date. Capacity and conflicts are
// re-checked at commit time inside one transaction serialized per coach, so
// two racing bookings cannot both pass against stale reads.
func (s *SessionService) BookSession(
	ctx context.Context,
	actor models.Actor,
	input BookSessionInput,
) (*models.ScheduledSession, error) {
	if !actor.IsStudent() {
		return nil, ErrForbidden
	}

	slot, err := s.slotRepo.GetDetailByID(ctx, input.TimeSlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: time slot", ErrNotFound)
		}
		return nil, err
	}

	var session *models.ScheduledSession
	err = s.locker.WithCoachLock(ctx, slot.CoachID, func(lockCtx context.Context) error {
		tx, err := s.db.Begin(lockCtx)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback(lockCtx)
		}()

		if _, err := tx.Exec(lockCtx, "SELECT pg_advisory_xact_lock($1)", slot.CoachID); err != nil {
			return err
		}

		session, err = s.bookInTx(lockCtx, tx, actor.ID, input)
		if err != nil {
			return err
		}
		return tx.Commit(lockCtx)
	})
	if err != nil {
		if errors.Is(err, locks.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: coach is being booked, retry", ErrConflict)
		}
		return nil, err
	}

	s.notifications.Record(ctx, session.CoachID, models.NotificationSessionBooked, map[string]any{
		"session_id":   session.ID,
		"student_id":   session.StudentID,
		"scheduled_at": session.ScheduledAt,
	})
	s.logger.Info("session booked",
		zap.Int64("session_id", session.ID),
		zap.Int64("coach_id", session.CoachID),
		zap.Int64("student_id", session.StudentID),
	)
	return session, nil
}

// bookInTx runs the capacity and conflict checked booking sequence against
// the given transaction. Shared by single and bulk booking.
func (s *SessionService) bookInTx(
	ctx context.Context,
	tx pgx.Tx,
	studentID int64,
	input BookSessionInput,
) (*models.ScheduledSession, error) {
	txSlotRepo := repository.NewTimeSlotRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)
	txCourseRepo := repository.NewCourseRepository(tx)

	slot, err := txSlotRepo.GetDetailByID(ctx, input.TimeSlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: time slot", ErrNotFound)
		}
		return nil, err
	}
	if !slot.IsAvailable || !slot.AvailabilityActive {
		return nil, fmt.Errorf("%w: time slot", ErrNotFound)
	}
	if slot.AvailabilityApproval != models.ApprovalApproved {
		return nil, fmt.Errorf("%w: availability is not approved", ErrValidation)
	}

	sessionDate := input.SessionDate.UTC()
	if int(sessionDate.Weekday()) != slot.DayOfWeek {
		return nil, fmt.Errorf("%w: session date does not fall on the slot's day of week", ErrValidation)
	}
	if sessionDate.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		return nil, fmt.Errorf("%w: session date is in the past", ErrValidation)
	}

	startMinutes, err := parseClock(slot.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	endMinutes, err := parseClock(slot.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	scheduledAt := combineDateClock(sessionDate, startMinutes)
	duration := endMinutes - startMinutes
	if duration < minSessionMinutes || duration > maxSessionMinutes {
		return nil, fmt.Errorf("%w: duration must be between %d and %d minutes", ErrValidation, minSessionMinutes, maxSessionMinutes)
	}

	if input.CourseID != nil {
		course, err := txCourseRepo.GetByID(ctx, *input.CourseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: course", ErrNotFound)
			}
			return nil, err
		}
		if course.CoachID != slot.CoachID {
			return nil, fmt.Errorf("%w: course does not belong to the slot's coach", ErrValidation)
		}
		if course.ApprovalStatus != models.ApprovalApproved {
			return nil, fmt.Errorf("%w: course is not approved", ErrValidation)
		}
	}

	claimed, err := txSlotRepo.ClaimCapacity(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrCapacityExceeded
	}

	// Sessions on this slot are already accounted for by the capacity claim
	// above; only sessions booked elsewhere can collide.
	hasConflict, err := txSessionRepo.HasConflictOutsideSlot(ctx, slot.CoachID, slot.ID, scheduledAt, duration)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, ErrConflict
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = fmt.Sprintf("%s session", strings.ReplaceAll(slot.SessionType, "_", " "))
	}

	return txSessionRepo.Create(ctx, repository.CreateSessionInput{
		TimeSlotID:      &slot.ID,
		CoachID:         slot.CoachID,
		StudentID:       studentID,
		CourseID:        input.CourseID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: duration,
		Title:           title,
		Description:     input.Description,
		SessionType:     slot.SessionType,
		Price:           slot.Price,
		Notes:           input.Notes,
	})
}

// BulkBookSessions books up to ten entries all-or-nothing: every entry is
// validated inside one transaction and the first failure does not stop
// validation of the rest, but any failure rolls the whole batch back.
func (s *SessionService) BulkBookSessions(
	ctx context.Context,
	actor models.Actor,
	courseID *int64,
	entries []BookSessionInput,
) ([]models.ScheduledSession, error) {
	if !actor.IsStudent() {
		return nil, ErrForbidden
	}
	if len(entries) == 0 || len(entries) > maxBulkBookings {
		return nil, fmt.Errorf("%w: between 1 and %d entries are required", ErrValidation, maxBulkBookings)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	booked := make([]models.ScheduledSession, 0, len(entries))
	failures := make([]BulkEntryFailure, 0)
	lockedCoaches := make(map[int64]struct{})

	for i, entry := range entries {
		if courseID != nil {
			entry.CourseID = courseID
		}

		slot, err := repository.NewTimeSlotRepository(tx).GetDetailByID(ctx, entry.TimeSlotID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				failures = append(failures, BulkEntryFailure{Index: i, Reason: "time slot not found"})
				continue
			}
			return nil, err
		}
		if _, ok := lockedCoaches[slot.CoachID]; !ok {
			if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", slot.CoachID); err != nil {
				return nil, err
			}
			lockedCoaches[slot.CoachID] = struct{}{}
		}

		session, err := s.bookInTx(ctx, tx, actor.ID, entry)
		if err != nil {
			if isBulkEntryError(err) {
				failures = append(failures, BulkEntryFailure{Index: i, Reason: err.Error()})
				continue
			}
			return nil, err
		}
		booked = append(booked, *session)
	}

	if len(failures) > 0 {
		return nil, &BulkBookingError{Failures: failures}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	for _, session := range booked {
		s.notifications.Record(ctx, session.CoachID, models.NotificationSessionBooked, map[string]any{
			"session_id":   session.ID,
			"student_id":   session.StudentID,
			"scheduled_at": session.ScheduledAt,
		})
	}
	s.logger.Info("bulk booking committed",
		zap.Int64("student_id", actor.ID),
		zap.Int("sessions", len(booked)),
	)
	return booked, nil
}

func isBulkEntryError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrCapacityExceeded)
}

// ApproveSession moves a pending session to approved and assigns the
// meeting room. Admin only.
func (s *SessionService) ApproveSession(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
	adminNotes *string,
) (*models.ScheduledSession, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	meetingURL := fmt.Sprintf("%s/%s", strings.TrimRight(s.meetingBaseURL, "/"), uuid.NewString())
	session, err := s.sessionRepo.ApproveIfPending(ctx, sessionID, adminNotes, meetingURL)
	if err != nil {
		return nil, s.mapMissingTransition(ctx, sessionID, err)
	}

	payload := map[string]any{
		"session_id":   session.ID,
		"scheduled_at": session.ScheduledAt,
		"meeting_url":  meetingURL,
	}
	if adminNotes != nil {
		payload["admin_notes"] = *adminNotes
	}
	s.notifications.Record(ctx, session.StudentID, models.NotificationSessionApproved, payload)
	s.notifications.Record(ctx, session.CoachID, models.NotificationSessionApproved, payload)
	return session, nil
}

// RejectSession rejects a pending session and releases the slot capacity it
// had claimed. Admin only.
func (s *SessionService) RejectSession(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
	rejectionReason string,
	adminNotes *string,
) (*models.ScheduledSession, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(rejectionReason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txSlotRepo := repository.NewTimeSlotRepository(tx)

	session, err := txSessionRepo.RejectIfPending(ctx, sessionID, rejectionReason, adminNotes)
	if err != nil {
		return nil, s.mapMissingTransition(ctx, sessionID, err)
	}
	if session.TimeSlotID != nil {
		if err := txSlotRepo.ReleaseCapacity(ctx, *session.TimeSlotID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"session_id": session.ID,
		"reason":     rejectionReason,
	}
	if adminNotes != nil {
		payload["admin_notes"] = *adminNotes
	}
	s.notifications.Record(ctx, session.StudentID, models.NotificationSessionRejected, payload)
	s.notifications.Record(ctx, session.CoachID, models.NotificationSessionRejected, payload)
	return session, nil
}

// RescheduleSession moves a pending or approved session to a new interval.
// An approved session drops back to pending_approval so the time change
// passes admin review again.
func (s *SessionService) RescheduleSession(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
	newStart time.Time,
	newDurationMinutes int,
	reason *string,
) (*models.ScheduledSession, error) {
	if newDurationMinutes < minSessionMinutes || newDurationMinutes > maxSessionMinutes {
		return nil, fmt.Errorf("%w: duration must be between %d and %d minutes", ErrValidation, minSessionMinutes, maxSessionMinutes)
	}

	current, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		return nil, err
	}
	if !canAccessSession(actor, current) {
		return nil, ErrForbidden
	}
	if models.TerminalStatus(current.Status) {
		return nil, ErrInvalidStateTransition
	}

	var updated *models.ScheduledSession
	err = s.locker.WithCoachLock(ctx, current.CoachID, func(lockCtx context.Context) error {
		tx, err := s.db.Begin(lockCtx)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback(lockCtx)
		}()

		if _, err := tx.Exec(lockCtx, "SELECT pg_advisory_xact_lock($1)", current.CoachID); err != nil {
			return err
		}

		txSessionRepo := repository.NewSessionRepository(tx)

		hasConflict, err := txSessionRepo.HasConflict(lockCtx, current.CoachID, newStart.UTC(), newDurationMinutes, &sessionID)
		if err != nil {
			return err
		}
		if hasConflict {
			return ErrConflict
		}

		updated, err = txSessionRepo.Reschedule(lockCtx, sessionID, newStart.UTC(), newDurationMinutes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidStateTransition
			}
			return err
		}
		return tx.Commit(lockCtx)
	})
	if err != nil {
		if errors.Is(err, locks.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: coach is being booked, retry", ErrConflict)
		}
		return nil, err
	}

	payload := map[string]any{
		"session_id":   updated.ID,
		"scheduled_at": updated.ScheduledAt,
	}
	if reason != nil {
		payload["reason"] = *reason
	}
	recipient := updated.CoachID
	if actor.ID == updated.CoachID {
		recipient = updated.StudentID
	}
	s.notifications.Record(ctx, recipient, models.NotificationSessionRescheduled, payload)
	return updated, nil
}

// CancelSession cancels an approved session and releases the slot booking.
func (s *SessionService) CancelSession(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
) (*models.ScheduledSession, error) {
	current, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		return nil, err
	}
	if !canAccessSession(actor, current) {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txSlotRepo := repository.NewTimeSlotRepository(tx)

	session, err := txSessionRepo.UpdateStatusIfCurrent(ctx, sessionID, models.SessionApproved, models.SessionCancelled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	if session.TimeSlotID != nil {
		if err := txSlotRepo.ReleaseCapacity(ctx, *session.TimeSlotID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	recipient := session.CoachID
	if actor.ID == session.CoachID {
		recipient = session.StudentID
	}
	s.notifications.Record(ctx, recipient, models.NotificationSessionCancelled, map[string]any{
		"session_id":   session.ID,
		"scheduled_at": session.ScheduledAt,
	})
	return session, nil
}

// CompleteSession marks an approved session completed. Coach or admin only;
// the slot keeps its consumed booking.
func (s *SessionService) CompleteSession(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
	notes *string,
) (*models.ScheduledSession, error) {
	if err := s.authorizeCoachTransition(ctx, actor, sessionID); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.CompleteIfApproved(ctx, sessionID, notes)
	if err != nil {
		return nil, s.mapMissingTransition(ctx, sessionID, err)
	}
	return session, nil
}

// MarkNoShow marks an approved session as a no-show. Coach or admin only.
func (s *SessionService) MarkNoShow(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
) (*models.ScheduledSession, error) {
	if err := s.authorizeCoachTransition(ctx, actor, sessionID); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.UpdateStatusIfCurrent(ctx, sessionID, models.SessionApproved, models.SessionNoShow)
	if err != nil {
		return nil, s.mapMissingTransition(ctx, sessionID, err)
	}
	return session, nil
}

// CheckConflicts is the read-only overlap probe exposed to clients.
func (s *SessionService) CheckConflicts(
	ctx context.Context,
	coachID int64,
	start time.Time,
	durationMinutes int,
	excludeSessionID *int64,
) (bool, error) {
	if durationMinutes <= 0 {
		return false, fmt.Errorf("%w: duration must be greater than 0", ErrValidation)
	}
	return s.sessionRepo.HasConflict(ctx, coachID, start.UTC(), durationMinutes, excludeSessionID)
}

// GetAvailableSlots lists the coach's bookable slots on a concrete date,
// dropping any slot whose instantiated interval would conflict with an
// existing session.
func (s *SessionService) GetAvailableSlots(
	ctx context.Context,
	coachID int64,
	date time.Time,
	sessionType string,
) ([]models.TimeSlot, error) {
	if sessionType != "" && !models.ValidSessionType(sessionType) {
		return nil, fmt.Errorf("%w: unknown session_type %q", ErrValidation, sessionType)
	}

	date = date.UTC()
	slots, err := s.slotRepo.ListBookable(ctx, coachID, int(date.Weekday()), sessionType)
	if err != nil {
		return nil, err
	}

	available := make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		startMinutes, err := parseClock(slot.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		endMinutes, err := parseClock(slot.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}

		// ListBookable already filtered full slots; sessions on the slot
		// itself count against capacity, not the conflict rule.
		hasConflict, err := s.sessionRepo.HasConflictOutsideSlot(ctx, coachID, slot.ID, combineDateClock(date, startMinutes), endMinutes-startMinutes)
		if err != nil {
			return nil, err
		}
		if !hasConflict {
			available = append(available, slot)
		}
	}
	return available, nil
}

// ListSessions is role-scoped: students and coaches only see their own
// sessions, admins see everything the filter allows.
func (s *SessionService) ListSessions(
	ctx context.Context,
	actor models.Actor,
	filter repository.SessionListFilter,
) ([]models.ScheduledSession, int, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.ID
	case models.RoleCoach:
		filter.CoachID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, 0, ErrForbidden
	}
	return s.sessionRepo.List(ctx, filter)
}

func (s *SessionService) GetSession(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
) (*models.ScheduledSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		return nil, err
	}
	if !canAccessSession(actor, session) {
		return nil, ErrForbidden
	}
	return session, nil
}

func (s *SessionService) authorizeCoachTransition(
	ctx context.Context,
	actor models.Actor,
	sessionID int64,
) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: session", ErrNotFound)
		}
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsCoach() && session.CoachID == actor.ID {
		return nil
	}
	return ErrForbidden
}

// mapMissingTransition distinguishes "session does not exist" from
// "session exists but is in the wrong state" after a compare-and-set
// update matched zero rows.
func (s *SessionService) mapMissingTransition(ctx context.Context, sessionID int64, err error) error {
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if _, getErr := s.sessionRepo.GetByID(ctx, sessionID); getErr != nil {
		return fmt.Errorf("%w: session", ErrNotFound)
	}
	return ErrInvalidStateTransition
}

func canAccessSession(actor models.Actor, session *models.ScheduledSession) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.IsCoach() {
		return session.CoachID == actor.ID
	}
	if actor.IsStudent() {
		return session.StudentID == actor.ID
	}
	return false
}
