package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/models"
	"github.com/Aravindh2003/Luminary-Backend-sub001/internal/repository"
)

// notificationRecorder is the fire-and-forget side channel the schedulers
// append to; implementations must never return an error to the caller.
type notificationRecorder interface {
	Record(ctx context.Context, recipientUserID int64, notificationType string, payload map[string]any)
}

type SlotEntryInput struct {
	StartTime   string
	EndTime     string
	IsAvailable bool
	MaxBookings int
	Price       float64
	SessionType string
}

type DayEntryInput struct {
	DayOfWeek int
	IsActive  bool
	Slots     []SlotEntryInput
}

type AvailabilityService struct {
	db            *pgxpool.Pool
	availRepo     *repository.AvailabilityRepository
	sessionRepo   *repository.SessionRepository
	notifications notificationRecorder
	logger        *zap.Logger
}

func NewAvailabilityService(
	db *pgxpool.Pool,
	availRepo *repository.AvailabilityRepository,
	sessionRepo *repository.SessionRepository,
	notifications notificationRecorder,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		db:            db,
		availRepo:     availRepo,
		sessionRepo:   sessionRepo,
		notifications: notifications,
		logger:        logger,
	}
}

// SetAvailability wholesale replaces the coach's slots for the listed days.
// Every edited day drops back to pending approval.
func (s *AvailabilityService) SetAvailability(
	ctx context.Context,
	actor models.Actor,
	days []DayEntryInput,
) ([]models.Availability, error) {
	if !actor.IsCoach() {
		return nil, ErrForbidden
	}
	if err := validateDayEntries(days); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txAvailRepo := repository.NewAvailabilityRepository(tx)

	updated := make([]models.Availability, 0, len(days))
	for _, day := range days {
		availability, err := txAvailRepo.UpsertDay(ctx, actor.ID, day.DayOfWeek, day.IsActive)
		if err != nil {
			return nil, err
		}
		if err := txAvailRepo.DeleteSlots(ctx, availability.ID); err != nil {
			return nil, err
		}
		for _, slot := range day.Slots {
			inserted, err := txAvailRepo.InsertSlot(ctx, availability.ID, repository.SlotInput{
				StartTime:   slot.StartTime,
				EndTime:     slot.EndTime,
				IsAvailable: slot.IsAvailable,
				MaxBookings: slot.MaxBookings,
				Price:       slot.Price,
				SessionType: slot.SessionType,
			})
			if err != nil {
				return nil, err
			}
			availability.Slots = append(availability.Slots, *inserted)
		}
		updated = append(updated, *availability)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("availability replaced",
		zap.Int64("coach_id", actor.ID),
		zap.Int("days", len(days)),
	)
	return updated, nil
}

// GetAvailability returns the coach's weekly template. With a date it also
// expands that date's day of week into per-slot occupancy, merging in the
// sessions already scheduled on the date.
func (s *AvailabilityService) GetAvailability(
	ctx context.Context,
	coachID int64,
	date *time.Time,
) ([]models.Availability, *models.DaySchedule, error) {
	week, err := s.availRepo.ListByCoach(ctx, coachID)
	if err != nil {
		return nil, nil, err
	}
	if date == nil {
		return week, nil, nil
	}

	dayOfWeek := int(date.UTC().Weekday())
	schedule := &models.DaySchedule{
		Date:      date.UTC().Format("2006-01-02"),
		DayOfWeek: dayOfWeek,
		Slots:     make([]models.SlotOccupancy, 0),
	}

	var dayTemplate *models.Availability
	for i := range week {
		if week[i].DayOfWeek == dayOfWeek {
			dayTemplate = &week[i]
			break
		}
	}
	if dayTemplate == nil || !dayTemplate.IsActive {
		return week, schedule, nil
	}

	sessions, err := s.sessionRepo.ListForCoachDate(ctx, coachID, date.UTC())
	if err != nil {
		return nil, nil, err
	}

	for _, slot := range dayTemplate.Slots {
		startMinutes, err := parseClock(slot.StartTime)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		endMinutes, err := parseClock(slot.EndTime)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}

		occupancy := models.SlotOccupancy{
			TimeSlot:          slot,
			RemainingCapacity: slot.MaxBookings - slot.CurrentBookings,
			BookedSessions:    make([]models.ScheduledSession, 0),
		}
		slotStart := combineDateClock(date.UTC(), startMinutes)
		slotEnd := combineDateClock(date.UTC(), endMinutes)
		for _, session := range sessions {
			if session.ScheduledAt.Before(slotEnd) && session.EndsAt().After(slotStart) {
				occupancy.BookedSessions = append(occupancy.BookedSessions, session)
			}
		}
		schedule.Slots = append(schedule.Slots, occupancy)
	}
	return week, schedule, nil
}

func (s *AvailabilityService) ListAllAvailabilities(
	ctx context.Context,
	actor models.Actor,
	filter repository.AvailabilityListFilter,
) ([]models.Availability, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return s.availRepo.ListAll(ctx, filter)
}

func (s *AvailabilityService) ApproveAvailability(
	ctx context.Context,
	actor models.Actor,
	availabilityID int64,
	adminNotes *string,
) (*models.Availability, error) {
	return s.reviewAvailability(ctx, actor, availabilityID, models.ApprovalApproved, adminNotes, nil)
}

func (s *AvailabilityService) RejectAvailability(
	ctx context.Context,
	actor models.Actor,
	availabilityID int64,
	rejectionReason string,
	adminNotes *string,
) (*models.Availability, error) {
	if rejectionReason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	return s.reviewAvailability(ctx, actor, availabilityID, models.ApprovalRejected, adminNotes, &rejectionReason)
}

func (s *AvailabilityService) reviewAvailability(
	ctx context.Context,
	actor models.Actor,
	availabilityID int64,
	status string,
	adminNotes *string,
	rejectionReason *string,
) (*models.Availability, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	availability, err := s.availRepo.UpdateApprovalIfPending(ctx, availabilityID, status, adminNotes, rejectionReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.availRepo.GetByID(ctx, availabilityID); getErr != nil {
				return nil, ErrNotFound
			}
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	notificationType := models.NotificationAvailabilityApproved
	if status == models.ApprovalRejected {
		notificationType = models.NotificationAvailabilityRejected
	}
	payload := map[string]any{
		"availability_id": availability.ID,
		"day_of_week":     availability.DayOfWeek,
	}
	if rejectionReason != nil {
		payload["reason"] = *rejectionReason
	}
	if adminNotes != nil {
		payload["admin_notes"] = *adminNotes
	}
	s.notifications.Record(ctx, availability.CoachID, notificationType, payload)

	return availability, nil
}

func validateDayEntries(days []DayEntryInput) error {
	if len(days) == 0 {
		return fmt.Errorf("%w: at least one day entry is required", ErrValidation)
	}

	seenDays := make(map[int]struct{}, len(days))
	for _, day := range days {
		if day.DayOfWeek < 0 || day.DayOfWeek > 6 {
			return fmt.Errorf("%w: day_of_week must be between 0 and 6", ErrValidation)
		}
		if _, ok := seenDays[day.DayOfWeek]; ok {
			return fmt.Errorf("%w: duplicate day_of_week %d", ErrValidation, day.DayOfWeek)
		}
		seenDays[day.DayOfWeek] = struct{}{}

		if err := validateSlotEntries(day.DayOfWeek, day.Slots); err != nil {
			return err
		}
	}
	return nil
}

func validateSlotEntries(dayOfWeek int, slots []SlotEntryInput) error {
	type slotRange struct {
		start int
		end   int
	}

	ranges := make([]slotRange, 0, len(slots))
	for _, slot := range slots {
		start, err := parseClock(slot.StartTime)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		end, err := parseClock(slot.EndTime)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if end <= start {
			return fmt.Errorf("%w: end_time must be after start_time (%s-%s)", ErrValidation, slot.StartTime, slot.EndTime)
		}
		if slot.MaxBookings < 1 {
			return fmt.Errorf("%w: max_bookings must be at least 1", ErrValidation)
		}
		if slot.Price < 0 {
			return fmt.Errorf("%w: price must not be negative", ErrValidation)
		}
		if !models.ValidSessionType(slot.SessionType) {
			return fmt.Errorf("%w: unknown session_type %q", ErrValidation, slot.SessionType)
		}
		ranges = append(ranges, slotRange{start: start, end: end})
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	for i := 1; i < len(ranges); i++ {
		if rangesOverlap(ranges[i-1].start, ranges[i-1].end, ranges[i].start, ranges[i].end) {
			return fmt.Errorf("%w: overlapping slots on day %d", ErrValidation, dayOfWeek)
		}
	}
	return nil
}
