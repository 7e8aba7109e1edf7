package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/domain"
	"github.com/rileyafox/patient-portal/internal/observability"
	"github.com/rileyafox/patient-portal/internal/queue"
	"github.com/rileyafox/patient-portal/internal/repository"
	"github.com/rileyafox/patient-portal/internal/timezone"
)

// BookingService coordinates user registration, shift booking and
// reminder scheduling.
type BookingService struct {
	users    repository.UserRepository
	shifts   repository.ShiftRepository
	queue    queue.Enqueuer
	resolver *timezone.Resolver
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// BookingDependencies bundles collaborators for the booking service.
// Queue may be nil when reminder scheduling is not configured.
type BookingDependencies struct {
	UserRepo  repository.UserRepository
	ShiftRepo repository.ShiftRepository
	Queue     queue.Enqueuer
	Resolver  *timezone.Resolver
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// BookShiftInput describes a booking request.
type BookShiftInput struct {
	UserID   string
	LocalISO string
	TZ       string
	Notes    string
}

// BookShiftResult is the booking outcome. Warning is set when the
// booking committed but reminder scheduling failed afterwards.
type BookShiftResult struct {
	ShiftID  string
	StartUTC time.Time
	Warning  string
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	return &BookingService{
		users:    deps.UserRepo,
		shifts:   deps.ShiftRepo,
		queue:    deps.Queue,
		resolver: deps.Resolver,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// RegisterUser creates a user, or returns the existing id when the
// email is already registered. Re-registering never duplicates.
func (s *BookingService) RegisterUser(ctx context.Context, name, email, phone, tzName string) (string, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		PhoneE164: strings.TrimSpace(phone),
		TZ:        tzName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user.ID, nil
}

// BookShift converts the local start time, persists the shift, and
// schedules the two reminder jobs. A scheduling failure after the
// committed insert is reported as a warning, never a rollback.
func (s *BookingService) BookShift(ctx context.Context, input BookShiftInput) (*BookShiftResult, error) {
	local, startUTC, err := s.resolver.ParseLocal(input.LocalISO, input.TZ)
	if err != nil {
		return nil, err
	}

	shift := &domain.Shift{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		StartUTC:   startUTC,
		StartLocal: timezone.Naive(local),
		TZ:         input.TZ,
		Notes:      input.Notes,
	}
	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, err
	}

	result := &BookShiftResult{ShiftID: shift.ID, StartUTC: startUTC}
	if err := s.scheduleReminders(ctx, shift.ID, startUTC); err != nil {
		s.logger.Error("reminder scheduling failed", zap.String("shift_id", shift.ID), zap.Error(err))
		result.Warning = fmt.Sprintf("scheduled reminders failed: %v", err)
	}

	return result, nil
}

// scheduleReminders enqueues the day-before and two-hours jobs. Fire
// times in the past are submitted as-is; the queue decides whether they
// fire immediately.
func (s *BookingService) scheduleReminders(ctx context.Context, shiftID string, startUTC time.Time) error {
	if s.queue == nil {
		s.logger.Debug("queue not configured; skipping reminder scheduling",
			zap.String("shift_id", shiftID))
		return nil
	}

	jobs := []struct {
		kind   domain.ReminderKind
		fireAt time.Time
	}{
		{domain.ReminderDayBefore, startUTC.Add(-24 * time.Hour)},
		{domain.ReminderTwoHours, startUTC.Add(-2 * time.Hour)},
	}

	var errs []error
	for _, job := range jobs {
		body, err := json.Marshal(domain.ReminderJob{ShiftID: shiftID, Kind: job.kind})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.queue.Enqueue(ctx, body, job.fireAt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.kind, err))
			continue
		}
		s.metrics.RecordEvent(observability.EventReminderScheduled)
	}
	return errors.Join(errs...)
}

// ListShifts returns the user's shifts, most recent local start first.
func (s *BookingService) ListShifts(ctx context.Context, userID string) ([]domain.Shift, error) {
	return s.shifts.ListByUser(ctx, userID)
}
