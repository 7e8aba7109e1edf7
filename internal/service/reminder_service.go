package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/domain"
	"github.com/rileyafox/patient-portal/internal/notify"
	"github.com/rileyafox/patient-portal/internal/observability"
	"github.com/rileyafox/patient-portal/internal/repository"
	apperrors "github.com/rileyafox/patient-portal/pkg/util"
)

// ReminderService dispatches one reminder notification per queue job.
//
// Per-job outcomes: a malformed payload or a vanished shift is dropped
// (acknowledged, never retried); a delivery where no enabled channel
// succeeds, or a failed marker write, returns a retryable error so the
// queue redelivers. Channels must therefore tolerate repeat invocation;
// a duplicate reminder is a nuisance, not a correctness violation.
type ReminderService struct {
	shifts   repository.ShiftRepository
	channels []notify.Channel
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewReminderService constructs the dispatcher. Channels are attempted
// in the given order.
func NewReminderService(shifts repository.ShiftRepository, channels []notify.Channel, logger *zap.Logger, metrics *observability.Metrics) *ReminderService {
	return &ReminderService{
		shifts:   shifts,
		channels: channels,
		logger:   logger,
		metrics:  metrics,
	}
}

// HandleMessage processes one delivered queue message body.
func (s *ReminderService) HandleMessage(ctx context.Context, body []byte) error {
	var job domain.ReminderJob
	if err := json.Unmarshal(body, &job); err != nil || job.ShiftID == "" || !job.Kind.Valid() {
		// A malformed message will never become well-formed.
		s.logger.Error("dropping malformed reminder message",
			zap.ByteString("body", body), zap.Error(err))
		s.metrics.RecordEvent(observability.EventReminderDropped)
		return nil
	}

	target, err := s.shifts.GetForReminder(ctx, job.ShiftID)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("shift not found; dropping reminder",
			zap.String("shift_id", job.ShiftID), zap.String("kind", string(job.Kind)))
		s.metrics.RecordEvent(observability.EventReminderDropped)
		return nil
	}
	if err != nil {
		return apperrors.NewRetryable(fmt.Errorf("load shift %s: %w", job.ShiftID, err))
	}

	subject, text := composeReminder(job.Kind, target)
	recipient := notify.Recipient{
		Name:  target.UserName,
		Email: target.UserEmail,
		Phone: target.UserPhone,
	}

	if !s.attemptDelivery(ctx, recipient, subject, text, job) {
		s.metrics.RecordEvent(observability.EventReminderFailed)
		return apperrors.NewRetryable(errors.New("no delivery channel succeeded"))
	}

	if err := s.shifts.MarkSent(ctx, job.ShiftID, job.Kind); err != nil {
		return apperrors.NewRetryable(fmt.Errorf("mark %s sent for shift %s: %w", job.Kind, job.ShiftID, err))
	}

	s.metrics.RecordEvent(observability.EventReminderDelivered)
	s.logger.Info("reminder delivered",
		zap.String("shift_id", job.ShiftID), zap.String("kind", string(job.Kind)))
	return nil
}

// attemptDelivery tries each channel independently. A disabled channel
// is skipped without counting as a failure; success of either channel
// is enough.
func (s *ReminderService) attemptDelivery(ctx context.Context, to notify.Recipient, subject, text string, job domain.ReminderJob) bool {
	delivered := false
	for _, channel := range s.channels {
		if !channel.Enabled() {
			s.logger.Info("channel disabled; skipping",
				zap.String("channel", channel.Name()), zap.String("shift_id", job.ShiftID))
			continue
		}
		if err := channel.Send(ctx, to, subject, text); err != nil {
			s.logger.Error("channel send failed",
				zap.String("channel", channel.Name()),
				zap.String("shift_id", job.ShiftID),
				zap.Error(err))
			continue
		}
		delivered = true
	}
	return delivered
}

// composeReminder renders the canned subject and body for a kind.
func composeReminder(kind domain.ReminderKind, target *domain.ReminderTarget) (subject, text string) {
	window := "in about 2 hours"
	subject = "Reminder: your shift is in ~2 hours"
	if kind == domain.ReminderDayBefore {
		window = "tomorrow"
		subject = "Reminder: your shift is tomorrow"
	}

	localStr := target.StartLocal.Format("2006-01-02T15:04:05")
	utcStr := target.StartUTC.UTC().Format("2006-01-02T15:04:05-07:00")
	text = fmt.Sprintf(
		"Hi %s, this is a reminder that your shift is %s.\n"+
			"Local time: %s (%s)\n"+
			"UTC time:   %s\n"+
			"Reply YES to acknowledge (if SMS is enabled).",
		target.UserName, window, localStr, target.TZ, utcStr,
	)
	return subject, text
}
