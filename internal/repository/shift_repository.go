package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rileyafox/patient-portal/internal/domain"
)

// ShiftRepository encapsulates shift persistence.
type ShiftRepository interface {
	Create(ctx context.Context, shift *domain.Shift) error
	// GetForReminder joins the shift with its user for one dispatch.
	// Returns pgx.ErrNoRows when the shift no longer exists.
	GetForReminder(ctx context.Context, shiftID string) (*domain.ReminderTarget, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Shift, error)
	// MarkSent stamps the marker for kind only if it is still null.
	// Repeated calls affect zero rows and succeed; a set marker is
	// never overwritten.
	MarkSent(ctx context.Context, shiftID string, kind domain.ReminderKind) error
}

type shiftRepository struct {
	pool *pgxpool.Pool
}

// NewShiftRepository instantiates repository.
func NewShiftRepository(pool *pgxpool.Pool) ShiftRepository {
	return &shiftRepository{pool: pool}
}

func (r *shiftRepository) Create(ctx context.Context, shift *domain.Shift) error {
	const query = `
        INSERT INTO shifts (shift_id, user_id, shift_start_utc, shift_start_local, tz, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		shift.ID,
		shift.UserID,
		shift.StartUTC,
		shift.StartLocal,
		shift.TZ,
		shift.Notes,
	).Scan(&shift.CreatedAt)
}

func (r *shiftRepository) GetForReminder(ctx context.Context, shiftID string) (*domain.ReminderTarget, error) {
	const query = `
        SELECT s.shift_id, s.shift_start_utc, s.shift_start_local, s.tz,
               u.name, u.email, u.phone_e164
        FROM shifts s
        JOIN users u ON s.user_id = u.user_id
        WHERE s.shift_id=$1`

	var target domain.ReminderTarget
	if err := r.pool.QueryRow(ctx, query, shiftID).Scan(
		&target.ShiftID,
		&target.StartUTC,
		&target.StartLocal,
		&target.TZ,
		&target.UserName,
		&target.UserEmail,
		&target.UserPhone,
	); err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *shiftRepository) ListByUser(ctx context.Context, userID string) ([]domain.Shift, error) {
	const query = `
        SELECT shift_id, user_id, shift_start_utc, shift_start_local, tz, notes,
               created_at, day_before_sent_at, two_hours_sent_at
        FROM shifts
        WHERE user_id=$1
        ORDER BY shift_start_local DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Shift
	for rows.Next() {
		var shift domain.Shift
		if err := rows.Scan(
			&shift.ID,
			&shift.UserID,
			&shift.StartUTC,
			&shift.StartLocal,
			&shift.TZ,
			&shift.Notes,
			&shift.CreatedAt,
			&shift.DayBeforeSentAt,
			&shift.TwoHoursSentAt,
		); err != nil {
			return nil, err
		}
		result = append(result, shift)
	}
	return result, rows.Err()
}

func (r *shiftRepository) MarkSent(ctx context.Context, shiftID string, kind domain.ReminderKind) error {
	column, err := markerColumn(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE shifts SET %s = NOW() WHERE shift_id=$1 AND %s IS NULL`,
		column, column,
	)
	_, err = r.pool.Exec(ctx, query, shiftID)
	return err
}

func markerColumn(kind domain.ReminderKind) (string, error) {
	switch kind {
	case domain.ReminderDayBefore:
		return "day_before_sent_at", nil
	case domain.ReminderTwoHours:
		return "two_hours_sent_at", nil
	default:
		return "", fmt.Errorf("unknown reminder kind %q", kind)
	}
}
