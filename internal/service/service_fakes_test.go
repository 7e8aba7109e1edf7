package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rileyafox/patient-portal/internal/domain"
	"github.com/rileyafox/patient-portal/internal/notify"
)

type fakeUserRepo struct {
	byEmail   map[string]*domain.User
	created   []*domain.User
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	user.CreatedAt = time.Now().UTC()
	r.byEmail[user.Email] = user
	r.created = append(r.created, user)
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeShiftRepo struct {
	shifts    map[string]*domain.Shift
	targets   map[string]*domain.ReminderTarget
	markers   map[string]map[domain.ReminderKind]time.Time
	createErr error
	getErr    error
	markErr   error
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{
		shifts:  make(map[string]*domain.Shift),
		targets: make(map[string]*domain.ReminderTarget),
		markers: make(map[string]map[domain.ReminderKind]time.Time),
	}
}

func (r *fakeShiftRepo) Create(ctx context.Context, shift *domain.Shift) error {
	if r.createErr != nil {
		return r.createErr
	}
	shift.CreatedAt = time.Now().UTC()
	r.shifts[shift.ID] = shift
	return nil
}

func (r *fakeShiftRepo) GetForReminder(ctx context.Context, shiftID string) (*domain.ReminderTarget, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if target, ok := r.targets[shiftID]; ok {
		return target, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeShiftRepo) ListByUser(ctx context.Context, userID string) ([]domain.Shift, error) {
	var result []domain.Shift
	for _, shift := range r.shifts {
		if shift.UserID == userID {
			result = append(result, *shift)
		}
	}
	return result, nil
}

// MarkSent mirrors the conditional column update: first call stamps,
// later calls are no-ops.
func (r *fakeShiftRepo) MarkSent(ctx context.Context, shiftID string, kind domain.ReminderKind) error {
	if r.markErr != nil {
		return r.markErr
	}
	if r.markers[shiftID] == nil {
		r.markers[shiftID] = make(map[domain.ReminderKind]time.Time)
	}
	if _, set := r.markers[shiftID][kind]; !set {
		r.markers[shiftID][kind] = time.Now().UTC()
	}
	return nil
}

type enqueuedJob struct {
	body   []byte
	fireAt time.Time
}

type fakeEnqueuer struct {
	jobs       []enqueuedJob
	enqueueErr error
}

func (q *fakeEnqueuer) Enqueue(ctx context.Context, body []byte, fireAt time.Time) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.jobs = append(q.jobs, enqueuedJob{body: body, fireAt: fireAt})
	return nil
}

type fakeChannel struct {
	name    string
	enabled bool
	sendErr error
	sent    int
}

func (c *fakeChannel) Name() string  { return c.name }
func (c *fakeChannel) Enabled() bool { return c.enabled }

func (c *fakeChannel) Send(ctx context.Context, to notify.Recipient, subject, body string) error {
	c.sent++
	return c.sendErr
}
