package domain

// ReminderKind identifies which of the two reminders a job delivers.
type ReminderKind string

const (
	ReminderDayBefore ReminderKind = "day_before"
	ReminderTwoHours  ReminderKind = "two_hours"
)

// Valid reports whether the kind is one of the two known values.
func (k ReminderKind) Valid() bool {
	return k == ReminderDayBefore || k == ReminderTwoHours
}

// ReminderJob is the queue message payload. It is transient: the queue,
// not the store, owns its redelivery bookkeeping.
type ReminderJob struct {
	ShiftID string       `json:"shift_id"`
	Kind    ReminderKind `json:"kind"`
}
