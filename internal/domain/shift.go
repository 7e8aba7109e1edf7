package domain

import "time"

// Shift is a booked work period. StartUTC and StartLocal denote the same
// instant: StartLocal is the user-supplied wall clock paired with TZ, and
// StartUTC is its projection used for scheduling and comparisons.
type Shift struct {
	ID         string
	UserID     string
	StartUTC   time.Time
	StartLocal time.Time
	TZ         string
	Notes      string
	CreatedAt  time.Time

	// Sent markers are set at most once each, after a delivery the
	// dispatcher considers successful for that reminder kind.
	DayBeforeSentAt *time.Time
	TwoHoursSentAt  *time.Time
}

// ReminderTarget is the join of a shift and its owning user, fetched for
// one reminder dispatch.
type ReminderTarget struct {
	ShiftID    string
	StartUTC   time.Time
	StartLocal time.Time
	TZ         string
	UserName   string
	UserEmail  string
	UserPhone  string
}
