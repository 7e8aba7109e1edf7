package domain

import "time"

// User is a portal member who books shifts and receives reminders.
// Users are created on first registration and never mutated afterwards
// by this workflow; registration is idempotent by email.
type User struct {
	ID        string
	Name      string
	Email     string
	PhoneE164 string
	TZ        string
	CreatedAt time.Time
}
