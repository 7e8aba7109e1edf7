package dto

// ShiftBookRequest payload for POST /shifts.
type ShiftBookRequest struct {
	UserID        string `json:"user_id"`
	ShiftLocalISO string `json:"shift_local_iso"`
	TZ            string `json:"tz"`
	Notes         string `json:"notes"`
}

// ShiftBookResponse returns the booked shift. Warning is present only
// when the booking committed but reminder scheduling failed.
type ShiftBookResponse struct {
	ShiftID       string `json:"shift_id"`
	ShiftStartUTC string `json:"shift_start_utc"`
	Warning       string `json:"warning,omitempty"`
}

// ShiftListItem is one row of GET /shifts.
type ShiftListItem struct {
	ShiftID         string `json:"shift_id"`
	ShiftStartLocal string `json:"shift_start_local"`
	TZ              string `json:"tz"`
	Notes           string `json:"notes"`
}

// ShiftListResponse wraps the ordered items.
type ShiftListResponse struct {
	Items []ShiftListItem `json:"items"`
}
