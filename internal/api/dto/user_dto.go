package dto

// UserRegisterRequest payload for POST /users.
type UserRegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	PhoneE164 string `json:"phone_e164"`
	TZ        string `json:"tz"`
}

// UserRegisterResponse returns the (possibly pre-existing) user id.
type UserRegisterResponse struct {
	UserID string `json:"user_id"`
}
