package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rileyafox/patient-portal/internal/api/dto"
	"github.com/rileyafox/patient-portal/internal/service"
)

const defaultTZ = "America/New_York"

// UsersHandler exposes the registration endpoint.
type UsersHandler struct {
	booking *service.BookingService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(booking *service.BookingService) *UsersHandler {
	return &UsersHandler{booking: booking}
}

// Register handles POST /users. Registration is idempotent by email:
// a duplicate email returns the existing id.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return fiber.NewError(http.StatusBadRequest, "name and email required")
	}

	tzName := strings.TrimSpace(req.TZ)
	if tzName == "" {
		tzName = defaultTZ
	}

	userID, err := h.booking.RegisterUser(c.UserContext(), name, email, req.PhoneE164, tzName)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.UserRegisterResponse{UserID: userID})
}
