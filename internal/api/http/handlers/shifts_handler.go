package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rileyafox/patient-portal/internal/api/dto"
	"github.com/rileyafox/patient-portal/internal/service"
)

// utcLayout renders a UTC instant with an explicit offset.
const utcLayout = "2006-01-02T15:04:05-07:00"

// localLayout renders the stored naive wall clock.
const localLayout = "2006-01-02T15:04:05"

// ShiftsHandler exposes booking and listing endpoints.
type ShiftsHandler struct {
	booking *service.BookingService
}

// NewShiftsHandler constructs handler.
func NewShiftsHandler(booking *service.BookingService) *ShiftsHandler {
	return &ShiftsHandler{booking: booking}
}

// Book handles POST /shifts. A successful booking whose reminder
// scheduling failed returns 200 with a warning instead of 201.
func (h *ShiftsHandler) Book(c *fiber.Ctx) error {
	var req dto.ShiftBookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	userID := strings.TrimSpace(req.UserID)
	localISO := strings.TrimSpace(req.ShiftLocalISO)
	if userID == "" || localISO == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id and shift_local_iso required")
	}

	tzName := strings.TrimSpace(req.TZ)
	if tzName == "" {
		tzName = defaultTZ
	}

	result, err := h.booking.BookShift(c.UserContext(), service.BookShiftInput{
		UserID:   userID,
		LocalISO: localISO,
		TZ:       tzName,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}

	resp := dto.ShiftBookResponse{
		ShiftID:       result.ShiftID,
		ShiftStartUTC: result.StartUTC.Format(utcLayout),
		Warning:       result.Warning,
	}
	status := http.StatusCreated
	if result.Warning != "" {
		status = http.StatusOK
	}
	return c.Status(status).JSON(resp)
}

// List handles GET /shifts?user_id=, most recent local start first.
func (h *ShiftsHandler) List(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id required")
	}

	shifts, err := h.booking.ListShifts(c.UserContext(), userID)
	if err != nil {
		return err
	}

	items := make([]dto.ShiftListItem, 0, len(shifts))
	for _, shift := range shifts {
		items = append(items, dto.ShiftListItem{
			ShiftID:         shift.ID,
			ShiftStartLocal: shift.StartLocal.Format(localLayout),
			TZ:              shift.TZ,
			Notes:           shift.Notes,
		})
	}
	return c.JSON(dto.ShiftListResponse{Items: items})
}
