package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"guest-checkin/internal/attendance"
	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

// Resolver checks a guest in by identifier
type Resolver interface {
	CheckIn(ctx context.Context, id checkin.Identifier) (*checkin.Result, error)
}

// Attendance is the attendance log service
type Attendance interface {
	Record(ctx context.Context, req attendance.RecordRequest) (*attendance.Outcome, error)
	Recent(ctx context.Context) ([]models.AttendanceEntry, error)
	Send(ctx context.Context, to, message string) error
}

// Handler serves the check-in and attendance endpoints
type Handler struct {
	resolver   Resolver
	attendance Attendance
	log        zerolog.Logger
	now        func() time.Time
}

// NewHandler creates the HTTP handlers
func NewHandler(resolver Resolver, attendance Attendance, log zerolog.Logger) *Handler {
	return &Handler{
		resolver:   resolver,
		attendance: attendance,
		log:        log.With().Str("component", "http").Logger(),
		now:        time.Now,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type checkInRequest struct {
	Phone  string `json:"phone"`
	Handle string `json:"handle"`
	// Telegram is the field name older scanner pages send the handle in
	Telegram string `json:"telegram"`
}

type checkInResponse struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	MatchedValue string             `json:"matchedValue"`
	Type         checkin.Action     `json:"type"`
	Record       models.GuestRecord `json:"record"`
}

// CheckIn marks the submitted guest as arrived, creating them when unknown
func (h *Handler) CheckIn(c echo.Context) error {
	var req checkInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	handle := req.Handle
	if handle == "" {
		handle = req.Telegram
	}

	res, err := h.resolver.CheckIn(c.Request().Context(), checkin.Identifier{Phone: req.Phone, Handle: handle})
	if err != nil {
		if checkin.IsInvalidRequest(err) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		h.log.Error().Err(err).Msg("Check-in failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, checkInResponse{
		Success:      true,
		Message:      res.Message,
		MatchedValue: res.MatchedValue,
		Type:         res.Action,
		Record:       res.Record,
	})
}

// GuestQR renders the identifier a scanner should submit as a PNG QR code
func (h *Handler) GuestQR(c echo.Context) error {
	content := strings.TrimSpace(c.QueryParam("handle"))
	if content == "" {
		content = strings.TrimSpace(c.QueryParam("phone"))
	}
	if content == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "phone or handle is required"})
	}

	size := 256
	if s := c.QueryParam("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "size must be between 64 and 1024"})
		}
		size = n
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to render QR code", Details: err.Error()})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Health reports that the service is up
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "online",
		"message":   "Check-in API is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// isClientError reports whether err came from bad input
func isClientError(err error) bool {
	return checkin.IsInvalidRequest(err)
}

// isUnavailable reports whether err means the feature is switched off
func isUnavailable(err error) bool {
	return errors.Is(err, attendance.ErrNotifierDisabled)
}
