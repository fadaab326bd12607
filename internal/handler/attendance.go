package handler

import (
	"net/http"

	"github.com/labstack/echo"

	"guest-checkin/internal/attendance"
	"guest-checkin/internal/models"
)

type recordResponse struct {
	Success      bool                           `json:"success"`
	Message      string                         `json:"message"`
	Timestamp    string                         `json:"timestamp"`
	Entry        models.AttendanceEntry         `json:"entry"`
	Notification attendance.NotificationOutcome `json:"notification"`
}

type recordsResponse struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count"`
	Records []models.AttendanceEntry `json:"records"`
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// RecordAttendance appends a row to the attendance log and welcomes the guest
func (h *Handler) RecordAttendance(c echo.Context) error {
	var req attendance.RecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	out, err := h.attendance.Record(c.Request().Context(), req)
	if err != nil {
		if isClientError(err) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		h.log.Error().Err(err).Msg("Error recording attendance")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to record attendance", Details: err.Error()})
	}

	return c.JSON(http.StatusOK, recordResponse{
		Success:      true,
		Message:      "Attendance recorded for " + out.Entry.Name,
		Timestamp:    req.Timestamp,
		Entry:        out.Entry,
		Notification: out.Notification,
	})
}

// ListAttendance returns the latest attendance rows, newest first
func (h *Handler) ListAttendance(c echo.Context) error {
	records, err := h.attendance.Recent(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Error fetching records")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch records", Details: err.Error()})
	}
	return c.JSON(http.StatusOK, recordsResponse{Success: true, Count: len(records), Records: records})
}

// SendMessage sends a free-form WhatsApp message
func (h *Handler) SendMessage(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := h.attendance.Send(c.Request().Context(), req.To, req.Message); err != nil {
		switch {
		case isClientError(err):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		case isUnavailable(err):
			return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		}
		h.log.Error().Err(err).Msg("WhatsApp error")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to send WhatsApp message", Details: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
