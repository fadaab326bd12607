package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guest-checkin/internal/attendance"
	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

type fakeResolver struct {
	result *checkin.Result
	err    error
	got    []checkin.Identifier
}

func (r *fakeResolver) CheckIn(_ context.Context, id checkin.Identifier) (*checkin.Result, error) {
	r.got = append(r.got, id)
	if _, _, err := id.SearchKey(); err != nil {
		return nil, err
	}
	return r.result, r.err
}

type fakeAttendance struct {
	recordErr error
	recentErr error
	sendErr   error
	entries   []models.AttendanceEntry
	sent      []string
}

func (a *fakeAttendance) Record(_ context.Context, req attendance.RecordRequest) (*attendance.Outcome, error) {
	if a.recordErr != nil {
		return nil, a.recordErr
	}
	if req.Name == "" || req.Phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", checkin.ErrInvalidRequest)
	}
	e := models.AttendanceEntry{ID: 1, Name: req.Name, Phone: req.Phone, Status: models.StatusPresent}
	return &attendance.Outcome{Entry: e, Notification: attendance.NotificationOutcome{Attempted: true, Error: "offline"}}, nil
}

func (a *fakeAttendance) Recent(context.Context) ([]models.AttendanceEntry, error) {
	return a.entries, a.recentErr
}

func (a *fakeAttendance) Send(_ context.Context, to, message string) error {
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, to+": "+message)
	return nil
}

func newTestServer(r Resolver, a Attendance) *echo.Echo {
	h := NewHandler(r, a, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return NewServer(h, zerolog.Nop())
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderOrigin, "https://scanner.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCheckIn(t *testing.T) {
	resolver := &fakeResolver{result: &checkin.Result{
		Action:       checkin.ActionUpdate,
		Name:         "Ali",
		Message:      "Checked in: Ali",
		MatchedValue: "Ali",
		Record:       models.GuestRecord{ID: "rec1", Name: "Ali", Phone: "0770123456", Handle: "-", Arrived: true, ArrivedAt: "07:00 PM"},
	}}
	e := newTestServer(resolver, &fakeAttendance{})

	rec := do(e, http.MethodPost, "/api/record", `{"phone":"770123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	// with credentials allowed the wildcard is answered with the caller's origin
	assert.Equal(t, "https://scanner.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "UPDATE", body["type"])
	assert.Equal(t, "Checked in: Ali", body["message"])
	record := body["record"].(map[string]any)
	assert.Equal(t, "07:00 PM", record["arrivedAt"])
	assert.Equal(t, true, record["arrived"])
}

func TestCheckInTelegramAlias(t *testing.T) {
	resolver := &fakeResolver{result: &checkin.Result{Action: checkin.ActionCreate}}
	e := newTestServer(resolver, &fakeAttendance{})

	rec := do(e, http.MethodPost, "/api/record", `{"telegram":"@alice","phone":"0770"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []checkin.Identifier{{Phone: "0770", Handle: "@alice"}}, resolver.got)
}

func TestCheckInErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantText string
	}{
		{"no identifier", `{}`, nil, http.StatusBadRequest, "no phone or handle"},
		{"malformed json", `{"phone":`, nil, http.StatusBadRequest, "invalid request body"},
		{"store error", `{"phone":"0770"}`, &checkin.StoreError{Op: "search", Message: "NOT_FOUND"}, http.StatusInternalServerError, "NOT_FOUND"},
		{"transport error", `{"handle":"@a"}`, &checkin.TransportError{Op: "search", Err: errors.New("timeout")}, http.StatusInternalServerError, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(&fakeResolver{err: tt.err}, &fakeAttendance{})

			rec := do(e, http.MethodPost, "/api/record", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], tt.wantText)
		})
	}
}

func TestCheckInMethods(t *testing.T) {
	e := newTestServer(&fakeResolver{}, &fakeAttendance{})

	rec := do(e, http.MethodGet, "/api/record", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/record", nil)
	req.Header.Set(echo.HeaderOrigin, "https://scanner.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://scanner.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestRecordAttendance(t *testing.T) {
	e := newTestServer(&fakeResolver{}, &fakeAttendance{})

	rec := do(e, http.MethodPost, "/record", `{"name":"Sara","phone":"0780","timestamp":"2025-03-01T18:00:00Z","status":"Present"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Attendance recorded for Sara", body["message"])
	// the failed welcome message does not fail the request
	assert.Equal(t, "offline", body["notification"].(map[string]any)["error"])

	rec = do(e, http.MethodPost, "/record", `{"name":"Sara"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e = newTestServer(&fakeResolver{}, &fakeAttendance{recordErr: errors.New("database is locked")})
	rec = do(e, http.MethodPost, "/record", `{"name":"Sara","phone":"0780"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database is locked", decode(t, rec)["details"])
}

func TestListAttendance(t *testing.T) {
	entries := []models.AttendanceEntry{{ID: 2, Name: "Omar"}, {ID: 1, Name: "Ali"}}
	e := newTestServer(&fakeResolver{}, &fakeAttendance{entries: entries})

	rec := do(e, http.MethodGet, "/records", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body recordsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "Omar", body.Records[0].Name)

	e = newTestServer(&fakeResolver{}, &fakeAttendance{recentErr: errors.New("disk I/O error")})
	rec = do(e, http.MethodGet, "/records", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSendMessage(t *testing.T) {
	att := &fakeAttendance{}
	e := newTestServer(&fakeResolver{}, att)

	rec := do(e, http.MethodPost, "/whatsapp", `{"to":"0770","message":"Doors open"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"0770: Doors open"}, att.sent)

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: phone number and message are required", checkin.ErrInvalidRequest), http.StatusBadRequest},
		{attendance.ErrNotifierDisabled, http.StatusServiceUnavailable},
		{errors.New("not registered"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		e := newTestServer(&fakeResolver{}, &fakeAttendance{sendErr: tt.err})
		rec := do(e, http.MethodPost, "/whatsapp", `{"to":"0770","message":"x"}`)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestGuestQR(t *testing.T) {
	e := newTestServer(&fakeResolver{}, &fakeAttendance{})

	rec := do(e, http.MethodGet, "/api/qr?phone=07701234567", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/qr", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/qr?handle=@a&size=9000", "").Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(&fakeResolver{}, &fakeAttendance{})

	rec := do(e, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "2025-03-01T12:00:00Z", body["timestamp"])
}
