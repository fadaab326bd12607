package attendance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

type fakeNotifier struct {
	err  error
	sent []string
}

func (n *fakeNotifier) Notify(_ context.Context, phone, message string) error {
	n.sent = append(n.sent, phone+": "+message)
	return n.err
}

func openTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	l, err := OpenSQLiteLog(filepath.Join(t.TempDir(), "db", "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func testConfig() Config {
	return Config{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 5, 2, 17, 45, 0, 0, time.UTC) },
	}
}

func TestSQLiteLogRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := openTestLog(t)

	for _, name := range []string{"Ali", "Sara", "Omar"} {
		_, err := l.Append(ctx, models.AttendanceEntry{Name: name, Phone: "0770", Date: "2025-05-02", Time: "05:45 PM", Status: models.StatusPresent})
		require.NoError(t, err)
	}

	entries, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Omar", entries[0].Name)
	assert.Equal(t, "Sara", entries[1].Name)
	assert.Equal(t, models.StatusPresent, entries[0].Status)
	assert.False(t, entries[0].RecordedAt.IsZero())
}

func TestRecordSendsWelcome(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(openTestLog(t), notifier, testConfig(), zerolog.Nop())

	out, err := svc.Record(context.Background(), RecordRequest{Name: "Ali", Phone: "+9647701234567"})
	require.NoError(t, err)

	assert.Equal(t, "2025-05-02", out.Entry.Date)
	assert.Equal(t, "05:45 PM", out.Entry.Time)
	assert.Equal(t, models.StatusPresent, out.Entry.Status)
	assert.NotZero(t, out.Entry.ID)
	assert.Equal(t, NotificationOutcome{Attempted: true, Sent: true}, out.Notification)
	assert.Equal(t, []string{"+9647701234567: Welcome Ali! You are checked in at 05:45 PM."}, notifier.sent)
}

func TestRecordUsesSubmittedTimestamp(t *testing.T) {
	cfg := testConfig()
	cfg.Location = time.FixedZone("AST", 3*60*60)
	svc := NewService(openTestLog(t), nil, cfg, zerolog.Nop())

	out, err := svc.Record(context.Background(), RecordRequest{
		Name:      "Sara",
		Phone:     "0780",
		Timestamp: "2025-05-02T20:10:30.123Z",
		Status:    "Late",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-05-02", out.Entry.Date)
	assert.Equal(t, "11:10 PM", out.Entry.Time)
	assert.Equal(t, models.StatusLate, out.Entry.Status)
	assert.False(t, out.Notification.Attempted)
}

func TestRecordNotificationFailureIsNotAnError(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("number is not registered on WhatsApp")}
	l := openTestLog(t)
	svc := NewService(l, notifier, testConfig(), zerolog.Nop())

	out, err := svc.Record(context.Background(), RecordRequest{Name: "Omar", Phone: "0790"})
	require.NoError(t, err)
	assert.True(t, out.Notification.Attempted)
	assert.False(t, out.Notification.Sent)
	assert.Contains(t, out.Notification.Error, "not registered")

	entries, err := svc.Recent(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordValidation(t *testing.T) {
	svc := NewService(openTestLog(t), nil, testConfig(), zerolog.Nop())

	tests := map[string]RecordRequest{
		"missing name":      {Phone: "0770"},
		"missing phone":     {Name: "Ali"},
		"blank name":        {Name: "  ", Phone: "0770"},
		"invalid timestamp": {Name: "Ali", Phone: "0770", Timestamp: "yesterday"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), req)
			assert.True(t, checkin.IsInvalidRequest(err))
		})
	}
}

func TestRecentEmpty(t *testing.T) {
	svc := NewService(openTestLog(t), nil, testConfig(), zerolog.Nop())
	entries, err := svc.Recent(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	svc := NewService(openTestLog(t), nil, testConfig(), zerolog.Nop())
	assert.ErrorIs(t, svc.Send(ctx, "0770", "hi"), ErrNotifierDisabled)

	notifier := &fakeNotifier{}
	svc = NewService(openTestLog(t), notifier, testConfig(), zerolog.Nop())
	assert.True(t, checkin.IsInvalidRequest(svc.Send(ctx, "", "hi")))
	require.NoError(t, svc.Send(ctx, "0770", "Doors open at 7"))
	assert.Equal(t, []string{"0770: Doors open at 7"}, notifier.sent)

	notifier.err = errors.New("offline")
	assert.ErrorContains(t, svc.Send(ctx, "0770", "hi"), "offline")
}
