// Package attendance keeps the append-only attendance log and sends the
// welcome message that follows each logged arrival.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

const (
	// RecentLimit is how many rows Recent returns
	RecentLimit = 50

	DefaultWelcomeTemplate = "Welcome {name}! You are checked in at {time}."
	DefaultDateLayout      = "2006-01-02"
	DefaultTimeLayout      = "03:04 PM"
)

// ErrNotifierDisabled is returned by Send when no messaging client is configured
var ErrNotifierDisabled = errors.New("notifications are disabled")

// Log is an append-only attendance table
type Log interface {
	Append(ctx context.Context, e models.AttendanceEntry) (models.AttendanceEntry, error)
	Recent(ctx context.Context, limit int) ([]models.AttendanceEntry, error)
}

// Notifier delivers a text message to a phone number
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// RecordRequest is one attendance submission
type RecordRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// NotificationOutcome reports the best-effort welcome message separately
// from the log write, which is what decides success.
type NotificationOutcome struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// Outcome is the result of Record
type Outcome struct {
	Entry        models.AttendanceEntry `json:"entry"`
	Notification NotificationOutcome    `json:"notification"`
}

// Config holds the display settings of the service
type Config struct {
	Location        *time.Location
	DateLayout      string
	TimeLayout      string
	WelcomeTemplate string
	Now             func() time.Time
}

// Service records attendance rows and notifies guests
type Service struct {
	log      Log
	notifier Notifier
	cfg      Config
	logger   zerolog.Logger
}

// NewService creates a service. notifier may be nil, in which case no
// welcome messages are attempted.
func NewService(log Log, notifier Notifier, cfg Config, logger zerolog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = DefaultDateLayout
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = DefaultTimeLayout
	}
	if cfg.WelcomeTemplate == "" {
		cfg.WelcomeTemplate = DefaultWelcomeTemplate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		log:      log,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With().Str("component", "attendance").Logger(),
	}
}

// Record appends a row for req and then tries to welcome the guest. A failed
// welcome message is logged and reported in the outcome, never returned.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Outcome, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", checkin.ErrInvalidRequest)
	}

	at := s.cfg.Now()
	if ts := strings.TrimSpace(req.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp %q is not RFC3339", checkin.ErrInvalidRequest, ts)
		}
		at = parsed
	}
	at = at.In(s.cfg.Location)

	status := models.AttendanceStatus(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.StatusPresent
	}

	entry, err := s.log.Append(ctx, models.AttendanceEntry{
		Name:       name,
		Phone:      phone,
		Date:       at.Format(s.cfg.DateLayout),
		Time:       at.Format(s.cfg.TimeLayout),
		Status:     status,
		RecordedAt: at,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("Failed to record attendance")
		return nil, err
	}
	s.logger.Info().Str("name", name).Str("phone", phone).Msg("Recorded attendance")

	return &Outcome{Entry: entry, Notification: s.welcome(ctx, entry)}, nil
}

func (s *Service) welcome(ctx context.Context, e models.AttendanceEntry) NotificationOutcome {
	if s.notifier == nil {
		return NotificationOutcome{}
	}
	msg := strings.NewReplacer("{name}", e.Name, "{time}", e.Time, "{date}", e.Date).Replace(s.cfg.WelcomeTemplate)
	if err := s.notifier.Notify(ctx, e.Phone, msg); err != nil {
		s.logger.Warn().Err(err).Str("name", e.Name).Msg("Welcome message failed")
		return NotificationOutcome{Attempted: true, Error: err.Error()}
	}
	s.logger.Info().Str("name", e.Name).Msg("Welcome message sent")
	return NotificationOutcome{Attempted: true, Sent: true}
}

// Recent returns the latest rows, newest first
func (s *Service) Recent(ctx context.Context) ([]models.AttendanceEntry, error) {
	entries, err := s.log.Recent(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AttendanceEntry{}
	}
	return entries, nil
}

// Send delivers an arbitrary message. Unlike the welcome message, failures
// here are the caller's result.
func (s *Service) Send(ctx context.Context, to, message string) error {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: phone number and message are required", checkin.ErrInvalidRequest)
	}
	if s.notifier == nil {
		return ErrNotifierDisabled
	}
	if err := s.notifier.Notify(ctx, to, message); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
