package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"guest-checkin/internal/models"
)

const (
	BackendAirtable = "airtable"
	BackendFile     = "file"
)

// Config holds the application configuration
type Config struct {
	HTTPAddr string

	StoreBackend string
	// Airtable
	AirtableToken   string
	AirtableBaseID  string
	AirtableTable   string
	AirtableAPIURL  string
	AirtableTimeout time.Duration
	// File store
	GuestStoreFile string

	FieldPreset string
	Fields      models.FieldMap

	CountryCode       string
	Timezone          string
	TimeLayout        string
	SerializeCheckIns bool

	AttendanceDB string

	WhatsAppEnabled bool
	WhatsAppDataDir string
	WelcomeTemplate string
	CheckInKeywords []string

	ConsoleEnabled bool
	LogLevel       string
}

// LoadConfig loads configuration from environment variables or defaults.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var invalid []string

	timeout, err := time.ParseDuration(getEnv("AIRTABLE_TIMEOUT", "15s"))
	if err != nil || timeout <= 0 {
		invalid = append(invalid, "AIRTABLE_TIMEOUT")
	}
	serialize, err := strconv.ParseBool(getEnv("SERIALIZE_CHECKINS", "false"))
	if err != nil {
		invalid = append(invalid, "SERIALIZE_CHECKINS")
	}
	whatsappEnabled, err := strconv.ParseBool(getEnv("WHATSAPP_ENABLED", "false"))
	if err != nil {
		invalid = append(invalid, "WHATSAPP_ENABLED")
	}
	consoleEnabled, err := strconv.ParseBool(getEnv("CONSOLE_ENABLED", "false"))
	if err != nil {
		invalid = append(invalid, "CONSOLE_ENABLED")
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":3000"),
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", BackendAirtable)),
		AirtableToken:     getEnv("AIRTABLE_TOKEN", ""),
		AirtableBaseID:    getEnv("AIRTABLE_BASE_ID", ""),
		AirtableTable:     getEnv("AIRTABLE_TABLE_NAME", "QR Code Scanner"),
		AirtableAPIURL:    getEnv("AIRTABLE_API_URL", "https://api.airtable.com/v0"),
		AirtableTimeout:   timeout,
		GuestStoreFile:    getEnv("GUEST_STORE_FILE", "data/guests.json"),
		FieldPreset:       getEnv("FIELD_PRESET", "arrived"),
		CountryCode:       getEnv("COUNTRY_CODE", "964"),
		Timezone:          getEnv("TIMEZONE", "Asia/Baghdad"),
		TimeLayout:        getEnv("TIME_LAYOUT", "03:04 PM"),
		SerializeCheckIns: serialize,
		AttendanceDB:      getEnv("ATTENDANCE_DB", "data/attendance.db"),
		WhatsAppEnabled:   whatsappEnabled,
		WhatsAppDataDir:   getEnv("WHATSAPP_DATA_DIR", "data"),
		WelcomeTemplate:   getEnv("WELCOME_TEMPLATE", "Welcome {name}! You are checked in at {time}."),
		CheckInKeywords:   splitList(getEnv("CHECKIN_KEYWORDS", "")),
		ConsoleEnabled:    consoleEnabled,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	fields, err := models.FieldPreset(cfg.FieldPreset)
	if err != nil {
		invalid = append(invalid, "FIELD_PRESET")
	}
	cfg.Fields = fields.WithOverrides(models.FieldMap{
		Name:      os.Getenv("FIELD_NAME"),
		Phone:     os.Getenv("FIELD_PHONE"),
		Handle:    os.Getenv("FIELD_HANDLE"),
		Arrived:   os.Getenv("FIELD_ARRIVED"),
		ArrivedAt: os.Getenv("FIELD_ARRIVED_AT"),
	})

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting at once
func (c *Config) Validate() error {
	var missing, invalid []string

	switch c.StoreBackend {
	case BackendAirtable:
		if c.AirtableToken == "" {
			missing = append(missing, "AIRTABLE_TOKEN")
		}
		if c.AirtableBaseID == "" {
			missing = append(missing, "AIRTABLE_BASE_ID")
		}
		if c.AirtableTable == "" {
			missing = append(missing, "AIRTABLE_TABLE_NAME")
		}
	case BackendFile:
		if c.GuestStoreFile == "" {
			missing = append(missing, "GUEST_STORE_FILE")
		}
	default:
		invalid = append(invalid, "STORE_BACKEND")
	}

	f := c.Fields
	if f.Name == "" || f.Phone == "" || f.Handle == "" || f.Arrived == "" || f.ArrivedAt == "" {
		invalid = append(invalid, "FIELD_*")
	}
	if _, err := c.Location(); err != nil {
		invalid = append(invalid, "TIMEZONE")
	}
	if c.TimeLayout == "" {
		invalid = append(invalid, "TIME_LAYOUT")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", ")))
	}
	return errors.Join(errs...)
}

// Location loads the configured timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
