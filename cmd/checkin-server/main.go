package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"guest-checkin/internal/airtable"
	"guest-checkin/internal/attendance"
	"guest-checkin/internal/checkin"
	"guest-checkin/internal/config"
	"guest-checkin/internal/handler"
	"guest-checkin/internal/storage"
	"guest-checkin/internal/whatsapp"
)

func main() {
	fmt.Println("📋 Guest Check-in Server")
	fmt.Println("========================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	location, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Invalid timezone")
	}

	// Initialize guest store
	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Error initializing guest store")
	}

	var locker checkin.Locker = checkin.NoopLocker{}
	if cfg.SerializeCheckIns {
		locker = checkin.NewKeyedLocker()
	}
	resolver := checkin.NewResolver(store, checkin.Config{
		Fields:      cfg.Fields,
		CountryCode: cfg.CountryCode,
		Location:    location,
		TimeLayout:  cfg.TimeLayout,
		Locker:      locker,
	}, logger)

	// Initialize attendance log
	attendanceLog, err := attendance.OpenSQLiteLog(cfg.AttendanceDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing attendance log")
	}
	defer attendanceLog.Close()

	// Initialize WhatsApp service
	var (
		notifier        attendance.Notifier
		whatsappService *whatsapp.Service
	)
	if cfg.WhatsAppEnabled {
		whatsappService, err = whatsapp.NewService(&whatsapp.Config{
			DataDir:     cfg.WhatsAppDataDir,
			CountryCode: cfg.CountryCode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error initializing WhatsApp service")
		}

		checkInHandler := whatsapp.NewCheckInHandler(resolver, whatsappService, cfg.CheckInKeywords, logger)
		whatsappService.SetMessageHandler(checkInHandler.HandleMessage)

		fmt.Println("Connecting to WhatsApp...")
		if err := whatsappService.Connect(); err != nil {
			logger.Fatal().Err(err).Msg("Error connecting to WhatsApp")
		}
		notifier = whatsappService
	}

	attendanceService := attendance.NewService(attendanceLog, notifier, attendance.Config{
		Location:        location,
		TimeLayout:      cfg.TimeLayout,
		WelcomeTemplate: cfg.WelcomeTemplate,
	}, logger)

	server := handler.NewServer(handler.NewHandler(resolver, attendanceService, logger), logger)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreBackend).Msg("Server running")
		if err := server.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	// Start interactive console
	if cfg.ConsoleEnabled {
		cli := &console{resolver: resolver, att: attendanceService, fields: cfg.Fields}
		if lister, ok := store.(guestLister); ok {
			cli.guests = lister
		}
		go cli.start()
	}

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	fmt.Println("\n\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down server")
	}
	if whatsappService != nil {
		whatsappService.Disconnect()
	}
	fmt.Println("Goodbye! 👋")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func newStore(cfg *config.Config, logger zerolog.Logger) (checkin.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		return storage.NewStorage(cfg.GuestStoreFile)
	case config.BackendAirtable:
		return airtable.NewClient(airtable.Config{
			APIURL:  cfg.AirtableAPIURL,
			BaseID:  cfg.AirtableBaseID,
			Table:   cfg.AirtableTable,
			Token:   cfg.AirtableToken,
			Timeout: cfg.AirtableTimeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
