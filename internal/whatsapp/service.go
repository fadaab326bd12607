package whatsapp

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// MessageHandler is a callback function for handling messages
type MessageHandler func(*events.Message) error

type Config struct {
	DataDir     string
	CountryCode string
}

// Service sends WhatsApp messages from a linked device
type Service struct {
	client         *whatsmeow.Client
	cfg            *Config
	log            zerolog.Logger
	messageHandler MessageHandler
}

// NewService creates a new WhatsApp service
func NewService(cfg *Config, log zerolog.Logger) (*Service, error) {
	ctx := context.Background()
	logger := log.With().Str("component", "WhatsApp").Logger()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger,
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber converts a phone number to the international digits
// WhatsApp expects. Local numbers with a leading 0 get countryCode in its
// place, and a stray 0 after the country code is dropped.
func NormalizePhoneNumber(phoneNumber, countryCode string) string {
	phoneNumber = strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "").Replace(phoneNumber)

	if countryCode == "" {
		return phoneNumber
	}

	// 07701234567 -> 9647701234567
	if strings.HasPrefix(phoneNumber, "00"+countryCode) {
		phoneNumber = phoneNumber[2:]
	} else if strings.HasPrefix(phoneNumber, "0") {
		phoneNumber = countryCode + phoneNumber[1:]
	}

	// 96407701234567 -> 9647701234567
	if strings.HasPrefix(phoneNumber, countryCode+"0") {
		phoneNumber = countryCode + phoneNumber[len(countryCode)+1:]
	}

	return phoneNumber
}

// Connect connects to WhatsApp, printing a pairing QR code on first use
func (s *Service) Connect() error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(context.Background())
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				q, err := qrcode.New(evt.Code, qrcode.Medium)
				if err != nil {
					fmt.Printf("QR Code: %s\n", evt.Code)
					fmt.Println("Please scan this QR code with WhatsApp to connect.")
				} else {
					fmt.Println("\n" + q.ToSmallString(false))
					fmt.Println("📱 Please scan the QR code above with WhatsApp:")
					fmt.Println("   1. Open WhatsApp on your phone")
					fmt.Println("   2. Go to Settings > Linked Devices")
					fmt.Println("   3. Tap 'Link a Device'")
					fmt.Println("   4. Scan the QR code shown above")
				}
			} else {
				s.log.Info().Str("event", evt.Event).Msg("Login event")
			}
		}
	} else {
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// Notify sends a text message to phoneNumber
func (s *Service) Notify(ctx context.Context, phoneNumber, message string) error {
	phoneNumber = NormalizePhoneNumber(phoneNumber, s.cfg.CountryCode)

	// Verify the number is on WhatsApp before sending
	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phoneNumber)
	}

	// Use the verified JID from WhatsApp
	jid := resp[0].JID

	s.log.Debug().Str("jid", jid.String()).Str("phone", phoneNumber).Msg("Attempting to send message")

	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &message,
	})
	if err != nil {
		if strings.Contains(err.Error(), "unknown server") || strings.Contains(err.Error(), "can't send message") {
			return fmt.Errorf("failed to send message to %s (JID: %s): %w; the recipient may need to message this number first", phoneNumber, jid.String(), err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Info().Str("id", sent.ID).Time("timestamp", sent.Timestamp).Str("phone", phoneNumber).Msg("Message sent")
	return nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

// handleMessage processes incoming messages
func (s *Service) handleMessage(msg *events.Message) {
	// Skip messages from self
	if msg.Info.IsFromMe {
		return
	}

	if s.messageHandler != nil {
		if err := s.messageHandler(msg); err != nil {
			s.log.Error().Err(err).Msg("Error handling message")
		}
		return
	}
	s.log.Debug().
		Str("sender", msg.Info.Sender.String()).
		Msg("Received message")
}

// SetMessageHandler sets a custom handler for incoming messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// senderPhone returns the phone number of a phone-addressed sender
func senderPhone(jid types.JID) (string, bool) {
	if jid.Server != types.DefaultUserServer || jid.User == "" {
		return "", false
	}
	return jid.User, true
}
