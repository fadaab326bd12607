package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"guest-checkin/internal/checkin"
)

// DefaultKeywords trigger a check-in when a guest messages the bot
var DefaultKeywords = []string{"checkin", "check in", "check-in", "arrived", "وصلت"}

const handleTimeout = 30 * time.Second

// Resolver checks a guest in by identifier
type Resolver interface {
	CheckIn(ctx context.Context, id checkin.Identifier) (*checkin.Result, error)
}

// Notifier sends a text message
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// CheckInHandler checks guests in when they message a keyword to the bot
type CheckInHandler struct {
	resolver Resolver
	notifier Notifier
	keywords []string
	log      zerolog.Logger
}

// NewCheckInHandler creates a handler. Empty keywords fall back to DefaultKeywords.
func NewCheckInHandler(resolver Resolver, notifier Notifier, keywords []string, log zerolog.Logger) *CheckInHandler {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &CheckInHandler{
		resolver: resolver,
		notifier: notifier,
		keywords: normalized,
		log:      log.With().Str("component", "whatsapp-checkin").Logger(),
	}
}

// HandleMessage processes incoming WhatsApp messages for check-in requests
func (h *CheckInHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}

	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}

	text = strings.ToLower(strings.TrimSpace(text))
	if !startsWithKeyword(text, h.keywords...) {
		return nil
	}

	phoneNumber, ok := senderPhone(msg.Info.Sender)
	if !ok {
		h.log.Debug().Str("sender", msg.Info.Sender.String()).Msg("Sender has no phone number, ignoring")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	res, err := h.resolver.CheckIn(ctx, checkin.Identifier{Phone: phoneNumber})
	if err != nil {
		if replyErr := h.notifier.Notify(ctx, phoneNumber, "Sorry, we could not check you in right now. Please see the front desk."); replyErr != nil {
			h.log.Warn().Err(replyErr).Msg("Failed to send failure reply")
		}
		return fmt.Errorf("failed to check in %s: %w", phoneNumber, err)
	}

	reply := fmt.Sprintf("✅ %s at %s", res.Message, res.Record.ArrivedAt)
	if err := h.notifier.Notify(ctx, phoneNumber, reply); err != nil {
		h.log.Warn().Err(err).Str("phone", phoneNumber).Msg("Failed to send confirmation")
	}
	return nil
}

// startsWithKeyword reports whether text opens with one of the keywords as a
// whole word, so "arrived!" counts and "not arrived yet" does not.
func startsWithKeyword(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		rest, ok := strings.CutPrefix(text, keyword)
		if !ok {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return true
		}
	}
	return false
}
