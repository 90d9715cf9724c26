// Package notify adapts the teacher's bot/telegram.go into a thin
// dispatcher subscriber: rather than the teacher's TelegramBot owning a
// StatsProvider and a command loop, Notifier only ever reacts to events
// the tickengine.BuiltStrategy dispatcher already emits, per
// SPEC_FULL.md's supplemented notify feature. It posts guard-blocked and
// circuit-tripped alerts, plus position open/close notifications, and
// never influences engine state — it has no control callbacks.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/flowstate-labs/predengine/events"
	"github.com/flowstate-labs/predengine/guards"
)

// sender is the narrow surface Notifier needs from *tgbotapi.BotAPI,
// broken out so tests can drive Subscribe's wiring without a live bot.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts engine events to a single Telegram chat.
type Notifier struct {
	api    sender
	chatID int64
	log    zerolog.Logger
}

// New constructs a Notifier backed by a real Telegram bot. token/chatID
// come from the caller's own env surface; notify has no opinion on where
// they are sourced from.
func New(token string, chatID int64, logger zerolog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: create bot api: %w", err)
	}
	return &Notifier{api: api, chatID: chatID, log: logger}, nil
}

// Subscribe registers this Notifier on dispatcher for RiskBreached/
// CircuitTripped domain events and GuardBlocked/PositionOpened/
// PositionClosed SDK events. Payload shapes are whatever the caller's
// tickengine wiring emits; unrecognized payloads still get a %v
// rendering rather than being dropped silently.
func (n *Notifier) Subscribe(dispatcher *events.Dispatcher) {
	dispatcher.OnDomain(events.DomainRiskBreached, func(_ events.DomainType, payload any) {
		n.send(fmt.Sprintf("⚠️ *RISK BREACHED*\n%v", payload))
	})
	dispatcher.OnDomain(events.DomainCircuitTripped, func(_ events.DomainType, payload any) {
		n.send(fmt.Sprintf("🛑 *CIRCUIT BREAKER TRIPPED*\n%v", payload))
	})
	dispatcher.OnSdk(events.SdkGuardBlocked, func(_ events.SdkType, payload any) {
		n.notifyGuardBlocked(payload)
	})
	dispatcher.OnSdk(events.SdkPositionOpened, func(_ events.SdkType, payload any) {
		n.send(fmt.Sprintf("✅ *POSITION OPENED*\n%v", payload))
	})
	dispatcher.OnSdk(events.SdkPositionClosed, func(_ events.SdkType, payload any) {
		n.send(fmt.Sprintf("📊 *POSITION CLOSED*\n%v", payload))
	})
}

func (n *Notifier) notifyGuardBlocked(payload any) {
	decision, ok := payload.(guards.Decision)
	if !ok {
		n.send(fmt.Sprintf("🚫 *GUARD BLOCKED*\n%v", payload))
		return
	}
	n.send(fmt.Sprintf("🚫 *GUARD BLOCKED*\n%s: %s", decision.GuardName, decision.Reason))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		n.log.Error().Err(err).Msg("notify: failed to send telegram message")
	}
}
