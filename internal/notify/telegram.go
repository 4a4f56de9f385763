// Package notify implements an optional, read-only Telegram notifier that
// posts fill/equity updates when its methods are called; it does not
// subscribe to the sink, and no other package calls it. Grounded on
// web3guy0-polybot/bot/telegram.go's TelegramBot: a tgbotapi.BotAPI plus a
// chat id, narrowed here to a fire-and-forget sender (no command loop,
// since this repo has nothing for a human operator to pause/resume).
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Telegram posts fill and equity notifications to a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram constructs a Telegram notifier. A zero/empty token is not
// valid; callers should treat this feature as opt-in and skip
// construction entirely when no token is configured.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Warn().Err(err).Msg("notify: telegram send failed")
	}
}

// NotifyFill reports a single committed fill.
func (t *Telegram) NotifyFill(symbol string, side string, price, qty, realizedPnL, fee float64, isMaker bool) {
	role := "taker"
	if isMaker {
		role = "maker"
	}
	t.send(fmt.Sprintf(
		"Fill %s %s %.8f @ %.8f (%s)\nRealized PnL: %.8f  Fee: %.8f",
		symbol, side, qty, price, role, realizedPnL, fee,
	))
}

// NotifyEquity reports the current equity curve value. Callers should
// throttle calls (e.g. once per bar close, or once per N bars) rather
// than invoking this per fill.
func (t *Telegram) NotifyEquity(equity float64) {
	t.send(fmt.Sprintf("Equity: %.8f", equity))
}
