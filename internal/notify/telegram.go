package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/utils"
)

// Telegram escalates alert events to the shift supervisor's chat. Delivery
// failure is non-fatal; the alert is already on the operator terminal.
type Telegram struct {
	token   string
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewTelegram constructs the escalation channel. ratePerSecond bounds message
// bursts against the bot API.
func NewTelegram(token string, chatID int64, ratePerSecond int, logger *logging.Logger) *Telegram {
	return &Telegram{
		token:   token,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}
}

// Configured reports whether a bot token and chat are set.
func (t *Telegram) Configured() bool {
	return t.token != "" && t.chatID != 0
}

// Send delivers one escalation message, rate limited and retried.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	return utils.Retry(t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}
