package notify

import (
	"context"
	"fmt"
	"time"

	"TurtleDesk/internal/domain/models"

	tb "gopkg.in/tucnak/telebot.v2"
)

type botSender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram posts alerts to one chat.
type Telegram struct {
	bot  botSender
	chat *tb.Chat
}

// NewTelegram connects the bot. apiURL may be empty for the public Bot API.
func NewTelegram(token, apiURL string, chatID int64) (*Telegram, error) {
	bot, err := tb.NewBot(tb.Settings{
		URL:    apiURL,
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chat: &tb.Chat{ID: chatID}}, nil
}

func (t *Telegram) Channel() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, r *models.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, Subject(r)+"\n\n"+Body(r))
	return err
}
