package bot

import (
	"context"

	"github.com/mymmrac/telego"
)

// Deleter adapts the Telegram API to the scheduler's MessageDeleter
// interface
type Deleter struct {
	bot *telego.Bot
}

// NewDeleter creates a Deleter over the given bot
func NewDeleter(bot *telego.Bot) *Deleter {
	return &Deleter{bot: bot}
}

// DeleteMessage deletes a single message in a chat
func (d *Deleter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return d.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: messageID,
	})
}
