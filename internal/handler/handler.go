package handler

import (
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-autodelete/internal/config"
	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/service"
)

// Handler owns the Telegram-facing side: it converts updates into typed
// events for the dispatcher and renders admin-facing replies.
type Handler struct {
	cfg        *config.Config
	bot        *telego.Bot
	botID      int64
	dispatcher *service.Dispatcher
	store      *service.SettingsStore
	allowlist  *service.AllowlistManager
	scheduler  *service.Scheduler
}

// New creates a Handler
func New(cfg *config.Config, bot *telego.Bot, dispatcher *service.Dispatcher, store *service.SettingsStore, allowlist *service.AllowlistManager, scheduler *service.Scheduler) *Handler {
	return &Handler{
		cfg:        cfg,
		bot:        bot,
		botID:      bot.ID(),
		dispatcher: dispatcher,
		store:      store,
		allowlist:  allowlist,
		scheduler:  scheduler,
	}
}

// Register configures all bot message and update handlers
func (h *Handler) Register(bh *th.BotHandler) {
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return h.onMessage(ctx, message)
	})

	bh.HandleChannelPost(func(ctx *th.Context, message telego.Message) error {
		return h.onChannelPost(ctx, message)
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return h.onMyChatMember(ctx, update)
	}, th.AnyMyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		return h.onCallbackQuery(ctx, query)
	})
}

// onMyChatMember processes updates to the bot's own membership. Removal
// from a chat drops its configuration and pending deletions.
func (h *Handler) onMyChatMember(ctx *th.Context, update telego.Update) error {
	if update.MyChatMember == nil {
		return nil
	}

	chat := update.MyChatMember.Chat
	newStatus := update.MyChatMember.NewChatMember.MemberStatus()
	logger.Infof("Bot membership in chat %d changed to %s", chat.ID, newStatus)

	if chat.Type == "private" {
		return nil
	}

	if newStatus == telego.MemberStatusLeft || newStatus == telego.MemberStatusBanned {
		if err := h.scheduler.CancelChat(chat.ID); err != nil {
			logger.Warningf("Error cancelling pending deletions for chat %d: %v", chat.ID, err)
		}
		if err := h.store.Delete(chat.ID); err != nil {
			logger.Warningf("Error removing configuration for chat %d: %v", chat.ID, err)
		}
	}
	return nil
}

// onMessage processes new messages in chats
func (h *Handler) onMessage(ctx *th.Context, message telego.Message) error {
	incrementCounter(&totalMessagesProcessed)

	// Skip if no sender information or the message is our own
	if message.From == nil || message.From.ID == h.botID {
		return nil
	}

	if strings.HasPrefix(message.Text, "/") {
		return h.handleCommand(ctx, message)
	}

	if message.Chat.Type == "private" {
		// Prompt user to send /help command
		_, err := h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: message.Chat.ID},
			Text:   "Please send /help to get usage instructions.",
		})
		return err
	}

	h.dispatcher.Dispatch(service.MessageEvent{
		Message: service.IncomingMessage{
			ChatID:    message.Chat.ID,
			MessageID: message.MessageID,
			SenderID:  message.From.ID,
			SentAt:    time.Unix(message.Date, 0),
		},
	})
	return nil
}

// onChannelPost processes posts in channels. Channel posts have no From
// user; the sender chat stands in so channels can allow themselves.
func (h *Handler) onChannelPost(ctx *th.Context, message telego.Message) error {
	incrementCounter(&totalMessagesProcessed)

	var senderID int64
	if message.SenderChat != nil {
		senderID = message.SenderChat.ID
	}

	h.dispatcher.Dispatch(service.MessageEvent{
		Message: service.IncomingMessage{
			ChatID:    message.Chat.ID,
			MessageID: message.MessageID,
			SenderID:  senderID,
			SentAt:    time.Unix(message.Date, 0),
		},
	})
	return nil
}

// sendText is a small helper for plain replies
func (h *Handler) sendText(ctx *th.Context, chatID int64, text string) error {
	_, err := h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		logger.Warningf("Error sending message to chat %d: %v", chatID, err)
	}
	return err
}
