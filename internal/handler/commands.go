package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/models"
	"tg-autodelete/internal/service"
)

const welcomeText = `🤖 <b>Auto Delete Bot</b>

I automatically delete messages from senders who are not on the chat's allow-list, after a configurable delay.

<b>Features:</b>
• Auto-delete messages from non-approved senders
• Allow-list managed with buttons
• Configurable deletion delay (1-30 minutes)

Add me to a group as admin and send /setup there to get started.`

const helpText = `ℹ️ <b>Help</b>

1. Add me to your group or channel as an <b>admin</b> with the <b>delete messages</b> permission.
2. Send /setup in the chat. You become the super-admin and first allowed sender.
3. Messages from anyone else are deleted after the configured delay. Only messages sent after setup are touched.

<b>Commands:</b>
/setup - activate protection
/settings - settings panel
/allow - allow a sender (reply to their message, or /allow &lt;user id&gt;)
/disallow - disallow a sender
/delay &lt;minutes&gt; - set deletion delay (1-30)
/deactivate - stop protecting this chat
/stats - bot statistics`

// handleCommand processes bot commands. Returns nil for unknown commands
// so stray slash-texts in groups fall through silently.
func (h *Handler) handleCommand(ctx *th.Context, message telego.Message) error {
	incrementCounter(&totalCommandsProcessed)

	fields := strings.Fields(message.Text)
	if len(fields) == 0 {
		return nil
	}
	cmd := fields[0]
	// Strip the "@botname" suffix used in groups
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start":
		return h.cmdStart(ctx, message)
	case "/help":
		return h.sendText(ctx, message.Chat.ID, helpText)
	case "/setup":
		return h.cmdSetup(ctx, message)
	case "/settings":
		return h.cmdSettings(ctx, message)
	case "/allow":
		return h.cmdAllow(ctx, message, fields[1:], true)
	case "/disallow":
		return h.cmdAllow(ctx, message, fields[1:], false)
	case "/delay":
		return h.cmdDelay(ctx, message, fields[1:])
	case "/deactivate":
		return h.cmdDeactivate(ctx, message)
	case "/stats":
		return h.cmdStats(ctx, message)
	}
	return nil
}

func (h *Handler) cmdStart(ctx *th.Context, message telego.Message) error {
	keyboard := [][]telego.InlineKeyboardButton{
		{{Text: "ℹ️ Help", CallbackData: "menu:help"}},
		{{Text: "📊 Statistics", CallbackData: "menu:stats"}},
	}

	_, err := h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: message.Chat.ID},
		Text:        welcomeText,
		ParseMode:   "HTML",
		ReplyMarkup: &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	return err
}

// cmdSetup activates protection: the invoker must be a chat admin and the
// bot must be an admin able to delete messages. The invoker becomes the
// super-admin and the first allowed sender; activation time is stamped
// once and never moves.
func (h *Handler) cmdSetup(ctx *th.Context, message telego.Message) error {
	chatID := message.Chat.ID
	if message.Chat.Type == "private" {
		return h.sendText(ctx, chatID, "Please use /setup in the group or channel you want to protect.")
	}

	isAdmin, err := h.isUserAdmin(ctx, chatID, message.From.ID)
	if err != nil {
		logger.Warningf("Error checking admin status in chat %d: %v", chatID, err)
		return h.sendText(ctx, chatID, "❌ Could not verify your admin status, please try again.")
	}
	if !isAdmin {
		return h.sendText(ctx, chatID, "❌ You need to be an admin in this chat to set up the bot.")
	}

	botIsAdmin, err := h.isUserAdmin(ctx, chatID, h.botID)
	if err != nil || !botIsAdmin {
		return h.sendText(ctx, chatID, "❌ I need to be an <b>admin</b> in this chat with the <b>delete messages</b> permission. Promote me and run /setup again.")
	}

	invoker := message.From.ID
	cfg, err := h.store.Upsert(chatID, func(c *models.ChatConfig) error {
		c.ChatTitle = message.Chat.Title
		c.Active = true
		if c.AdminID == 0 {
			c.AdminID = invoker
		}
		if c.ActivatedAt.IsZero() {
			c.ActivatedAt = time.Now()
			c.DeleteDelay = h.cfg.Protection.DefaultDeleteDelay
		}
		c.AddAllowedSender(invoker)
		return nil
	})
	if err != nil {
		logger.Warningf("Error setting up chat %d: %v", chatID, err)
		return h.sendText(ctx, chatID, "❌ Storage is temporarily unavailable, please try /setup again.")
	}

	text := fmt.Sprintf(`✅ <b>Setup complete!</b>

<b>Chat:</b> %s
<b>Auto-deletion:</b> 🟢 enabled
<b>Deletion delay:</b> %s
<b>Allowed senders:</b> %d

Messages from senders not on the allow-list will now be deleted. Only messages sent from this moment on are affected.`,
		message.Chat.Title, formatDelay(cfg.DeleteDelay), len(cfg.AllowedSenders))

	keyboard := [][]telego.InlineKeyboardButton{
		{{Text: "⚙️ Settings", CallbackData: fmt.Sprintf("settings:%d", chatID)}},
	}
	_, err = h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	return err
}

func (h *Handler) cmdSettings(ctx *th.Context, message telego.Message) error {
	chatID := message.Chat.ID
	cfg, err := h.store.Get(chatID)
	if err != nil {
		return h.sendText(ctx, chatID, "This chat is not protected yet. Send /setup to activate protection.")
	}
	if !cfg.IsAllowed(message.From.ID) {
		return h.sendText(ctx, chatID, "❌ Only allowed senders can view the settings.")
	}

	text, keyboard := h.settingsPanel(cfg)
	_, err = h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	return err
}

// cmdAllow handles /allow and /disallow. The target comes from a replied
// message or a numeric argument; the actual mutation happens when the
// admin presses the confirmation button.
func (h *Handler) cmdAllow(ctx *th.Context, message telego.Message, args []string, add bool) error {
	chatID := message.Chat.ID
	if message.Chat.Type == "private" {
		return h.sendText(ctx, chatID, "Please use this command in a protected chat.")
	}

	var targetID int64
	var targetName string
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		targetID = message.ReplyToMessage.From.ID
		targetName = linkedUserName(*message.ReplyToMessage.From)
	} else if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return h.sendText(ctx, chatID, "Usage: reply to a message with the command, or pass a numeric user ID.")
		}
		targetID = id
		targetName = linkedUserID(id)
	} else {
		return h.sendText(ctx, chatID, "Reply to a message from the user, or pass their numeric user ID.")
	}

	var text, confirmData string
	if add {
		text = fmt.Sprintf("Add %s to the allow-list of this chat?", targetName)
		confirmData = fmt.Sprintf("allow:%d:%d", chatID, targetID)
	} else {
		text = fmt.Sprintf("Remove %s from the allow-list of this chat?", targetName)
		confirmData = fmt.Sprintf("rm:%d:%d", chatID, targetID)
	}

	keyboard := [][]telego.InlineKeyboardButton{
		{
			{Text: "✅ Confirm", CallbackData: confirmData},
			{Text: "❌ Cancel", CallbackData: "cancel"},
		},
	}
	_, err := h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	return err
}

func (h *Handler) cmdDelay(ctx *th.Context, message telego.Message, args []string) error {
	chatID := message.Chat.ID
	if len(args) == 0 {
		return h.sendText(ctx, chatID, "Usage: /delay &lt;minutes&gt; (1-30)")
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes < 1 || minutes > 30 {
		return h.sendText(ctx, chatID, "The delay must be between 1 and 30 minutes.")
	}

	h.dispatcher.Dispatch(service.DelayEvent{
		ChatID:          chatID,
		RequestingAdmin: message.From.ID,
		Seconds:         minutes * 60,
		Respond: func(applied int, err error) {
			if err != nil {
				h.reportActionError(chatID, err)
				return
			}
			h.sendBackground(chatID, fmt.Sprintf("⏱ Deletion delay set to %s.", formatDelay(applied)))
		},
	})
	return nil
}

func (h *Handler) cmdDeactivate(ctx *th.Context, message telego.Message) error {
	chatID := message.Chat.ID
	keyboard := [][]telego.InlineKeyboardButton{
		{
			{Text: "⏹ Yes, deactivate", CallbackData: fmt.Sprintf("deactc:%d", chatID)},
			{Text: "❌ Cancel", CallbackData: "cancel"},
		},
	}
	_, err := h.bot.SendMessage(ctx.Context(), &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: chatID},
		Text:        "Stop protecting this chat? Pending deletions will be cancelled.",
		ReplyMarkup: &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
	return err
}

func (h *Handler) cmdStats(ctx *th.Context, message telego.Message) error {
	text := h.formatStats()
	return h.sendText(ctx, message.Chat.ID, text)
}

// settingsPanel renders the settings text and keyboard for a chat
func (h *Handler) settingsPanel(cfg *models.ChatConfig) (string, [][]telego.InlineKeyboardButton) {
	status := "🟢 active"
	if !cfg.Active {
		status = "🔴 inactive"
	}

	text := fmt.Sprintf(`⚙️ <b>Auto-delete settings</b>

<b>Status:</b> %s
<b>Deletion delay:</b> %s
<b>Allowed senders:</b> %d

Pick a new delay or manage the allow-list below.`,
		status, formatDelay(cfg.DeleteDelay), len(cfg.AllowedSenders))

	chatID := cfg.ChatID
	keyboard := [][]telego.InlineKeyboardButton{
		{
			{Text: "1m", CallbackData: fmt.Sprintf("delay:%d:60", chatID)},
			{Text: "5m", CallbackData: fmt.Sprintf("delay:%d:300", chatID)},
			{Text: "10m", CallbackData: fmt.Sprintf("delay:%d:600", chatID)},
		},
		{
			{Text: "15m", CallbackData: fmt.Sprintf("delay:%d:900", chatID)},
			{Text: "30m", CallbackData: fmt.Sprintf("delay:%d:1800", chatID)},
		},
		{{Text: "👥 Allowed senders", CallbackData: fmt.Sprintf("list:%d", chatID)}},
		{{Text: "⏹ Deactivate", CallbackData: fmt.Sprintf("deact:%d", chatID)}},
	}
	return text, keyboard
}

func formatDelay(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if seconds%60 == 0 {
		return fmt.Sprintf("%d minutes", seconds/60)
	}
	return d.String()
}
