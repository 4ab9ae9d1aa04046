package handler

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/service"
	"tg-autodelete/internal/storage"
)

// onCallbackQuery processes callback queries from inline keyboards.
// Mutations are dispatched as typed events; replies happen in the
// Respond callbacks on the chat's worker goroutine.
func (h *Handler) onCallbackQuery(ctx *th.Context, query telego.CallbackQuery) error {
	incrementCounter(&totalCallbackQueries)

	if query.Data == "" {
		return nil
	}

	logger.Infof("Received callback query: %s", query.Data)

	switch {
	case query.Data == "cancel":
		h.answer(query.ID, "")
		h.deleteQueryMessage(query)
		return nil
	case strings.HasPrefix(query.Data, "menu:"):
		return h.handleMenuCallback(ctx, query)
	case strings.HasPrefix(query.Data, "allow:"):
		return h.handleAllowlistCallback(query, service.AllowlistAdd)
	case strings.HasPrefix(query.Data, "rm:"):
		return h.handleAllowlistCallback(query, service.AllowlistRemove)
	case strings.HasPrefix(query.Data, "list:"):
		return h.handleListCallback(query)
	case strings.HasPrefix(query.Data, "delay:"):
		return h.handleDelayCallback(query)
	case strings.HasPrefix(query.Data, "settings:"):
		return h.handleSettingsCallback(query)
	case strings.HasPrefix(query.Data, "deactc:"):
		return h.handleDeactivateCallback(query)
	case strings.HasPrefix(query.Data, "deact:"):
		return h.handleDeactivatePrompt(query)
	}

	logger.Warningf("Unrecognized callback data: %s", query.Data)
	h.answer(query.ID, "")
	return nil
}

func (h *Handler) handleMenuCallback(ctx *th.Context, query telego.CallbackQuery) error {
	h.answer(query.ID, "")

	var text string
	switch strings.TrimPrefix(query.Data, "menu:") {
	case "help":
		text = helpText
	case "stats":
		text = h.formatStats()
	default:
		return nil
	}

	h.editQueryMessage(query, text, nil)
	return nil
}

// handleAllowlistCallback dispatches an allow-list mutation triggered by
// a confirmation button
func (h *Handler) handleAllowlistCallback(query telego.CallbackQuery, action service.AllowlistAction) error {
	chatID, userID, err := parseChatAndUser(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in allow-list callback: %s", query.Data)
		h.answer(query.ID, "")
		return nil
	}

	h.dispatcher.Dispatch(service.AllowlistEvent{
		ChatID:          chatID,
		RequestingAdmin: query.From.ID,
		Action:          action,
		TargetUserID:    userID,
		Respond: func(_ []int64, err error) {
			if err != nil {
				h.answerActionError(query, err)
				return
			}
			if action == service.AllowlistAdd {
				h.answer(query.ID, "✅ Sender allowed")
				h.editQueryMessage(query, fmt.Sprintf("✅ %s is now on the allow-list and will not be deleted.", linkedUserID(userID)), nil)
			} else {
				h.answer(query.ID, "✅ Sender removed")
				h.editQueryMessage(query, fmt.Sprintf("✅ %s was removed from the allow-list.", linkedUserID(userID)), nil)
			}
		},
	})
	return nil
}

// handleListCallback renders the allow-list with per-user remove buttons
func (h *Handler) handleListCallback(query telego.CallbackQuery) error {
	chatID, err := parseChatID(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in list callback: %s", query.Data)
		h.answer(query.ID, "")
		return nil
	}

	h.dispatcher.Dispatch(service.AllowlistEvent{
		ChatID:          chatID,
		RequestingAdmin: query.From.ID,
		Action:          service.AllowlistList,
		Respond: func(users []int64, err error) {
			if err != nil {
				h.answerActionError(query, err)
				return
			}
			h.answer(query.ID, "")

			if len(users) == 0 {
				h.editQueryMessage(query, "The allow-list is empty. Use /allow to add senders.", nil)
				return
			}

			text := fmt.Sprintf("👥 <b>Allowed senders</b> (%d)\n\nTap a sender to remove them:", len(users))
			var keyboard [][]telego.InlineKeyboardButton
			for _, id := range users {
				keyboard = append(keyboard, []telego.InlineKeyboardButton{
					{Text: fmt.Sprintf("❌ %d", id), CallbackData: fmt.Sprintf("rm:%d:%d", chatID, id)},
				})
			}
			keyboard = append(keyboard, []telego.InlineKeyboardButton{
				{Text: "🔙 Back", CallbackData: fmt.Sprintf("settings:%d", chatID)},
			})
			h.editQueryMessage(query, text, keyboard)
		},
	})
	return nil
}

func (h *Handler) handleDelayCallback(query telego.CallbackQuery) error {
	chatID, seconds, err := parseChatAndArg(query.Data)
	if err != nil {
		logger.Warningf("Invalid callback data in delay callback: %s", query.Data)
		h.answer(query.ID, "")
		return nil
	}

	h.dispatcher.Dispatch(service.DelayEvent{
		ChatID:          chatID,
		RequestingAdmin: query.From.ID,
		Seconds:         int(seconds),
		Respond: func(applied int, err error) {
			if err != nil {
				h.answerActionError(query, err)
				return
			}
			h.answer(query.ID, fmt.Sprintf("⏱ Delay set to %s", formatDelay(applied)))
			h.refreshSettingsPanel(query, chatID)
		},
	})
	return nil
}

func (h *Handler) handleSettingsCallback(query telego.CallbackQuery) error {
	chatID, err := parseChatID(query.Data)
	if err != nil {
		h.answer(query.ID, "")
		return nil
	}
	h.answer(query.ID, "")
	h.refreshSettingsPanel(query, chatID)
	return nil
}

func (h *Handler) handleDeactivatePrompt(query telego.CallbackQuery) error {
	chatID, err := parseChatID(query.Data)
	if err != nil {
		h.answer(query.ID, "")
		return nil
	}
	h.answer(query.ID, "")

	keyboard := [][]telego.InlineKeyboardButton{
		{
			{Text: "⏹ Yes, deactivate", CallbackData: fmt.Sprintf("deactc:%d", chatID)},
			{Text: "🔙 Back", CallbackData: fmt.Sprintf("settings:%d", chatID)},
		},
	}
	h.editQueryMessage(query, "Stop protecting this chat? Pending deletions will be cancelled.", keyboard)
	return nil
}

func (h *Handler) handleDeactivateCallback(query telego.CallbackQuery) error {
	chatID, err := parseChatID(query.Data)
	if err != nil {
		h.answer(query.ID, "")
		return nil
	}

	h.dispatcher.Dispatch(service.DeactivateEvent{
		ChatID:          chatID,
		RequestingAdmin: query.From.ID,
		Respond: func(err error) {
			if err != nil {
				h.answerActionError(query, err)
				return
			}
			h.answer(query.ID, "Protection deactivated")
			h.editQueryMessage(query, "⏹ Protection is now <b>inactive</b>. Send /setup to re-enable it.", nil)
		},
	})
	return nil
}

// refreshSettingsPanel re-renders the settings panel in place
func (h *Handler) refreshSettingsPanel(query telego.CallbackQuery, chatID int64) {
	cfg, err := h.store.Get(chatID)
	if err != nil {
		logger.Warningf("Error loading config for settings panel of chat %d: %v", chatID, err)
		return
	}
	text, keyboard := h.settingsPanel(cfg)
	h.editQueryMessage(query, text, keyboard)
}

// answerActionError reports a failed admin action back to the requester
func (h *Handler) answerActionError(query telego.CallbackQuery, err error) {
	incrementCounter(&totalErrors)

	switch {
	case pkgerrors.Is(err, service.ErrPermissionDenied):
		h.answerAlert(query.ID, "You don't have permission to manage this chat.")
	case pkgerrors.Is(err, storage.ErrNotFound):
		h.answerAlert(query.ID, "This chat is not protected. Send /setup first.")
	case pkgerrors.Is(err, storage.ErrStorageUnavailable):
		h.answerAlert(query.ID, "Storage is temporarily unavailable, please try again.")
	default:
		logger.Warningf("Admin action failed: %v", err)
		h.answerAlert(query.ID, "Something went wrong, please try again.")
	}
}

// reportActionError is the message-based counterpart of answerActionError
func (h *Handler) reportActionError(chatID int64, err error) {
	incrementCounter(&totalErrors)

	switch {
	case pkgerrors.Is(err, service.ErrPermissionDenied):
		h.sendBackground(chatID, "❌ You don't have permission to manage this chat.")
	case pkgerrors.Is(err, storage.ErrNotFound):
		h.sendBackground(chatID, "This chat is not protected. Send /setup first.")
	case pkgerrors.Is(err, storage.ErrStorageUnavailable):
		h.sendBackground(chatID, "❌ Storage is temporarily unavailable, please try again.")
	default:
		logger.Warningf("Admin action failed: %v", err)
		h.sendBackground(chatID, "❌ Something went wrong, please try again.")
	}
}

func (h *Handler) answer(queryID, text string) {
	err := h.bot.AnswerCallbackQuery(context.Background(), &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
	if err != nil {
		logger.Warningf("Error answering callback query: %v", err)
	}
}

func (h *Handler) answerAlert(queryID, text string) {
	err := h.bot.AnswerCallbackQuery(context.Background(), &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       true,
	})
	if err != nil {
		logger.Warningf("Error answering callback query: %v", err)
	}
}

// editQueryMessage updates the message the pressed button belongs to
func (h *Handler) editQueryMessage(query telego.CallbackQuery, text string, keyboard [][]telego.InlineKeyboardButton) {
	if query.Message == nil {
		return
	}
	accessibleMsg, ok := query.Message.(*telego.Message)
	if !ok {
		return
	}

	params := &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: accessibleMsg.Chat.ID},
		MessageID: accessibleMsg.MessageID,
		Text:      text,
		ParseMode: "HTML",
	}
	if keyboard != nil {
		params.ReplyMarkup = &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard}
	}

	if _, err := h.bot.EditMessageText(context.Background(), params); err != nil {
		logger.Warningf("Error editing message: %v", err)
	}
}

// deleteQueryMessage removes the prompt message a cancel button belongs to
func (h *Handler) deleteQueryMessage(query telego.CallbackQuery) {
	if query.Message == nil {
		return
	}
	accessibleMsg, ok := query.Message.(*telego.Message)
	if !ok {
		return
	}
	err := h.bot.DeleteMessage(context.Background(), &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: accessibleMsg.Chat.ID},
		MessageID: accessibleMsg.MessageID,
	})
	if err != nil {
		logger.Warningf("Error deleting prompt message: %v", err)
	}
}

// sendBackground sends a message outside a handler context, used from
// dispatcher Respond callbacks
func (h *Handler) sendBackground(chatID int64, text string) {
	_, err := h.bot.SendMessage(context.Background(), &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		logger.Warningf("Error sending message to chat %d: %v", chatID, err)
	}
}
