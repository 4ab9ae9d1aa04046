package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

// isUserAdmin checks whether the user is an administrator or the creator
// of the chat
func (h *Handler) isUserAdmin(ctx *th.Context, chatID int64, userID int64) (bool, error) {
	admins, err := h.bot.GetChatAdministrators(ctx.Context(), &telego.GetChatAdministratorsParams{
		ChatID: telego.ChatID{ID: chatID},
	})
	if err != nil {
		return false, err
	}

	for _, admin := range admins {
		if admin.MemberUser().ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// linkedUserName renders an HTML mention link for a user
func linkedUserName(user telego.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, name)
}

// linkedUserID renders an HTML mention link when only the ID is known
func linkedUserID(id int64) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%d</a>`, id, id)
}

// parseChatID extracts the chat ID from "prefix:chatID" callback data
func parseChatID(data string) (int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed callback data: %s", data)
	}
	return strconv.ParseInt(parts[1], 10, 64)
}

// parseChatAndArg extracts the chat ID and numeric argument from
// "prefix:chatID:arg" callback data
func parseChatAndArg(data string) (int64, int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("malformed callback data: %s", data)
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	arg, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return chatID, arg, nil
}

// parseChatAndUser is parseChatAndArg with the argument read as a user ID
func parseChatAndUser(data string) (int64, int64, error) {
	return parseChatAndArg(data)
}
