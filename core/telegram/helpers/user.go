package helpers

import (
	"github.com/m3rciful/woofinder/core/state"
	"github.com/m3rciful/woofinder/core/wizard"

	tele "gopkg.in/telebot.v4"
)

// SenderFrom describes the user behind the update, or nil when Telegram did
// not identify one (channel posts, anonymous admins).
func SenderFrom(c tele.Context) *wizard.Sender {
	u := c.Sender()
	if u == nil || u.ID == 0 {
		return nil
	}
	return &wizard.Sender{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
		IsBot:        u.IsBot,
		IsPremium:    u.IsPremium,
	}
}

// ConversationKey identifies the user-in-chat the update belongs to. Private
// chats share the user's id, so the chat falls back to it when missing.
func ConversationKey(c tele.Context) state.Key {
	var key state.Key
	if u := c.Sender(); u != nil {
		key.UserID = u.ID
	}
	if chat := c.Chat(); chat != nil {
		key.ChatID = chat.ID
	} else {
		key.ChatID = key.UserID
	}
	return key
}
