package telegram

import "gopkg.in/telebot.v3"

// Client sends messages to a Telegram chat.
// Application services depend on this instead of the bot library directly.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
