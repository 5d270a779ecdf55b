package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bill_reminder_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, d Deps) {
	b.Handle("/list_users", func(c telebot.Context) error {
		handlerLogger := d.Logger.WithFields(logrus.Fields{
			"handler":   "/list_users",
			"sender_id": c.Sender().ID,
		})

		users, err := d.Users.ListUsers(ctx, c.Sender().ID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				logWithError.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not allowed to run this command.")
			}
			logWithError.Error("Failed to get list of users")
			return c.Send(fmt.Sprintf("Failed to list users: %s", err.Error()))
		}

		if len(users) == 0 {
			handlerLogger.Info("No users registered")
			return c.Send("No users registered yet.")
		}
		handlerLogger.WithField("users_count", len(users)).Info("Successfully retrieved user list")

		var response strings.Builder
		response.WriteString(fmt.Sprintf("--- Users (%d) ---\n", len(users)))
		for _, u := range users {
			response.WriteString(fmt.Sprintf("ID: %d, Telegram ID: %d, Name: %s, Since: %s\n",
				u.ID,
				u.TelegramID,
				u.DisplayName(),
				u.CreatedAt.In(d.Location).Format("2006-01-02")))
		}
		return c.Send(response.String())
	})
}
