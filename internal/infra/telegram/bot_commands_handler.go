package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bill_reminder_bot/internal/app"
	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"
	"bill_reminder_bot/internal/domain/user"
	idb "bill_reminder_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Deps holds what the command handlers need.
type Deps struct {
	Users          *app.UserService
	Bills          *app.BillService
	Notifications  *app.NotificationService
	UnreadCounts   notification.CountProvider
	Location       *time.Location
	CurrencySymbol string
	Logger         *logrus.Entry
}

// RegisterAll wires every command and button handler onto the bot.
func RegisterAll(ctx context.Context, b *telebot.Bot, d Deps) {
	RegisterBotCommands(ctx, b, d)
	RegisterBillHandlers(ctx, b, d)
	RegisterBillCallbacks(ctx, b, d)
	RegisterNotificationHandlers(ctx, b, d)
	RegisterAdminHandlers(ctx, b, d)
}

func RegisterBotCommands(ctx context.Context, b *telebot.Bot, d Deps) {
	startHelpLogger := d.Logger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := startHelpLogger.WithFields(logrus.Fields{"command": "/start", "sender_id": c.Sender().ID})
		logCtx.Info("Processing /start command")

		u, created, err := d.Users.Register(ctx, c.Sender().ID, c.Sender().FirstName, c.Sender().LastName)
		if err != nil {
			logCtx.WithError(err).Error("Failed to register user")
			return c.Send("Something went wrong while registering you. Please try again later.")
		}
		logCtx = logCtx.WithField("user_id", u.ID)
		if created {
			logCtx.Info("New user registered")
			return c.Send(fmt.Sprintf("Hi, %s! I track your recurring bills and remind you before they are due. Add one with /add_bill or see /help.", u.FirstName))
		}
		logCtx.Info("Known user")
		return c.Send(fmt.Sprintf("Welcome back, %s! Use /bills to see what is due.", u.FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		startHelpLogger.WithFields(logrus.Fields{"command": "/help", "sender_id": c.Sender().ID}).Info("Processing /help command")
		text := helpText
		if d.Users.IsAdmin(c.Sender().ID) {
			text += adminHelpText
		}
		return c.Send(text)
	})
}

// currentUser resolves the sender, registering them on first use.
func (d Deps) currentUser(ctx context.Context, c telebot.Context) (*user.User, error) {
	u, _, err := d.Users.Register(ctx, c.Sender().ID, c.Sender().FirstName, c.Sender().LastName)
	return u, err
}

func commandArgs(c telebot.Context) []string {
	if c.Message() == nil {
		return nil
	}
	return splitArgs(c.Message().Payload)
}

const genericFailure = "Failed to save. Please try again later."

// userMessage maps service errors to the reply shown in chat.
func userMessage(err error) string {
	switch {
	case errors.Is(err, idb.ErrBillNotFound), errors.Is(err, app.ErrBillNotOwned):
		return "Bill not found."
	case errors.Is(err, idb.ErrNotificationNotFound), errors.Is(err, app.ErrNotificationNotOwned):
		return "Notification not found."
	case errors.Is(err, bill.ErrInvalidBill):
		return "Invalid bill: " + err.Error()
	case errors.Is(err, app.ErrAdminNotAuthorized):
		return "You are not allowed to run this command."
	default:
		return genericFailure
	}
}

// replyError logs err at a level matching its cause and sends the chat reply.
func replyError(c telebot.Context, log *logrus.Entry, err error) error {
	msg := userMessage(err)
	if msg == genericFailure {
		log.WithError(err).Error("Command failed")
	} else {
		log.WithError(err).Warn("Command rejected")
	}
	return c.Send(msg)
}
