package telegram

import (
	"context"
	"fmt"
	"strings"

	"bill_reminder_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterNotificationHandlers(ctx context.Context, b *telebot.Bot, d Deps) {
	b.Handle("/notifications", func(c telebot.Context) error {
		log := d.Logger.WithFields(logrus.Fields{"handler": "/notifications", "sender_id": c.Sender().ID})
		u, err := d.currentUser(ctx, c)
		if err != nil {
			return replyError(c, log, err)
		}

		unreadOnly := false
		if args := commandArgs(c); len(args) > 0 && strings.EqualFold(args[0], "unread") {
			unreadOnly = true
		}
		var list []*notification.Notification
		if unreadOnly {
			list, err = d.Notifications.ListUnread(ctx, u.ID)
		} else {
			list, err = d.Notifications.List(ctx, u.ID)
		}
		if err != nil {
			return replyError(c, log, err)
		}
		unread, err := d.UnreadCounts.UnreadCount(ctx, u.ID)
		if err != nil {
			log.WithError(err).Warn("Failed to get unread count")
		}
		return c.Send(formatNotifications(list, unread, d.Location))
	})

	// Commands taking a single notification id.
	withID := func(command, done string, run func(userID, id int64) error) {
		b.Handle(command, func(c telebot.Context) error {
			log := d.Logger.WithFields(logrus.Fields{"handler": command, "sender_id": c.Sender().ID})
			args := commandArgs(c)
			if len(args) != 1 {
				return c.Send(fmt.Sprintf("Usage: %s <id>", command))
			}
			id, err := parseID(args[0])
			if err != nil {
				return c.Send("Error: " + err.Error())
			}
			u, err := d.currentUser(ctx, c)
			if err != nil {
				return replyError(c, log, err)
			}
			if err := run(u.ID, id); err != nil {
				return replyError(c, log.WithField("notification_id", id), err)
			}
			return c.Send(fmt.Sprintf(done, id))
		})
	}
	withID("/read", "Notification #%d marked as read.", func(userID, id int64) error {
		return d.Notifications.MarkRead(ctx, userID, id)
	})
	withID("/unread", "Notification #%d marked as unread.", func(userID, id int64) error {
		return d.Notifications.MarkUnread(ctx, userID, id)
	})
	withID("/delete_notification", "Notification #%d deleted.", func(userID, id int64) error {
		return d.Notifications.Delete(ctx, userID, id)
	})

	// Commands acting on the whole inbox.
	forUser := func(command, done string, run func(userID int64) error) {
		b.Handle(command, func(c telebot.Context) error {
			log := d.Logger.WithFields(logrus.Fields{"handler": command, "sender_id": c.Sender().ID})
			u, err := d.currentUser(ctx, c)
			if err != nil {
				return replyError(c, log, err)
			}
			if err := run(u.ID); err != nil {
				return replyError(c, log, err)
			}
			return c.Send(done)
		})
	}
	forUser("/read_all", "All notifications marked as read.", func(userID int64) error {
		return d.Notifications.MarkAllRead(ctx, userID)
	})
	forUser("/clear_notifications", "All notifications deleted.", func(userID int64) error {
		return d.Notifications.DeleteAll(ctx, userID)
	})
}
