package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"
	domainTelegram "bill_reminder_bot/internal/domain/telegram"
	"bill_reminder_bot/internal/domain/user"

	"github.com/sirupsen/logrus"
)

var ErrNotificationNotOwned = errors.New("notification belongs to another user")

// duplicateWindow is how far back Notify looks for an identical message.
const duplicateWindow = 24 * time.Hour

// DefaultReminderLookback matches the one minute reminder tick.
const DefaultReminderLookback = time.Minute

// NotificationService owns the inbox and the reminder check.
type NotificationService struct {
	notifRepo      notification.Repository
	billRepo       bill.Repository
	userRepo       user.Repository
	telegramClient domainTelegram.Client
	bus            *CountBus
	logger         *logrus.Entry

	loc            *time.Location
	currencySymbol string
	lookback       time.Duration
	now            func() time.Time
}

func NewNotificationService(
	nr notification.Repository,
	br bill.Repository,
	ur user.Repository,
	tc domainTelegram.Client, // may be nil, reminders then stay in the inbox only
	bus *CountBus,
	logger *logrus.Entry,
	loc *time.Location,
	currencySymbol string,
) *NotificationService {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationService{
		notifRepo:      nr,
		billRepo:       br,
		userRepo:       ur,
		telegramClient: tc,
		bus:            bus,
		logger:         logger,
		loc:            loc,
		currencySymbol: currencySymbol,
		lookback:       DefaultReminderLookback,
		now:            time.Now,
	}
}

// SetLookback sets how long after its reminder time a bill may still fire.
func (s *NotificationService) SetLookback(d time.Duration) {
	if d > 0 {
		s.lookback = d
	}
}

// ReminderMessage is the text stored and sent when a bill's reminder fires.
func ReminderMessage(b *bill.Bill, currencySymbol string) string {
	return fmt.Sprintf("Reminder: Your '%s' bill of %s%s is due in %d day(s).",
		b.Name, currencySymbol, b.Amount.StringFixed(2), b.Reminder().DaysBefore)
}

// ProcessDueReminders fires every bill whose reminder time fell within the
// lookback window ending at now. It returns how many reminders were created.
func (s *NotificationService) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	now = now.In(s.loc)
	bills, err := s.billRepo.ListWithDueDate(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bills for reminders: %w", err)
	}
	s.logger.WithField("bills", len(bills)).Debug("Checking bill reminders")

	sent := 0
	for _, b := range bills {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		b.AnchorTo(s.loc)
		at, ok := bill.ReminderAt(b)
		if !ok || at.After(now) || now.Sub(at) >= s.lookback {
			continue
		}

		log := s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "user_id": b.UserID, "reminder_at": at})
		already, err := s.hasBillNotificationToday(ctx, b, now)
		if err != nil {
			log.WithError(err).Error("Failed to check today's notifications")
			continue
		}
		if already {
			log.Debug("Reminder already sent today")
			continue
		}

		msg := ReminderMessage(b, s.currencySymbol)
		n, err := s.Notify(ctx, b.UserID, msg)
		if err != nil {
			log.WithError(err).Error("Failed to store reminder")
			continue
		}
		if n == nil {
			continue
		}
		sent++
		log.Info("Reminder created")
		s.push(ctx, b.UserID, msg, log)
	}
	return sent, nil
}

// hasBillNotificationToday reports whether a notification mentioning the
// bill's name was created on now's calendar day.
func (s *NotificationService) hasBillNotificationToday(ctx context.Context, b *bill.Bill, now time.Time) (bool, error) {
	list, err := s.notifRepo.ListByUser(ctx, b.UserID)
	if err != nil {
		return false, err
	}
	today := bill.DateOnly(now)
	for _, n := range list {
		if bill.DateOnly(n.CreatedAt.In(s.loc)).Equal(today) && strings.Contains(n.Message, b.Name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *NotificationService) push(ctx context.Context, userID int64, msg string, log *logrus.Entry) {
	if s.telegramClient == nil {
		return
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to load user for reminder delivery")
		return
	}
	if err := s.telegramClient.SendMessage(u.TelegramID, msg, nil); err != nil {
		log.WithError(err).WithField("telegram_id", u.TelegramID).Error("Failed to send reminder")
	}
}

// Notify stores message in the user's inbox unless an identical message was
// stored within the last 24 hours. A nil notification means it was skipped.
func (s *NotificationService) Notify(ctx context.Context, userID int64, message string) (*notification.Notification, error) {
	list, err := s.notifRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	since := s.now().Add(-duplicateWindow)
	for _, n := range list {
		if n.CreatedAt.After(since) && n.Message == message {
			s.logger.WithFields(logrus.Fields{"user_id": userID, "notification_id": n.ID}).
				Debug("Skipping duplicate notification")
			return nil, nil
		}
	}

	n := &notification.Notification{UserID: userID, Message: message}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	s.publishCount(ctx, userID)
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID)
}

func (s *NotificationService) ListUnread(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	return s.notifRepo.ListUnreadByUser(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.setRead(ctx, userID, id, true)
}

func (s *NotificationService) MarkUnread(ctx context.Context, userID, id int64) error {
	return s.setRead(ctx, userID, id, false)
}

func (s *NotificationService) setRead(ctx context.Context, userID, id int64, read bool) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := s.notifRepo.SetRead(ctx, id, read); err != nil {
		return err
	}
	s.publishCount(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.notifRepo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.publishCount(ctx, userID)
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := s.notifRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.publishCount(ctx, userID)
	return nil
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID int64) error {
	if err := s.notifRepo.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	s.publishCount(ctx, userID)
	return nil
}

func (s *NotificationService) checkOwner(ctx context.Context, userID, id int64) error {
	n, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotificationNotOwned
	}
	return nil
}

func (s *NotificationService) publishCount(ctx context.Context, userID int64) {
	if s.bus == nil {
		return
	}
	unread, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to count unread notifications")
		return
	}
	s.bus.Publish(notification.CountEvent{UserID: userID, Unread: unread})
}
