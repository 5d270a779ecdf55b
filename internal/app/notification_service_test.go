package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"
	"bill_reminder_bot/internal/domain/user"

	"github.com/shopspring/decimal"
)

func registerUser(t *testing.T, env *testEnv, telegramID int64) *user.User {
	t.Helper()
	u := &user.User{TelegramID: telegramID, FirstName: "Asha"}
	if err := env.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestProcessDueRemindersFiresOncePerDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, mustTime(t, "2024-03-01T08:00:00Z"))
	u := registerUser(t, env, 555)
	// Default reminder: 2 days before at 09:00, so 2024-03-10T09:00.
	createBill(t, env, u.ID, "Rent", "2024-03-12", bill.FrequencyMonthly)

	tests := []struct {
		name string
		now  string
		want int
	}{
		{"before reminder time", "2024-03-10T08:59:59Z", 0},
		{"inside lookback", "2024-03-10T09:00:30Z", 1},
		{"same day again", "2024-03-10T09:00:45Z", 0},
		{"past lookback", "2024-03-10T09:01:00Z", 0},
	}
	for _, tt := range tests {
		now := mustTime(t, tt.now)
		env.clock.Set(now)
		got, err := env.notifySvc.ProcessDueReminders(ctx, now)
		if err != nil {
			t.Fatalf("%s: ProcessDueReminders: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: fired %d, want %d", tt.name, got, tt.want)
		}
	}

	list, _ := env.notifs.ListByUser(ctx, u.ID)
	if len(list) != 1 {
		t.Fatalf("inbox has %d notifications, want 1", len(list))
	}
	want := "Reminder: Your 'Rent' bill of ₹100.00 is due in 2 day(s)."
	if list[0].Message != want {
		t.Errorf("message = %q, want %q", list[0].Message, want)
	}
	sent := env.telegram.messages()
	if len(sent) != 1 || sent[0].chatID != 555 || sent[0].text != want {
		t.Errorf("telegram sent %+v", sent)
	}
}

func TestProcessDueRemindersZeroDaysBefore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, mustTime(t, "2024-03-01T08:00:00Z"))
	u := registerUser(t, env, 556)
	due := mustDate(t, "2024-03-12")
	_, err := env.billSvc.CreateBill(ctx, u.ID, BillInput{
		Name:        "Water",
		Amount:      decimal.RequireFromString("42.5"),
		Frequency:   bill.FrequencyMonthly,
		NextDueDate: &due,
		Reminder:    &bill.ReminderSettings{DaysBefore: 0, Hour: 0, Minute: 0},
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}

	now := mustTime(t, "2024-03-12T00:00:10Z")
	env.clock.Set(now)
	got, err := env.notifySvc.ProcessDueReminders(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDueReminders: %v", err)
	}
	if got != 1 {
		t.Fatalf("fired %d, want 1 at midnight of the due date", got)
	}
	list, _ := env.notifs.ListByUser(ctx, u.ID)
	if want := "Reminder: Your 'Water' bill of ₹42.50 is due in 0 day(s)."; list[0].Message != want {
		t.Errorf("message = %q, want %q", list[0].Message, want)
	}
}

func TestProcessDueRemindersWiderLookback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, mustTime(t, "2024-03-01T08:00:00Z"))
	u := registerUser(t, env, 557)
	createBill(t, env, u.ID, "Rent", "2024-03-12", bill.FrequencyMonthly)
	env.notifySvc.SetLookback(15 * time.Minute)

	now := mustTime(t, "2024-03-10T09:10:00Z")
	env.clock.Set(now)
	if got, _ := env.notifySvc.ProcessDueReminders(ctx, now); got != 1 {
		t.Errorf("fired %d, want 1 within a 15 minute lookback", got)
	}
}

func TestNotifySkipsRecentDuplicates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, mustTime(t, "2024-03-01T08:00:00Z"))

	first, err := env.notifySvc.Notify(ctx, 1, "hello")
	if err != nil || first == nil {
		t.Fatalf("first Notify = %v, %v", first, err)
	}
	if dup, _ := env.notifySvc.Notify(ctx, 1, "hello"); dup != nil {
		t.Error("identical message within 24h was stored")
	}
	if other, _ := env.notifySvc.Notify(ctx, 2, "hello"); other == nil {
		t.Error("same message for another user was skipped")
	}

	env.clock.Set(mustTime(t, "2024-03-02T08:00:01Z"))
	if again, _ := env.notifySvc.Notify(ctx, 1, "hello"); again == nil {
		t.Error("message older than 24h should not block a new one")
	}
}

func TestNotificationMutationsPublishCounts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, mustTime(t, "2024-03-01T08:00:00Z"))
	events, unsubscribe := env.bus.Subscribe()
	defer unsubscribe()

	expect := func(want int) {
		t.Helper()
		select {
		case ev := <-events:
			if ev.UserID != 1 || ev.Unread != want {
				t.Errorf("event = %+v, want user 1 unread %d", ev, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no count event, want unread %d", want)
		}
	}

	a, _ := env.notifySvc.Notify(ctx, 1, "a")
	expect(1)
	b, _ := env.notifySvc.Notify(ctx, 1, "b")
	expect(2)

	if err := env.notifySvc.MarkRead(ctx, 1, a.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	expect(1)
	if err := env.notifySvc.MarkUnread(ctx, 1, a.ID); err != nil {
		t.Fatalf("MarkUnread: %v", err)
	}
	expect(2)
	if err := env.notifySvc.MarkAllRead(ctx, 1); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	expect(0)
	if err := env.notifySvc.Delete(ctx, 1, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	expect(0)
	if err := env.notifySvc.DeleteAll(ctx, 1); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	expect(0)
}

func TestNotificationOwnership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, mustTime(t, "2024-03-01T08:00:00Z"))
	n, _ := env.notifySvc.Notify(ctx, 1, "mine")

	if err := env.notifySvc.MarkRead(ctx, 2, n.ID); !errors.Is(err, ErrNotificationNotOwned) {
		t.Errorf("MarkRead err = %v, want ErrNotificationNotOwned", err)
	}
	if err := env.notifySvc.Delete(ctx, 2, n.ID); !errors.Is(err, ErrNotificationNotOwned) {
		t.Errorf("Delete err = %v, want ErrNotificationNotOwned", err)
	}
	unread, _ := env.notifySvc.ListUnread(ctx, 1)
	if len(unread) != 1 {
		t.Errorf("unread = %d, want 1", len(unread))
	}
}

var _ notification.Repository = (*fakeNotificationRepo)(nil)
