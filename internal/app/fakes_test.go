package app

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"
	"bill_reminder_bot/internal/domain/user"
	idb "bill_reminder_bot/internal/infra/database"
	"bill_reminder_bot/internal/infra/logger"

	"gopkg.in/telebot.v3"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeBillRepo struct {
	mu        sync.Mutex
	bills     map[int64]*bill.Bill
	nextID    int64
	patches   int
	readDelay time.Duration
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{bills: make(map[int64]*bill.Bill)}
}

func (r *fakeBillRepo) Create(_ context.Context, b *bill.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	r.bills[b.ID] = b.Clone()
	return nil
}

func (r *fakeBillRepo) GetByID(_ context.Context, id int64) (*bill.Bill, error) {
	r.mu.Lock()
	b, ok := r.bills[id]
	var out *bill.Bill
	if ok {
		out = b.Clone()
	}
	delay := r.readDelay
	r.mu.Unlock()
	if !ok {
		return nil, idb.ErrBillNotFound
	}
	// Widens the read-modify-write window for concurrency tests.
	time.Sleep(delay)
	return out, nil
}

func (r *fakeBillRepo) list(keep func(*bill.Bill) bool) []*bill.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bill.Bill
	for _, b := range r.bills {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeBillRepo) ListByUser(_ context.Context, userID int64) ([]*bill.Bill, error) {
	return r.list(func(b *bill.Bill) bool { return b.UserID == userID }), nil
}

func (r *fakeBillRepo) ListWithDueDate(_ context.Context) ([]*bill.Bill, error) {
	return r.list(func(b *bill.Bill) bool { return b.NextDueDate.Valid }), nil
}

func (r *fakeBillRepo) Update(_ context.Context, b *bill.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bills[b.ID]
	if !ok {
		return idb.ErrBillNotFound
	}
	c := b.Clone()
	c.IsPaid, c.PaidDate = stored.IsPaid, stored.PaidDate
	r.bills[b.ID] = c
	return nil
}

func (r *fakeBillRepo) ApplyPatch(_ context.Context, id int64, p bill.Patch) (*bill.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bills[id]
	if !ok {
		return nil, idb.ErrBillNotFound
	}
	r.patches++
	updated := p.Apply(stored)
	r.bills[id] = updated
	return updated.Clone(), nil
}

func (r *fakeBillRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bills[id]; !ok {
		return idb.ErrBillNotFound
	}
	delete(r.bills, id)
	return nil
}

func (r *fakeBillRepo) stored(id int64) *bill.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bills[id].Clone()
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	items  []*notification.Notification
	nextID int64
	clock  *fakeClock
}

func newFakeNotificationRepo(clock *fakeClock) *fakeNotificationRepo {
	return &fakeNotificationRepo{clock: clock}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = r.clock.Now()
	c := *n
	r.items = append(r.items, &c)
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id int64) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			c := *n
			return &c, nil
		}
	}
	return nil, idb.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) filter(keep func(*notification.Notification) bool) []*notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		if keep(r.items[i]) {
			c := *r.items[i]
			out = append(out, &c)
		}
	}
	return out
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID int64) ([]*notification.Notification, error) {
	return r.filter(func(n *notification.Notification) bool { return n.UserID == userID }), nil
}

func (r *fakeNotificationRepo) ListUnreadByUser(_ context.Context, userID int64) ([]*notification.Notification, error) {
	return r.filter(func(n *notification.Notification) bool { return n.UserID == userID && !n.IsRead }), nil
}

func (r *fakeNotificationRepo) SetRead(_ context.Context, id int64, read bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			n.IsRead = read
			return nil
		}
	}
	return idb.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.items {
		if n.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return idb.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) DeleteAllByUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, n := range r.items {
		if n.UserID != userID {
			kept = append(kept, n)
		}
	}
	r.items = kept
	return nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	list, _ := r.ListUnreadByUser(ctx, userID)
	return len(list), nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  []*user.User
	nextID int64
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.TelegramID == u.TelegramID {
			return idb.ErrDuplicateTelegramID
		}
	}
	r.nextID++
	u.ID = r.nextID
	c := *u
	r.users = append(r.users, &c)
	return nil
}

func (r *fakeUserRepo) find(match func(*user.User) bool) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, idb.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.TelegramID == telegramID })
}

func (r *fakeUserRepo) ListAll(_ context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeTelegram) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type testEnv struct {
	clock     *fakeClock
	bills     *fakeBillRepo
	notifs    *fakeNotificationRepo
	users     *fakeUserRepo
	telegram  *fakeTelegram
	bus       *CountBus
	billSvc   *BillService
	notifySvc *NotificationService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:    &fakeClock{now: now},
		bills:    newFakeBillRepo(),
		users:    &fakeUserRepo{},
		telegram: &fakeTelegram{},
		bus:      NewCountBus(8),
	}
	env.notifs = newFakeNotificationRepo(env.clock)
	log := logger.Discard()
	env.notifySvc = NewNotificationService(env.notifs, env.bills, env.users, env.telegram, env.bus, log, time.UTC, "₹")
	env.notifySvc.now = env.clock.Now
	env.billSvc = NewBillService(env.bills, env.notifySvc, log, time.UTC, "₹")
	env.billSvc.now = env.clock.Now
	return env
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(bill.DateLayout, s, time.UTC)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return ts
}
