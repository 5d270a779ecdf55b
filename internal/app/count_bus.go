package app

import (
	"context"
	"sync"
	"time"

	"bill_reminder_bot/internal/domain/notification"
)

const defaultCountBufferSize = 32

// CountBus fans unread count changes out to subscribers.
// Publishing never blocks; a subscriber with a full buffer misses the event.
type CountBus struct {
	mu        sync.Mutex
	subs      map[int]chan notification.CountEvent
	nextSubID int
	buffer    int
}

func NewCountBus(buffer int) *CountBus {
	if buffer <= 0 {
		buffer = defaultCountBufferSize
	}
	return &CountBus{
		subs:   make(map[int]chan notification.CountEvent),
		buffer: buffer,
	}
}

// Subscribe returns a channel of events and a func that unsubscribes and closes it.
func (b *CountBus) Subscribe() (<-chan notification.CountEvent, func()) {
	ch := make(chan notification.CountEvent, b.buffer)

	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

func (b *CountBus) Publish(ev notification.CountEvent) {
	b.mu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()
}

// DefaultCountTTL bounds how long a cached count is served without asking
// the repository. Writes from another process never reach this bus.
const DefaultCountTTL = 30 * time.Second

type cachedCount struct {
	unread int
	at     time.Time
}

// UnreadCounter caches unread counts per user. A bus event only drops the
// user's entry; counts always come from the repository, so a late or out of
// order event can never install a wrong value.
type UnreadCounter struct {
	repo        notification.Repository
	events      <-chan notification.CountEvent
	unsubscribe func()
	ttl         time.Duration
	now         func() time.Time

	mu     sync.Mutex
	counts map[int64]cachedCount
	gens   map[int64]uint64
}

var _ notification.CountProvider = (*UnreadCounter)(nil)

// NewUnreadCounter subscribes right away so events published before Run are kept.
func NewUnreadCounter(repo notification.Repository, bus *CountBus) *UnreadCounter {
	events, unsubscribe := bus.Subscribe()
	return &UnreadCounter{
		repo:        repo,
		events:      events,
		unsubscribe: unsubscribe,
		ttl:         DefaultCountTTL,
		now:         time.Now,
		counts:      make(map[int64]cachedCount),
		gens:        make(map[int64]uint64),
	}
}

// SetTTL changes how long a cached count stays fresh.
func (c *UnreadCounter) SetTTL(d time.Duration) {
	if d > 0 {
		c.ttl = d
	}
}

// Run invalidates cached counts as events arrive, until ctx is done.
func (c *UnreadCounter) Run(ctx context.Context) {
	defer c.unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.invalidate(ev.UserID)
		}
	}
}

func (c *UnreadCounter) invalidate(userID int64) {
	c.mu.Lock()
	delete(c.counts, userID)
	c.gens[userID]++
	c.mu.Unlock()
}

// UnreadCount serves a fresh cached count or reads it from the repository.
func (c *UnreadCounter) UnreadCount(ctx context.Context, userID int64) (int, error) {
	c.mu.Lock()
	entry, ok := c.counts[userID]
	if ok && c.now().Sub(entry.at) < c.ttl {
		c.mu.Unlock()
		return entry.unread, nil
	}
	gen := c.gens[userID]
	c.mu.Unlock()

	n, err := c.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	// An invalidation during the read means n may already be stale.
	if c.gens[userID] == gen {
		c.counts[userID] = cachedCount{unread: n, at: c.now()}
	}
	c.mu.Unlock()
	return n, nil
}
