// internal/domain/notification/counter.go
package notification

import "context"

// CountEvent carries the unread count of a user after an inbox change.
type CountEvent struct {
	UserID int64
	Unread int
}

// CountProvider answers how many unread notifications a user has.
type CountProvider interface {
	UnreadCount(ctx context.Context, userID int64) (int, error)
}
