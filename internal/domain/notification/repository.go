// internal/domain/notification/repository.go
package notification

import (
	"context"
)

// Repository defines operations for the notification inbox.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]*Notification, error)       // Newest first
	ListUnreadByUser(ctx context.Context, userID int64) ([]*Notification, error) // Newest first
	SetRead(ctx context.Context, id int64, read bool) error
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id int64) error
	DeleteAllByUser(ctx context.Context, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int, error)
}
