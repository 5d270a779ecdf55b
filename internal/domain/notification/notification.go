// internal/domain/notification/notification.go
package notification

import "time"

// Notification is an inbox entry shown to a user, e.g. a bill reminder.
type Notification struct {
	ID        int64
	UserID    int64 // Foreign Key to users.id
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
