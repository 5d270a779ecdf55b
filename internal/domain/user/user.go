package user

import (
	"database/sql"
	"time"
)

// User is a Telegram account that owns bills and notifications.
type User struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   sql.NullString // Telegram users may have no last name
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName joins first and last name.
func (u *User) DisplayName() string {
	if u.LastName.Valid && u.LastName.String != "" {
		return u.FirstName + " " + u.LastName.String
	}
	return u.FirstName
}
