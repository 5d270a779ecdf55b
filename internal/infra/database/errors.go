package database

import (
	"errors"

	"github.com/lib/pq"
)

// Custom errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateTelegramID  = errors.New("user with this Telegram ID already exists")
	ErrBillNotFound         = errors.New("bill not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
