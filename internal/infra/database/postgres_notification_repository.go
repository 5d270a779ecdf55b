// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bill_reminder_bot/internal/domain/notification"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `INSERT INTO notifications (user_id, message, is_read)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Message, n.IsRead).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	query := `SELECT id, user_id, message, is_read, created_at FROM notifications WHERE id = $1`
	n := notification.Notification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("error getting notification by ID: %w", err)
	}
	return &n, nil
}

// Helper to scan multiple rows
func scanNotifications(rows *sql.Rows) ([]*notification.Notification, error) {
	list := make([]*notification.Notification, 0)
	for rows.Next() {
		n := notification.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		list = append(list, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return list, nil
}

func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	query := `SELECT id, user_id, message, is_read, created_at FROM notifications
               WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying notifications by user: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *PostgresNotificationRepository) ListUnreadByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	query := `SELECT id, user_id, message, is_read, created_at FROM notifications
               WHERE user_id = $1 AND is_read = FALSE ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying unread notifications by user: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *PostgresNotificationRepository) SetRead(ctx context.Context, id int64, read bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = $1 WHERE id = $2`, read, id)
	if err != nil {
		return fmt.Errorf("error updating notification read flag: %w", err)
	}
	return expectAffected(res, ErrNotificationNotFound)
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return fmt.Errorf("error marking all notifications read: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting notification: %w", err)
	}
	return expectAffected(res, ErrNotificationNotFound)
}

func (r *PostgresNotificationRepository) DeleteAllByUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error deleting notifications of user %d: %w", userID, err)
	}
	return nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&count)
	if err != nil {
		// COUNT(*) always returns a row, so any error here is a real DB error.
		return 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return count, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
