package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marzouqa/souq-backend/internal/domain/notify"
)

const (
	insertNotificationSQL = `INSERT INTO notifications (id, user_id, title, message, type)
		VALUES ($1, $2, $3, $4, $5)`

	listNotificationsSQL = `SELECT id, user_id, title, message, type, read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	markNotificationReadSQL = `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`
)

var (
	_ notify.Notifier = (*NotificationStore)(nil)
	_ notify.Inbox    = (*NotificationStore)(nil)
)

// NotificationStore persists notifications as in-app inbox rows.
type NotificationStore struct {
	db DB
}

// NewNotificationStore returns a NotificationStore that uses the given db.
func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Notify stores the notification in the user's inbox.
func (s *NotificationStore) Notify(ctx context.Context, userID, title, message string, t notify.Type) error {
	_, err := s.db.Exec(ctx, insertNotificationSQL, uuid.New().String(), userID, title, message, t)
	if err != nil {
		return fmt.Errorf("storing notification for %q: %w", userID, err)
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]notify.Message, error) {
	rows, err := s.db.Query(ctx, listNotificationsSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (notify.Message, error) {
		var m notify.Message
		err := row.Scan(&m.ID, &m.UserID, &m.Title, &m.Body, &m.Type, &m.Read, &m.CreatedAt)
		return m, err
	})
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.db.Exec(ctx, markNotificationReadSQL, id, userID); err != nil {
		return fmt.Errorf("marking notification %q read: %w", id, err)
	}
	return nil
}
