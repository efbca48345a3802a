package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type NotificationRepository struct {
	DB *db.Postgres
}

type CreateNotificationInput struct {
	UserID    int64
	Type      domain.NotificationType
	Title     string
	Message   string
	Link      string
	RelatedID *int64
}

const notificationColumns = `id, user_id, type, title, message, link, related_id, read_at, created_at`

func (r NotificationRepository) Create(ctx context.Context, in CreateNotificationInput) (*domain.Notification, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, link, related_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())
		RETURNING `+notificationColumns+`
	`, in.UserID, in.Type, in.Title, in.Message, in.Link, in.RelatedID)
	return scanNotification(row)
}

// ListByUser returns the user's inbox, newest first.
func (r NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE deleted_at IS NULL AND user_id=$1
		  AND (NOT $2::boolean OR read_at IS NULL)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

// MarkRead sets the read timestamp. Scoped to the owning user so one user
// cannot touch another's inbox.
func (r NotificationRepository) MarkRead(ctx context.Context, id, userID int64, at time.Time) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE notifications SET read_at=$3
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
	`, id, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead stamps every unread notification and reports how many changed.
func (r NotificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE notifications SET read_at=$2
		WHERE user_id=$1 AND read_at IS NULL AND deleted_at IS NULL
	`, userID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r NotificationRepository) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE notifications SET deleted_at=now()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllRead clears already-read notifications from the inbox.
func (r NotificationRepository) DeleteAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE notifications SET deleted_at=now()
		WHERE user_id=$1 AND read_at IS NOT NULL AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row interface {
	Scan(dest ...any) error
}) (*domain.Notification, error) {
	var (
		n         domain.Notification
		ntype     string
		relatedID pgtype.Int8
		readAt    pgtype.Timestamptz
	)
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&ntype,
		&n.Title,
		&n.Message,
		&n.Link,
		&relatedID,
		&readAt,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(ntype)
	if relatedID.Valid {
		n.RelatedID = &relatedID.Int64
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}
