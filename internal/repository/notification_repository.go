package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safesite/safesite-api/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	List(ctx context.Context, username string, page PageRequest) ([]models.Notification, int64, error)
	GetByID(ctx context.Context, id int64) (models.Notification, error)
	MarkRead(ctx context.Context, id int64) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db *sql.DB
}

type CreateNotificationParams struct {
	UserID  string
	AlertID *int64
	Title   string
	Body    string
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `n.id, n.alert_id, n.user_id, u.username, n.title, n.body, n.is_read, n.created_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	const query = `
		WITH inserted AS (
			INSERT INTO notifications (user_id, alert_id, title, body)
			VALUES ($1, $2, $3, $4)
			RETURNING id, alert_id, user_id, title, body, is_read, created_at
		)
		SELECT n.id, n.alert_id, n.user_id, u.username, n.title, n.body, n.is_read, n.created_at
		FROM inserted n
		JOIN users u ON n.user_id = u.id
	`
	row := r.db.QueryRowContext(ctx, query, params.UserID, params.AlertID, params.Title, params.Body)
	return scanNotification(row)
}

func (r *notificationRepository) List(ctx context.Context, username string, page PageRequest) ([]models.Notification, int64, error) {
	username = strings.TrimSpace(username)
	page = page.normalized()

	countQuery := "SELECT COUNT(*) FROM notifications n JOIN users u ON n.user_id = u.id"
	listQuery := "SELECT " + notificationColumns + " FROM notifications n JOIN users u ON n.user_id = u.id"

	var countArgs, listArgs []interface{}
	if username != "" {
		countQuery += " WHERE u.username = $1"
		listQuery += " WHERE u.username = $1"
		countArgs = append(countArgs, username)
		listArgs = append(listArgs, username)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Newest-first is the default sort.
	listQuery += " ORDER BY n.created_at DESC"
	if username != "" {
		listQuery += " LIMIT $2 OFFSET $3"
	} else {
		listQuery += " LIMIT $1 OFFSET $2"
	}
	listArgs = append(listArgs, page.Size, page.offset())

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0, page.Size)
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (models.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications n JOIN users u ON n.user_id = u.id WHERE n.id = $1"
	return scanNotification(r.db.QueryRowContext(ctx, query, id))
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) (models.Notification, error) {
	const query = `
		WITH updated AS (
			UPDATE notifications SET is_read = TRUE
			WHERE id = $1
			RETURNING id, alert_id, user_id, title, body, is_read, created_at
		)
		SELECT n.id, n.alert_id, n.user_id, u.username, n.title, n.body, n.is_read, n.created_at
		FROM updated n
		JOIN users u ON n.user_id = u.id
	`
	return scanNotification(r.db.QueryRowContext(ctx, query, id))
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	const query = `
		UPDATE notifications SET is_read = TRUE
		WHERE user_id = $1 AND is_read = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif   models.Notification
		alertID sql.NullInt64
	)

	if err := scanner.Scan(
		&notif.ID,
		&alertID,
		&notif.UserID,
		&notif.Username,
		&notif.Title,
		&notif.Body,
		&notif.Read,
		&notif.CreatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	if alertID.Valid {
		v := alertID.Int64
		notif.AlertID = &v
	}

	return notif, nil
}
