package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"tiffinloop/internal/domain"
)

func (r *Repository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	err = r.DB.QueryRowContext(ctx, `
		INSERT INTO notifications (title, message, type, variant, category,
			user_id, partner_id, order_id, data, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, 0), NULLIF($8, 0), $9, $10, $11)
		RETURNING id, created_at
	`, n.Title, n.Message, n.Type, n.Variant, n.Category,
		n.UserID, n.PartnerID, n.OrderID, data, n.Status, n.ScheduledFor,
	).Scan(&n.ID, &n.CreatedAt)
	return translateErr(err)
}

func (r *Repository) UpdateNotificationStatus(ctx context.Context, id int, status domain.NotificationStatus) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE notifications SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateNotificationStats(ctx context.Context, id int, stats map[string]domain.ChannelStats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
		UPDATE notifications SET stats = $1 WHERE id = $2
	`, blob, id)
	return translateErr(err)
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id int, at time.Time) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE notifications SET read = true, read_at = $1 WHERE id = $2 AND read = false
	`, at, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimDue flips due pending records to sent and returns them in one
// statement, so two sweepers running at once cannot deliver the same
// notification twice.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `
		UPDATE notifications SET status = 'sent'
		WHERE status = 'pending' AND scheduled_for IS NOT NULL AND scheduled_for <= $1
		RETURNING id, title, message, type, variant, category,
			COALESCE(user_id, 0), COALESCE(partner_id, 0), COALESCE(order_id, 0),
			data, status, scheduled_for, created_at
	`, now)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *Repository) ListUnread(ctx context.Context, userID int) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, title, message, type, variant, category,
			COALESCE(user_id, 0), COALESCE(partner_id, 0), COALESCE(order_id, 0),
			data, status, scheduled_for, created_at
		FROM notifications
		WHERE user_id = $1 AND status = 'sent' AND read = false
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *Repository) ListNotifications(ctx context.Context, userID int, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, title, message, type, variant, category,
			COALESCE(user_id, 0), COALESCE(partner_id, 0), COALESCE(order_id, 0),
			data, status, scheduled_for, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]domain.Notification, error) {
	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Variant, &n.Category,
			&n.UserID, &n.PartnerID, &n.OrderID, &data, &n.Status, &n.ScheduledFor, &n.CreatedAt); err != nil {
			continue
		}
		if len(data) > 0 {
			json.Unmarshal(data, &n.Data)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
