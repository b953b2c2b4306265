package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"tiffinloop/internal/domain"
)

// UpsertDevice registers or refreshes a push token. The token is the
// identity: re-registering an existing token moves it to the new user and
// reactivates it.
func (r *Repository) UpsertDevice(ctx context.Context, d *domain.Device) error {
	prefs, err := json.Marshal(d.Prefs)
	if err != nil {
		return err
	}
	err = r.DB.QueryRowContext(ctx, `
		INSERT INTO devices (user_id, token, device_id, platform, active, prefs, quiet_start, quiet_end)
		VALUES (NULLIF($1, 0), $2, NULLIF($3, ''), $4, true, $5, NULLIF($6, ''), NULLIF($7, ''))
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_id = EXCLUDED.device_id,
			platform = EXCLUDED.platform,
			active = true,
			prefs = EXCLUDED.prefs,
			quiet_start = EXCLUDED.quiet_start,
			quiet_end = EXCLUDED.quiet_end,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, d.UserID, d.Token, d.DeviceID, d.Platform, prefs, d.QuietStart, d.QuietEnd,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return translateErr(err)
}

func (r *Repository) ActiveDevices(ctx context.Context, userID int) ([]domain.Device, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, COALESCE(user_id, 0), token, COALESCE(device_id, ''), platform, active,
			prefs, COALESCE(quiet_start, ''), COALESCE(quiet_end, ''), created_at, updated_at
		FROM devices
		WHERE user_id = $1 AND active = true
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()
	return scanDevices(rows)
}

// DeactivateTokens retires tokens a push provider reported as permanently
// unregistered. Registrations are never deleted.
func (r *Repository) DeactivateTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.DB.ExecContext(ctx, `
		UPDATE devices SET active = false, updated_at = now() WHERE token = ANY($1)
	`, pq.Array(tokens))
	return translateErr(err)
}

func scanDevices(rows *sql.Rows) ([]domain.Device, error) {
	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		var prefs []byte
		if err := rows.Scan(&d.ID, &d.UserID, &d.Token, &d.DeviceID, &d.Platform, &d.Active,
			&prefs, &d.QuietStart, &d.QuietEnd, &d.CreatedAt, &d.UpdatedAt); err != nil {
			continue
		}
		if len(prefs) > 0 {
			json.Unmarshal(prefs, &d.Prefs)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
