package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/fulfillment"
	"tiffinloop/internal/notify"
	"tiffinloop/internal/orders"
	"tiffinloop/internal/subscriptions"

	"github.com/lib/pq"
)

// Repository is the single Postgres-backed store for orders, subscriptions,
// plans, notifications and device registrations.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

var (
	_ orders.OrderRepository               = (*Repository)(nil)
	_ fulfillment.PlanReader               = (*Repository)(nil)
	_ fulfillment.OrderWriter              = (*Repository)(nil)
	_ subscriptions.SubscriptionRepository = (*Repository)(nil)
	_ notify.NotificationRepository        = (*Repository)(nil)
	_ notify.DeviceRepository              = (*Repository)(nil)
)

// translateErr maps driver errors onto the shared domain outcomes so
// services never inspect SQL state.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrDuplicate
	}
	return err
}

func (r *Repository) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id SERIAL PRIMARY KEY,
			partner_id INT NOT NULL,
			name TEXT NOT NULL,
			operational_days JSONB NOT NULL DEFAULT '[]',
			slots JSONB NOT NULL DEFAULT '[]',
			meals_per_day INT NOT NULL DEFAULT 1,
			meals JSONB NOT NULL DEFAULT '{}',
			delivery_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id SERIAL PRIMARY KEY,
			customer_id INT NOT NULL,
			plan_id INT NOT NULL REFERENCES plans(id),
			status TEXT NOT NULL DEFAULT 'pending',
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			auto_renew BOOLEAN NOT NULL DEFAULT false,
			discount NUMERIC(10,2) NOT NULL DEFAULT 0,
			payment_ref TEXT,
			delivery_address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			customer_id INT NOT NULL,
			partner_id INT NOT NULL,
			total_amount NUMERIC(10,2) NOT NULL,
			delivery_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			delivery_address TEXT NOT NULL DEFAULT '',
			delivery_instructions TEXT,
			is_paid BOOLEAN NOT NULL DEFAULT false,
			payment JSONB,
			scheduled_for TIMESTAMPTZ NOT NULL,
			delivered_at TIMESTAMPTZ,
			estimated_ready_at TIMESTAMPTZ,
			review JSONB,
			cancel_reason TEXT,
			cancel_message TEXT,
			subscription_id INT,
			plan_id INT,
			day_of_week TEXT,
			slot TEXT,
			qr_code BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		// Duplicate suppression for idempotent regeneration: one order per
		// subscription slot per day.
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_subscription_slot
			ON orders (subscription_id, (scheduled_for::date), slot)
			WHERE subscription_id IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id INT NOT NULL REFERENCES orders(id),
			meal_id TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity INT NOT NULL,
			price NUMERIC(10,2) NOT NULL DEFAULT 0,
			instructions TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'push',
			variant TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			user_id INT,
			partner_id INT,
			order_id INT,
			data JSONB,
			status TEXT NOT NULL DEFAULT 'sent',
			read BOOLEAN NOT NULL DEFAULT false,
			read_at TIMESTAMPTZ,
			scheduled_for TIMESTAMPTZ,
			stats JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id SERIAL PRIMARY KEY,
			user_id INT,
			token TEXT NOT NULL UNIQUE,
			device_id TEXT,
			platform TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			prefs JSONB NOT NULL DEFAULT '{}',
			quiet_start TEXT,
			quiet_end TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.DB.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
