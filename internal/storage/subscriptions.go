package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"tiffinloop/internal/domain"
)

func (r *Repository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO subscriptions (customer_id, plan_id, status, start_date, end_date,
			auto_renew, discount, payment_ref, delivery_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING id, created_at, updated_at
	`, sub.CustomerID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate,
		sub.AutoRenew, sub.Discount, sub.PaymentRef, sub.DeliveryAddress,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	return translateErr(err)
}

func (r *Repository) GetSubscription(ctx context.Context, id int) (*domain.Subscription, error) {
	var sub domain.Subscription
	var paymentRef sql.NullString
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, customer_id, plan_id, status, start_date, end_date,
			auto_renew, discount, payment_ref, delivery_address, created_at, updated_at
		FROM subscriptions WHERE id = $1
	`, id).Scan(&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate,
		&sub.AutoRenew, &sub.Discount, &paymentRef, &sub.DeliveryAddress, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	sub.PaymentRef = paymentRef.String
	return &sub, nil
}

func (r *Repository) UpdateSubscriptionStatus(ctx context.Context, id int, status domain.SubscriptionStatus, autoRenew bool) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1, auto_renew = $2, updated_at = now() WHERE id = $3
	`, status, autoRenew, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	days, err := json.Marshal(plan.OperationalDays)
	if err != nil {
		return err
	}
	slots, err := json.Marshal(plan.Slots)
	if err != nil {
		return err
	}
	meals, err := json.Marshal(plan.Meals)
	if err != nil {
		return err
	}

	err = r.DB.QueryRowContext(ctx, `
		INSERT INTO plans (partner_id, name, operational_days, slots, meals_per_day, meals, delivery_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, plan.PartnerID, plan.Name, days, slots, plan.MealsPerDay, meals, plan.DeliveryFee,
	).Scan(&plan.ID, &plan.CreatedAt)
	return translateErr(err)
}

func (r *Repository) GetPlan(ctx context.Context, id int) (*domain.Plan, error) {
	var plan domain.Plan
	var days, slots, meals []byte
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, partner_id, name, operational_days, slots, meals_per_day, meals, delivery_fee, created_at
		FROM plans WHERE id = $1
	`, id).Scan(&plan.ID, &plan.PartnerID, &plan.Name, &days, &slots, &plan.MealsPerDay, &meals, &plan.DeliveryFee, &plan.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}

	if err := json.Unmarshal(days, &plan.OperationalDays); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(slots, &plan.Slots); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meals, &plan.Meals); err != nil {
		return nil, err
	}
	return &plan, nil
}
